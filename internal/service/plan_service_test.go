package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
)

type fakeFiles struct {
	mu      sync.Mutex
	puts    []string
	gets    []string
	deletes []string
}

func (f *fakeFiles) GeneratePresignedUploadURL(_ context.Context, key, contentType string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, key)
	return "https://bucket.test/" + key + "?put", nil
}

func (f *fakeFiles) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, key)
	return "https://bucket.test/" + key + "?get", nil
}

func (f *fakeFiles) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return nil
}

func TestDeletedPlanLeavesDanglingReferences(t *testing.T) {
	h := newHarness(t)
	h.questionnaire("q1", "c1", domain.QuestionnaireInitial)
	h.seedPlan("tp5", "c1", domain.PlanKindTraining, func(p *domain.Plan) { p.SourceSubmissionID = "q1" })
	h.seedPlan("np9", "c1", domain.PlanKindNutrition, func(p *domain.Plan) { p.SyncPlanID = strp("tp5") })
	h.seedPlan("tp6", "c1", domain.PlanKindTraining, func(p *domain.Plan) { p.PreviousPlanID = strp("tp5") })
	require.NoError(t, h.store.Questionnaires().MarkPlanGenerated(h.ctx, "q1"))

	require.NoError(t, h.plans.Delete(h.ctx, "tp5"))

	np, err := h.plans.Get(h.ctx, "np9")
	require.NoError(t, err)
	require.Equal(t, "tp5", *np.SyncPlanID)
	require.False(t, np.Lineage.Sync.Available)
	require.Equal(t, domain.ReferenceUnavailable, np.Lineage.Sync.Note)
	require.Equal(t, "tp5", np.Lineage.Sync.ID)
	require.Nil(t, np.Lineage.Previous)
	require.False(t, np.Lineage.Source.Available)

	tp, err := h.plans.Get(h.ctx, "tp6")
	require.NoError(t, err)
	require.False(t, tp.Lineage.Previous.Available)

	require.Equal(t, []string{"tp6"}, h.planIDs("c1", domain.PlanKindTraining))

	_, err = h.plans.Get(h.ctx, "tp5")
	require.ErrorIs(t, err, ErrPlanNotFound)
	require.ErrorIs(t, h.plans.Delete(h.ctx, "tp5"), ErrNotFound)

	q, err := h.store.Questionnaires().GetByID(h.ctx, "q1")
	require.NoError(t, err)
	require.True(t, q.PlanGenerated)
}

func TestLineageResolvesAvailableReferences(t *testing.T) {
	h := newHarness(t)
	q := h.questionnaire("q1", "c1", domain.QuestionnaireFollowup)
	prev := h.seedPlan("tp1", "c1", domain.PlanKindTraining, nil)
	h.seedPlan("tp2", "c1", domain.PlanKindTraining, func(p *domain.Plan) {
		p.SourceSubmissionID = "q1"
		p.PreviousPlanID = strp("tp1")
	})

	d, err := h.plans.Get(h.ctx, "tp2")
	require.NoError(t, err)
	require.True(t, d.Lineage.Source.Available)
	require.Equal(t, "followup", d.Lineage.Source.Kind)
	require.True(t, q.SubmittedAt.Equal(*d.Lineage.Source.Timestamp))
	require.True(t, d.Lineage.Previous.Available)
	require.True(t, prev.GeneratedAt.Equal(*d.Lineage.Previous.Timestamp))
	require.Nil(t, d.Lineage.Sync)
	require.Equal(t, domain.PlanContent{"seed": "tp2"}, d.Content)
}

func TestPatchKeepsLineageAndGeneratedAt(t *testing.T) {
	h := newHarness(t)
	orig := h.seedPlan("tp2", "c1", domain.PlanKindTraining, func(p *domain.Plan) { p.PreviousPlanID = strp("tp1") })

	updated, err := h.plans.Patch(h.ctx, "tp2", domain.PlanContent{"weeks": 6})
	require.NoError(t, err)
	require.True(t, updated.Edited)
	require.Equal(t, domain.PlanContent{"weeks": 6}, updated.Content)
	require.Equal(t, "tp1", *updated.PreviousPlanID)
	require.Equal(t, orig.SourceSubmissionID, updated.SourceSubmissionID)
	require.True(t, orig.GeneratedAt.Equal(updated.GeneratedAt))

	_, err = h.plans.Patch(h.ctx, "missing", domain.PlanContent{})
	require.ErrorIs(t, err, ErrPlanNotFound)

	var verr *ValidationError
	_, err = h.plans.Patch(h.ctx, "tp2", nil)
	require.ErrorAs(t, err, &verr)
}

func TestListRejectsUnknownKind(t *testing.T) {
	h := newHarness(t)
	_, err := h.plans.List(h.ctx, "c1", "yoga")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "kind", verr.Field)
}

func TestPDFAttachmentLifecycle(t *testing.T) {
	h := newHarness(t)
	files := &fakeFiles{}
	plans := NewPlanService(h.store.Plans(), h.lineage, files, logger.Nop())
	h.seedPlan("tp1", "c1", domain.PlanKindTraining, nil)

	_, err := plans.PDFDownloadURL(h.ctx, "tp1")
	require.ErrorIs(t, err, ErrPDFNotAttached)

	up, err := plans.RequestPDFUpload(h.ctx, "tp1")
	require.NoError(t, err)
	key := "plans/c1/tp1/" + up.AttachmentID + ".pdf"
	require.Equal(t, []string{key}, files.puts)
	require.Equal(t, "application/pdf", up.ContentType)

	var verr *ValidationError
	require.ErrorAs(t, plans.AttachPDF(h.ctx, "tp1", "not-a-uuid"), &verr)
	require.NoError(t, plans.AttachPDF(h.ctx, "tp1", up.AttachmentID))

	url, err := plans.PDFDownloadURL(h.ctx, "tp1")
	require.NoError(t, err)
	require.Contains(t, url, key)

	require.NoError(t, plans.Delete(h.ctx, "tp1"))
	require.Equal(t, []string{key}, files.deletes)
}

func TestMarkDelivered(t *testing.T) {
	h := newHarness(t)
	h.seedPlan("np1", "c1", domain.PlanKindNutrition, nil)

	require.NoError(t, h.plans.MarkDelivered(h.ctx, "np1", domain.DeliveryEmail))
	var verr *ValidationError
	require.ErrorAs(t, h.plans.MarkDelivered(h.ctx, "np1", "fax"), &verr)
	require.ErrorIs(t, h.plans.MarkDelivered(h.ctx, "nope", domain.DeliveryWhatsApp), ErrPlanNotFound)

	p, err := h.plans.Get(h.ctx, "np1")
	require.NoError(t, err)
	require.True(t, p.SentEmail)
	require.False(t, p.SentWhatsApp)
	require.False(t, p.Edited)
}
