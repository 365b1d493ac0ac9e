package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/repository"
	"alcyxob/coaching-app/internal/storage"
)

// PlanDetail is a plan together with its resolved lineage.
type PlanDetail struct {
	domain.Plan
	Lineage domain.PlanLineage `json:"lineage"`
}

// PDFUpload tells the rendering collaborator where to PUT the document.
type PDFUpload struct {
	AttachmentID string    `json:"attachmentId"`
	UploadURL    string    `json:"uploadUrl"`
	ContentType  string    `json:"contentType"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// PlanService is the read and edit side of the plan store. Plans are only
// created by the job tracker.
type PlanService interface {
	// List returns plan summaries (no content), newest first.
	List(ctx context.Context, clientID string, kind domain.PlanKind) ([]domain.Plan, error)
	Get(ctx context.Context, planID string) (*PlanDetail, error)
	// Owner returns the client the plan belongs to.
	Owner(ctx context.Context, planID string) (string, error)
	Patch(ctx context.Context, planID string, content domain.PlanContent) (*domain.Plan, error)
	Delete(ctx context.Context, planID string) error

	RequestPDFUpload(ctx context.Context, planID string) (*PDFUpload, error)
	AttachPDF(ctx context.Context, planID, attachmentID string) error
	PDFDownloadURL(ctx context.Context, planID string) (string, error)
	MarkDelivered(ctx context.Context, planID string, channel domain.DeliveryChannel) error
}

type planService struct {
	plans   repository.PlanRepository
	lineage LineageResolver
	files   storage.FileStorage
	log     *logger.Logger
	now     func() time.Time
	urlTTL  time.Duration
}

func NewPlanService(plans repository.PlanRepository, lineage LineageResolver, files storage.FileStorage, log *logger.Logger) PlanService {
	if files == nil {
		files = storage.Disabled{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &planService{
		plans:   plans,
		lineage: lineage,
		files:   files,
		log:     log.With("service", "PlanService"),
		now:     func() time.Time { return time.Now().UTC() },
		urlTTL:  storage.DefaultPresignedURLExpiry,
	}
}

func (s *planService) get(ctx context.Context, planID string) (*domain.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (s *planService) List(ctx context.Context, clientID string, kind domain.PlanKind) ([]domain.Plan, error) {
	if !kind.Valid() {
		return nil, invalid("kind", "must be training or nutrition")
	}
	plans, err := s.plans.ListByClientAndKind(ctx, clientID, kind)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Plan, len(plans))
	for i := range plans {
		out[i] = plans[i].Summary()
	}
	return out, nil
}

func (s *planService) Get(ctx context.Context, planID string) (*PlanDetail, error) {
	plan, err := s.get(ctx, planID)
	if err != nil {
		return nil, err
	}
	lin, err := s.lineage.Resolve(ctx, plan)
	if err != nil {
		return nil, err
	}
	return &PlanDetail{Plan: *plan, Lineage: lin}, nil
}

func (s *planService) Owner(ctx context.Context, planID string) (string, error) {
	plan, err := s.get(ctx, planID)
	if err != nil {
		return "", err
	}
	return plan.ClientID, nil
}

func (s *planService) Patch(ctx context.Context, planID string, content domain.PlanContent) (*domain.Plan, error) {
	if content == nil {
		return nil, invalid("content", "is required")
	}
	if err := s.plans.UpdateContent(ctx, planID, content, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return s.get(ctx, planID)
}

// Delete removes the plan only. Lineage pointers of other plans are left
// dangling and the source questionnaire keeps its planGenerated flag.
func (s *planService) Delete(ctx context.Context, planID string) error {
	plan, err := s.get(ctx, planID)
	if err != nil {
		return err
	}
	if err := s.plans.Delete(ctx, planID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	if plan.PDFID != nil {
		key := storage.PlanPDFKey(plan.ClientID, plan.ID, *plan.PDFID)
		if err := s.files.DeleteObject(ctx, key); err != nil {
			s.log.Warn("orphaned plan pdf", "plan_id", planID, "key", key, "error", err)
		}
	}
	s.log.Info("plan deleted", "plan_id", planID, "client_id", plan.ClientID, "kind", plan.Kind)
	return nil
}

func (s *planService) RequestPDFUpload(ctx context.Context, planID string) (*PDFUpload, error) {
	plan, err := s.get(ctx, planID)
	if err != nil {
		return nil, err
	}
	attachmentID := storage.NewAttachmentID()
	key := storage.PlanPDFKey(plan.ClientID, plan.ID, attachmentID)
	url, err := s.files.GeneratePresignedUploadURL(ctx, key, storage.PDFContentType, s.urlTTL)
	if err != nil {
		return nil, err
	}
	return &PDFUpload{
		AttachmentID: attachmentID,
		UploadURL:    url,
		ContentType:  storage.PDFContentType,
		ExpiresAt:    s.now().Add(s.urlTTL),
	}, nil
}

func (s *planService) AttachPDF(ctx context.Context, planID, attachmentID string) error {
	if _, err := uuid.Parse(attachmentID); err != nil {
		return invalid("attachmentId", "must be an id returned by the upload request")
	}
	if err := s.plans.SetPDF(ctx, planID, attachmentID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	return nil
}

func (s *planService) PDFDownloadURL(ctx context.Context, planID string) (string, error) {
	plan, err := s.get(ctx, planID)
	if err != nil {
		return "", err
	}
	if plan.PDFID == nil {
		return "", ErrPDFNotAttached
	}
	return s.files.GeneratePresignedDownloadURL(ctx, storage.PlanPDFKey(plan.ClientID, plan.ID, *plan.PDFID), s.urlTTL)
}

func (s *planService) MarkDelivered(ctx context.Context, planID string, channel domain.DeliveryChannel) error {
	if !channel.Valid() {
		return invalid("channel", "must be email or whatsapp")
	}
	if err := s.plans.SetDelivered(ctx, planID, channel, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	return nil
}
