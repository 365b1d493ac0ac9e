package domain

import (
	"time"
)

// PlanKind distinguishes the two plan histories kept per client.
type PlanKind string

const (
	PlanKindTraining  PlanKind = "training"
	PlanKindNutrition PlanKind = "nutrition"
)

func (k PlanKind) Valid() bool {
	return k == PlanKindTraining || k == PlanKindNutrition
}

// PlanContent is the opaque document produced by the generation worker.
type PlanContent map[string]interface{}

// Clone returns a deep copy. Nested maps and slices are copied, other
// values are shared.
func (c PlanContent) Clone() PlanContent {
	if c == nil {
		return nil
	}
	return cloneValue(map[string]interface{}(c)).(map[string]interface{})
}

func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case PlanContent:
		return v.Clone()
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Plan is one versioned entry in a client's training or nutrition history.
// Lineage pointers (SourceSubmissionID, PreviousPlanID, SyncPlanID) are set
// at creation and never rewritten; they may dangle after a delete.
type Plan struct {
	ID                 string      `bson:"_id" json:"id"`
	ClientID           string      `bson:"clientId" json:"clientId"`
	Kind               PlanKind    `bson:"kind" json:"kind"`
	Month              int         `bson:"month" json:"month"`
	Year               int         `bson:"year" json:"year"`
	GeneratedAt        time.Time   `bson:"generatedAt" json:"generatedAt"`
	Content            PlanContent `bson:"content" json:"content,omitempty"`
	SourceSubmissionID string      `bson:"sourceSubmissionId" json:"sourceSubmissionId"`
	PreviousPlanID     *string     `bson:"previousPlanId,omitempty" json:"previousPlanId"`
	SyncPlanID         *string     `bson:"syncPlanId,omitempty" json:"syncPlanId"`
	JobID              string      `bson:"jobId,omitempty" json:"jobId,omitempty"`

	// Set by downstream collaborators, never by the job tracker.
	PDFID        *string `bson:"pdfId,omitempty" json:"pdfId,omitempty"`
	SentEmail    bool    `bson:"sentEmail" json:"sentEmail"`
	SentWhatsApp bool    `bson:"sentWhatsapp" json:"sentWhatsapp"`
	Edited       bool    `bson:"edited" json:"edited"`

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Summary drops the content payload, for list views.
func (p Plan) Summary() Plan {
	p.Content = nil
	return p
}

// DeliveryChannel names the channels the delivery collaborator reports on.
type DeliveryChannel string

const (
	DeliveryEmail    DeliveryChannel = "email"
	DeliveryWhatsApp DeliveryChannel = "whatsapp"
)

func (c DeliveryChannel) Valid() bool {
	return c == DeliveryEmail || c == DeliveryWhatsApp
}

// ReferenceUnavailable is what a dangling lineage pointer resolves to.
const ReferenceUnavailable = "reference unavailable"

// LineageRef is a dereferenced lineage pointer.
type LineageRef struct {
	ID        string     `json:"id"`
	Available bool       `json:"available"`
	Kind      string     `json:"kind,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Note      string     `json:"note,omitempty"`
}

// UnavailableRef builds the sentinel for a pointer whose target is gone.
func UnavailableRef(id string) *LineageRef {
	return &LineageRef{ID: id, Available: false, Note: ReferenceUnavailable}
}

// PlanLineage holds the resolved pointers of a plan. Nil fields mean the
// plan never had that pointer.
type PlanLineage struct {
	Source   *LineageRef `json:"source"`
	Previous *LineageRef `json:"previous"`
	Sync     *LineageRef `json:"sync"`
}
