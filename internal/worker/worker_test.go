package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
)

func TestHTTPDispatcherPostsRequest(t *testing.T) {
	var got Request
	var auth, reqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		reqID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "s3cret", time.Second, logger.Nop())
	err := d.Dispatch(context.Background(), Request{
		RequestID:   "r1",
		JobID:       "j1",
		ClientID:    "c1",
		Mode:        domain.ModeTraining,
		Inputs:      domain.GenerationInputs{QuestionnaireSubmissionID: "q1"},
		CallbackURL: "http://localhost/api/v1/worker/generations/j1/result",
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer s3cret", auth)
	require.Equal(t, "r1", reqID)
	require.Equal(t, "j1", got.JobID)
	require.Equal(t, "q1", got.Inputs.QuestionnaireSubmissionID)
}

func TestHTTPDispatcherRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPDispatcher(srv.URL, "", time.Second, logger.Nop()).Dispatch(context.Background(), Request{JobID: "j1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
	require.Contains(t, err.Error(), "queue full")
}

func TestUnconfigured(t *testing.T) {
	require.ErrorIs(t, Unconfigured{}.Dispatch(context.Background(), Request{}), ErrNotConfigured)
}

type recordingSink struct {
	mu       sync.Mutex
	outcomes map[string]domain.GenerationOutcome
}

func (s *recordingSink) OnWorkerResult(_ context.Context, jobID string, o domain.GenerationOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[jobID] = o
	return nil
}

func TestInProcessDeliversEchoOutcome(t *testing.T) {
	sink := &recordingSink{outcomes: map[string]domain.GenerationOutcome{}}
	w := NewInProcess(Echo, 0, logger.Nop())
	require.Error(t, w.Dispatch(context.Background(), Request{JobID: "j0"}))

	w.Bind(sink)
	require.NoError(t, w.Dispatch(context.Background(), Request{JobID: "j1", Mode: domain.ModeFull, Inputs: domain.GenerationInputs{QuestionnaireSubmissionID: "q1"}}))
	w.Wait()

	o := sink.outcomes["j1"]
	require.True(t, o.Success)
	require.NotNil(t, o.Artifact(domain.PlanKindTraining))
	require.NotNil(t, o.Artifact(domain.PlanKindNutrition))
}
