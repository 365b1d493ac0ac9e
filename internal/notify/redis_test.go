package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
)

type fakePublisher struct {
	channel string
	msgs    [][]byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd {
	f.channel = channel
	f.msgs = append(f.msgs, message.([]byte))
	cmd := goredis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisNotifierPublishesStatusView(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedisNotifier(pub, "generation-jobs", logger.Nop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return at }

	tp := "tp1"
	job := &domain.GenerationJob{ID: "j1", ClientID: "c1", Mode: domain.ModeTraining, Status: domain.JobCompleted, Result: &domain.JobResult{TrainingPlanID: &tp}}
	n.JobCompleted(context.Background(), job)

	require.Equal(t, "generation-jobs", pub.channel)
	require.Len(t, pub.msgs, 1)
	var ev Event
	require.NoError(t, json.Unmarshal(pub.msgs[0], &ev))
	require.Equal(t, EventJobCompleted, ev.Type)
	require.Equal(t, "tp1", *ev.Result.TrainingPlanID)
	require.True(t, at.Equal(ev.At))
}

func TestRedisNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	n := NewRedisNotifier(pub, "ch", logger.Nop())
	require.NotPanics(t, func() {
		n.JobFailed(context.Background(), &domain.GenerationJob{ID: "j1", Status: domain.JobFailed, Error: "LLM timeout"})
	})
	require.Len(t, pub.msgs, 1)
}
