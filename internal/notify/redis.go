package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
)

const publishTimeout = 2 * time.Second

// publisher is the part of *goredis.Client the notifier needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// RedisNotifier publishes Events as JSON on a redis pub/sub channel.
type RedisNotifier struct {
	rdb     publisher
	channel string
	log     *logger.Logger
	now     func() time.Time
}

// Dial connects to redis and verifies the connection with a ping.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisNotifier(rdb publisher, channel string, log *logger.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb:     rdb,
		channel: channel,
		log:     log.With("service", "RedisJobNotifier"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (n *RedisNotifier) JobCreated(ctx context.Context, job *domain.GenerationJob) {
	n.publish(ctx, NewEvent(EventJobCreated, job, n.now()))
}

func (n *RedisNotifier) JobCompleted(ctx context.Context, job *domain.GenerationJob) {
	n.publish(ctx, NewEvent(EventJobCompleted, job, n.now()))
}

func (n *RedisNotifier) JobFailed(ctx context.Context, job *domain.GenerationJob) {
	n.publish(ctx, NewEvent(EventJobFailed, job, n.now()))
}

func (n *RedisNotifier) publish(ctx context.Context, ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn("marshal job event failed", "job_id", ev.JobID, "error", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := n.rdb.Publish(pubCtx, n.channel, raw).Err(); err != nil {
		n.log.Warn("publish job event failed", "job_id", ev.JobID, "type", ev.Type, "error", err)
	}
}
