// Package scheduler enqueues and processes delayed background tasks through
// asynq backed by Redis: follow-up idle checks on prospects and reminders
// before planned site visits.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	planningservice "chantier_crm_backend/internal/planning/service"
	"chantier_crm_backend/internal/prospects/domain"
	prospectservice "chantier_crm_backend/internal/prospects/service"
	"chantier_crm_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleFollowupCheck enqueues an idle check for a prospect that just
// entered a stage awaiting a client response. The worker re-reads the
// prospect when the task fires, so a check scheduled before a later move is
// harmless.
func (c *Client) ScheduleFollowupCheck(ctx context.Context, prospectID uuid.UUID, stage domain.StageID, delay time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewFollowupDueTask(FollowupDuePayload{
		ProspectID: prospectID.String(),
		Stage:      string(stage),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.Queue(c.queue))
	return err
}

// ScheduleVisitReminder enqueues a reminder fired at remindAt, before a
// planned visit starts.
func (c *Client) ScheduleVisitReminder(ctx context.Context, visitID uuid.UUID, remindAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewVisitReminderTask(VisitReminderPayload{VisitID: visitID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(remindAt), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

// Compile-time checks that the client satisfies the module scheduler ports
var (
	_ prospectservice.FollowupScheduler = (*Client)(nil)
	_ planningservice.ReminderScheduler = (*Client)(nil)
)
