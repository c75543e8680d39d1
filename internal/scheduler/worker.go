package scheduler

import (
	"context"
	"fmt"
	"time"

	"chantier_crm_backend/internal/events"
	planningrepo "chantier_crm_backend/internal/planning/repository"
	"chantier_crm_backend/internal/prospects/domain"
	prospectrepo "chantier_crm_backend/internal/prospects/repository"
	"chantier_crm_backend/platform/apperr"
	"chantier_crm_backend/platform/config"
	"chantier_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	prospects *prospectrepo.Repository
	visits    *planningrepo.Repository
	bus       events.Bus
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		prospects: prospectrepo.New(pool),
		visits:    planningrepo.New(pool),
		bus:       bus,
		log:       log,
	}

	mux.HandleFunc(TaskFollowupDue, w.handleFollowupDue)
	mux.HandleFunc(TaskVisitReminder, w.handleVisitReminder)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleFollowupDue re-checks a prospect when its idle timer fires. The check
// is a no-op when the prospect moved on since the task was scheduled, the
// office only gets an alert for prospects genuinely stuck in the stage.
func (w *Worker) handleFollowupDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseFollowupDuePayload(task)
	if err != nil {
		return err
	}

	prospectID, err := uuid.Parse(payload.ProspectID)
	if err != nil {
		return err
	}

	p, err := w.prospects.GetByID(ctx, prospectID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	if string(p.Stage) != payload.Stage {
		return nil
	}
	if domain.IsTerminalStage(p.Stage) {
		return nil
	}

	return w.bus.PublishSync(ctx, events.FollowupReminderDue{
		BaseEvent:  events.NewBaseEvent(),
		ProspectID: p.ID,
		Name:       p.Name,
		Stage:      string(p.Stage),
		IdleSince:  p.LastActionAt,
	})
}

func (w *Worker) handleVisitReminder(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseVisitReminderPayload(task)
	if err != nil {
		return err
	}

	visitID, err := uuid.Parse(payload.VisitID)
	if err != nil {
		return err
	}

	v, err := w.visits.GetByID(ctx, visitID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	// A visit rescheduled to the past, or already over, needs no reminder.
	if v.StartsAt.Before(time.Now()) {
		return nil
	}

	prospectName := ""
	if v.ProspectID != nil {
		p, err := w.prospects.GetByID(ctx, *v.ProspectID)
		if err == nil {
			prospectName = p.Name
		}
	}

	return w.bus.PublishSync(ctx, events.VisitReminderDue{
		BaseEvent:    events.NewBaseEvent(),
		VisitID:      v.ID,
		ProspectName: prospectName,
		Location:     v.Location,
		StartsAt:     v.StartsAt,
	})
}
