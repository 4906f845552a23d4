// Package sync runs background spreadsheet synchronization through a go-job
// queue. A scheduler enqueues one execution message per registered mapping;
// a worker drains the queue and drives the sheet sync service.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/lexfirm/google-services/core"
	"github.com/lexfirm/google-services/integrations"
)

const JobIDSheetSync = "google.sheets.sync"

type MappingLister interface {
	ListMappings(ctx context.Context, id core.Identity) ([]core.SheetMapping, error)
}

type MappingSyncer interface {
	SyncMapping(ctx context.Context, id core.Identity, mappingID string) (integrations.SheetSyncResult, error)
}

// RetryPolicy bounds nack behavior so a failing mapping cannot loop through
// the queue forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

type SchedulerConfig struct {
	Sheets   MappingLister
	Enqueuer queue.Enqueuer
	Logger   core.Logger
}

// Scheduler fans a user's registered mappings out into the queue. It is
// typically driven by a cron tick or an explicit "sync now" action.
type Scheduler struct {
	sheets   MappingLister
	enqueuer queue.Enqueuer
	logger   core.Logger
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Sheets == nil {
		return nil, fmt.Errorf("sync: mapping lister is required")
	}
	if cfg.Enqueuer == nil {
		return nil, fmt.Errorf("sync: queue enqueuer is required")
	}
	return &Scheduler{
		sheets:   cfg.Sheets,
		enqueuer: cfg.Enqueuer,
		logger:   glog.Ensure(cfg.Logger),
	}, nil
}

// EnqueueUserSync enqueues one job per mapping and returns how many were
// queued. A single enqueue failure aborts the run; already queued jobs stand.
func (s *Scheduler) EnqueueUserSync(ctx context.Context, id core.Identity) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("sync: scheduler is nil")
	}
	if err := id.Validate(); err != nil {
		return 0, err
	}
	mappings, err := s.sheets.ListMappings(ctx, id)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, mapping := range mappings {
		msg := &job.ExecutionMessage{
			JobID:          JobIDSheetSync,
			IdempotencyKey: JobIDSheetSync + ":" + mapping.ID,
			Parameters: map[string]any{
				"user_id":    id.UserID,
				"email":      id.Email,
				"mapping_id": mapping.ID,
			},
		}
		if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
			return queued, fmt.Errorf("sync: enqueue mapping %s: %w", mapping.ID, err)
		}
		queued++
	}
	s.logger.Info("sheet sync scheduled", "user_id", id.UserID, "queued", queued)
	return queued, nil
}

type WorkerConfig struct {
	Sheets   MappingSyncer
	Dequeuer queue.Dequeuer
	Policy   RetryPolicy
	Logger   core.Logger
}

// Worker consumes sheet sync messages one at a time. Malformed messages are
// dead-lettered; sync failures are nacked for redelivery under the policy.
type Worker struct {
	sheets   MappingSyncer
	dequeuer queue.Dequeuer
	policy   RetryPolicy
	logger   core.Logger
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Sheets == nil {
		return nil, fmt.Errorf("sync: mapping syncer is required")
	}
	if cfg.Dequeuer == nil {
		return nil, fmt.Errorf("sync: queue dequeuer is required")
	}
	return &Worker{
		sheets:   cfg.Sheets,
		dequeuer: cfg.Dequeuer,
		policy:   cfg.Policy,
		logger:   glog.Ensure(cfg.Logger),
	}, nil
}

func (w *Worker) ProcessOne(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("sync: worker is nil")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}

	msg := delivery.Message()
	id, mappingID, err := parseSyncMessage(msg)
	if err != nil {
		nackErr := delivery.Nack(ctx, w.policy.Normalize(queue.NackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		}, attemptFrom(msg)))
		if nackErr != nil {
			w.logger.Error("dead-letter nack failed", "error", nackErr)
		}
		return err
	}

	if _, err := w.sheets.SyncMapping(ctx, id, mappingID); err != nil {
		w.logger.Error("sheet sync failed", "user_id", id.UserID, "mapping_id", mappingID, "error", err)
		nackErr := delivery.Nack(ctx, w.policy.Normalize(queue.NackOptions{
			Requeue: true,
			Reason:  err.Error(),
		}, attemptFrom(msg)))
		if nackErr != nil {
			w.logger.Error("retry nack failed", "mapping_id", mappingID, "error", nackErr)
		}
		return err
	}

	return delivery.Ack(ctx)
}

// Run drains the queue until the context is canceled. Dequeue and sync
// errors are logged and do not stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("sync: worker is nil")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := w.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("sheet sync worker iteration failed", "error", err)
		}
	}
}

func parseSyncMessage(msg *job.ExecutionMessage) (core.Identity, string, error) {
	if msg == nil {
		return core.Identity{}, "", fmt.Errorf("sync: execution message is nil")
	}
	userID := stringParam(msg.Parameters, "user_id")
	mappingID := stringParam(msg.Parameters, "mapping_id")
	if userID == "" || mappingID == "" {
		return core.Identity{}, "", fmt.Errorf("sync: message %s is missing user_id or mapping_id", msg.JobID)
	}
	return core.Identity{
		UserID: userID,
		Email:  stringParam(msg.Parameters, "email"),
	}, mappingID, nil
}

func stringParam(params map[string]any, key string) string {
	value, _ := params[key].(string)
	return strings.TrimSpace(value)
}

func attemptFrom(msg *job.ExecutionMessage) int {
	if msg == nil {
		return 0
	}
	switch value := msg.Parameters["attempt"].(type) {
	case int:
		return value
	case float64:
		return int(value)
	}
	return 0
}
