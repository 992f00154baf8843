package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"triage/internal/constants"
	"triage/internal/logger"
	pkgerrors "triage/pkg/errors"
	"triage/pkg/metrics"
)

type RecorderOption func(*Recorder)

func WithQueueSize(size int) RecorderOption {
	return func(r *Recorder) {
		if size > 0 {
			r.queueSize = size
		}
	}
}

func WithWorkers(workers int) RecorderOption {
	return func(r *Recorder) {
		if workers > 0 {
			r.workers = workers
		}
	}
}

func WithWriteTimeout(timeout time.Duration) RecorderOption {
	return func(r *Recorder) {
		if timeout > 0 {
			r.writeTimeout = timeout
		}
	}
}

// Recorder writes audit events in the background. Record never blocks and
// never returns an error: a full queue drops the event and store failures are
// logged, so the audit trail may under-report but cannot fail a mutation.
type Recorder struct {
	store  Store
	logger logger.Logger

	queueSize    int
	workers      int
	writeTimeout time.Duration

	mu     sync.RWMutex
	queue  chan Event
	closed bool
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewRecorder(store Store, log logger.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:        store,
		logger:       log,
		queueSize:    constants.DefaultAuditQueueSize,
		workers:      constants.DefaultAuditWorkers,
		writeTimeout: constants.DefaultAuditWriteTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.queue = make(chan Event, r.queueSize)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.run()
	}
	return r
}

// Record redacts the entry and enqueues it.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	event := Event{
		ID:        uuid.New().String(),
		Actor:     entry.Actor,
		Action:    entry.Action,
		Entity:    entry.Entity,
		EntityID:  entry.EntityID,
		Details:   RedactDetails(entry.Details),
		CreatedAt: r.now().UTC(),
	}
	if event.Actor == "" {
		event.Actor = ActorFromContext(ctx)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		metrics.IncAuditEvent(string(event.Action), "dropped")
		r.logger.WarnwCtx(ctx, "Audit recorder closed, dropping event", "action", event.Action, "entity_id", event.EntityID)
		return
	}

	select {
	case r.queue <- event:
		metrics.SetAuditQueueSize(len(r.queue))
	default:
		metrics.IncAuditEvent(string(event.Action), "dropped")
		r.logger.WarnwCtx(ctx, "Audit queue full, dropping event", "action", event.Action, "entity_id", event.EntityID)
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for event := range r.queue {
		r.write(event)
		metrics.SetAuditQueueSize(len(r.queue))
	}
}

func (r *Recorder) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.store.Append(ctx, event); err != nil {
		appErr := pkgerrors.Wrap(err, pkgerrors.ErrAuditWrite)
		metrics.IncAuditEvent(string(event.Action), "failed")
		r.logger.Errorw("Failed to write audit event",
			"error", appErr,
			"event_id", event.ID,
			"action", event.Action,
			"entity_id", event.EntityID,
		)
		return
	}
	metrics.IncAuditEvent(string(event.Action), "written")
}

// Close stops accepting events and waits for queued events to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

// List reads events back from the store, newest first.
func (r *Recorder) List(ctx context.Context, filter Filter) ([]Event, error) {
	if filter.Limit <= 0 {
		filter.Limit = constants.DefaultLimit
	}
	if filter.Limit > constants.MaxLimit {
		filter.Limit = constants.MaxLimit
	}
	return r.store.List(ctx, filter)
}
