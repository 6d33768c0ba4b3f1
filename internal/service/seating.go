// Package service coordinates an allocation run with the systems
// around it: the per-exam lock, event publishing, cache invalidation
// and tracing.  The seating decisions themselves live in the
// allocator package.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/exam-seating/internal/allocator"
	"github.com/iliyamo/exam-seating/internal/lock"
	"github.com/iliyamo/exam-seating/internal/model"
	"github.com/iliyamo/exam-seating/internal/queue"
	"github.com/iliyamo/exam-seating/internal/telemetry"
)

// Publisher delivers allocation events to downstream consumers.
type Publisher interface {
	PublishAllocation(ctx context.Context, ev queue.AllocationEvent) error
}

// CacheInvalidator drops cached reads of an exam.
type CacheInvalidator interface {
	InvalidateExam(ctx context.Context, examID uint64) error
}

// Actor identifies who triggered a run; it is copied into events.
type Actor struct {
	UserID    uint64
	RequestID string
}

// SeatingService runs allocation operations.  Publisher and cache are
// optional; their failures are logged and never fail a committed run.
type SeatingService struct {
	alloc  *allocator.Allocator
	locker lock.Locker
	pub    Publisher
	cache  CacheInvalidator
	tracer trace.Tracer
	now    func() time.Time
}

// Option customises a SeatingService.
type Option func(*SeatingService)

func WithPublisher(p Publisher) Option      { return func(s *SeatingService) { s.pub = p } }
func WithCache(c CacheInvalidator) Option   { return func(s *SeatingService) { s.cache = c } }
func WithTracer(t trace.Tracer) Option      { return func(s *SeatingService) { s.tracer = t } }
func WithClock(now func() time.Time) Option { return func(s *SeatingService) { s.now = now } }

// NewSeatingService wires a service.  A nil locker falls back to an
// in-process lock.
func NewSeatingService(alloc *allocator.Allocator, locker lock.Locker, opts ...Option) *SeatingService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	s := &SeatingService{alloc: alloc, locker: locker, tracer: telemetry.Tracer(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Assign seats every registered student of the exam.
func (s *SeatingService) Assign(ctx context.Context, examID uint64, actor Actor) (allocator.AssignResult, error) {
	var res allocator.AssignResult
	err := s.run(ctx, "seating.assign", examID, func(ctx context.Context) error {
		var err error
		res, err = s.alloc.Assign(ctx, examID)
		return err
	}, func() queue.AllocationEvent {
		return queue.AllocationEvent{Action: string(model.ActionAssigned), Seated: res.Seated, Total: res.Total}
	}, actor)
	return res, err
}

// Reassign seats the students that registered after the last run.  A
// run that seats nobody publishes nothing.
func (s *SeatingService) Reassign(ctx context.Context, examID uint64, actor Actor) (allocator.ReassignResult, error) {
	var res allocator.ReassignResult
	err := s.run(ctx, "seating.reassign", examID, func(ctx context.Context) error {
		var err error
		res, err = s.alloc.Reassign(ctx, examID)
		return err
	}, func() queue.AllocationEvent {
		if res.NewlySeated == 0 {
			return queue.AllocationEvent{}
		}
		return queue.AllocationEvent{Action: string(model.ActionReassigned), Seated: res.NewlySeated,
			Total: res.NewTotal, StartedFromBin: res.StartedFromBin}
	}, actor)
	return res, err
}

// Unassign removes every seat of the exam.
func (s *SeatingService) Unassign(ctx context.Context, examID uint64, actor Actor) (allocator.UnassignResult, error) {
	var res allocator.UnassignResult
	err := s.run(ctx, "seating.unassign", examID, func(ctx context.Context) error {
		var err error
		res, err = s.alloc.Unassign(ctx, examID)
		return err
	}, func() queue.AllocationEvent {
		if res.Removed == 0 {
			return queue.AllocationEvent{}
		}
		return queue.AllocationEvent{Action: string(model.ActionUnassigned), Removed: res.Removed}
	}, actor)
	return res, err
}

// run holds the exam lock around op and, after a successful op, emits
// the event built by ev (skipped when its Action is empty) and drops
// cached reads.
func (s *SeatingService) run(ctx context.Context, name string, examID uint64,
	op func(context.Context) error, ev func() queue.AllocationEvent, actor Actor) (err error) {

	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attribute.Int64("exam.id", int64(examID))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	release, err := s.locker.Acquire(ctx, strconv.FormatUint(examID, 10))
	switch {
	case errors.Is(err, lock.ErrLocked):
		return fmt.Errorf("%w: exam %d is being allocated by another request", allocator.ErrConflict, examID)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: exam %d: timed out waiting for another run: %v", allocator.ErrConflict, examID, err)
	case errors.Is(err, context.Canceled):
		return err
	case err != nil:
		// the row lock inside the transaction still serialises the run
		log.Printf("seating: exam %d lock unavailable, continuing: %v", examID, err)
	default:
		defer release()
	}

	if err = op(ctx); err != nil {
		return err
	}

	s.invalidate(ctx, examID)
	if e := ev(); e.Action != "" {
		e.EventID = uuid.NewString()
		e.ExamID = examID
		e.ActorID = actor.UserID
		e.RequestID = actor.RequestID
		e.OccurredAt = s.now().UTC().Format(time.RFC3339)
		span.SetAttributes(attribute.String("event.id", e.EventID))
		s.publish(ctx, e)
	}
	return nil
}

func (s *SeatingService) invalidate(ctx context.Context, examID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateExam(context.WithoutCancel(ctx), examID); err != nil {
		log.Printf("seating: cache invalidation for exam %d failed: %v", examID, err)
	}
}

func (s *SeatingService) publish(ctx context.Context, ev queue.AllocationEvent) {
	if s.pub == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.pub.PublishAllocation(pctx, ev); err != nil {
		log.Printf("seating: publish %s event for exam %d failed: %v", ev.Action, ev.ExamID, err)
	}
}
