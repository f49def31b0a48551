package task

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Submitter runs fired tasks. Pool is the production implementation.
type Submitter interface {
	Submit(ctx context.Context, t Task) error
}

type Config struct {
	// Location is used for runAt values without an offset. Defaults to
	// time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

type queueItem struct {
	runAt time.Time
	seq   uint64
	id    string
}

// runQueue is a min-heap on (runAt, seq).
type runQueue []queueItem

func (q runQueue) Len() int { return len(q) }

func (q runQueue) Less(i, j int) bool {
	if q[i].runAt.Equal(q[j].runAt) {
		return q[i].seq < q[j].seq
	}
	return q[i].runAt.Before(q[j].runAt)
}

func (q runQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *runQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *runQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Scheduler keeps every scheduled task in memory and hands each one to the
// Submitter once its runAt has passed. A single goroutine (Run) waits on one
// timer armed for the earliest pending runAt.
type Scheduler struct {
	runner Submitter
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time

	mu    sync.Mutex
	tasks []*Task
	byID  map[string]*Task
	queue runQueue
	seq   uint64

	wake chan struct{}
}

func NewScheduler(runner Submitter, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		runner: runner,
		logger: logger,
		loc:    cfg.Location,
		now:    cfg.Now,
		byID:   make(map[string]*Task),
		wake:   make(chan struct{}, 1),
	}
}

// Schedule validates dto, stores the task and queues it. A runAt in the past
// fires on the next tick. Invalid requests leave no trace.
func (s *Scheduler) Schedule(ctx context.Context, dto ScheduleTaskDTO) (*Task, error) {
	taskType, err := ParseType(dto.Type)
	if err != nil {
		s.logger.Warn("rejected task with invalid type", "type", dto.Type, "username", dto.Username)
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	runAt, err := ParseRunAt(dto.RunAt, s.loc)
	if err != nil {
		return nil, err
	}

	t := NewTask(uuid.New().String(), taskType, dto.Username, runAt, dto.Description, dto.Label)

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.byID[t.ID] = t
	s.seq++
	heap.Push(&s.queue, queueItem{runAt: t.RunAt, seq: s.seq, id: t.ID})
	s.mu.Unlock()

	s.notify()

	s.logger.Info("task scheduled",
		"task_id", t.ID,
		"type", t.Type,
		"username", t.Username,
		"run_at", t.RunAt)

	out := *t
	return &out, nil
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ListActive returns tasks whose runAt is still in the future, in the order
// they were scheduled.
func (s *Scheduler) ListActive() []Task {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.IsActive(now) {
			active = append(active, *t)
		}
	}
	return active
}

// RunDue submits every queued task whose runAt is not after now and returns
// how many were submitted.
func (s *Scheduler) RunDue(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	var due []Task
	for s.queue.Len() > 0 && !s.queue[0].runAt.After(now) {
		item := heap.Pop(&s.queue).(queueItem)
		if t, ok := s.byID[item.id]; ok {
			due = append(due, *t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		s.logger.Info("task fired", "task_id", t.ID, "type", t.Type, "username", t.Username)
		if err := s.runner.Submit(ctx, t); err != nil {
			s.logger.Error("failed to submit task", "task_id", t.ID, "error", err)
		}
	}
	return len(due)
}

func (s *Scheduler) nextRunAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].runAt, true
}

// Run drives the scheduler until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	stopTimer(timer)

	s.logger.Info("task scheduler started")
	for {
		s.RunDue(ctx)

		var fire <-chan time.Time
		if next, ok := s.nextRunAt(); ok {
			d := next.Sub(s.now())
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			s.logger.Info("task scheduler stopped")
			return nil
		case <-s.wake:
		case <-fire:
		}
		stopTimer(timer)
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
