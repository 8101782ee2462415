// Package scheduler provides one-shot deferred callbacks with cancellation
// tokens.
//
// A scheduled task owns its payload until exactly one of its two callbacks
// runs: onFire on expiry, or onStopped when the task is cancelled, replaced
// by a newer task with the same key, or dropped by Stop. onFire runs on the
// timer's goroutine and must only hand the payload off (for example by
// posting it to the application queue).
package scheduler

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrSchedulerStopped is returned by Schedule after Stop.
var ErrSchedulerStopped = errors.New("scheduler stopped")

// Timer is a pending one-shot timer.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer.
	Stop() bool
}

// TimeProvider arms one-shot timers. Tests substitute a manual clock.
type TimeProvider interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// DefaultTimeProvider uses time.AfterFunc.
type DefaultTimeProvider struct{}

// AfterFunc implements TimeProvider.
func (DefaultTimeProvider) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type task struct {
	id        uuid.UUID
	key       string
	payload   any
	onFire    func(any)
	onStopped func(any)
	timer     Timer
}

// Scheduler tracks pending tasks.
type Scheduler struct {
	mu      sync.Mutex
	clock   TimeProvider
	tasks   map[uuid.UUID]*task
	byKey   map[string]uuid.UUID
	stopped bool
}

// New creates a scheduler. A nil clock selects DefaultTimeProvider.
func New(clock TimeProvider) *Scheduler {
	if clock == nil {
		clock = DefaultTimeProvider{}
	}
	return &Scheduler{
		clock: clock,
		tasks: make(map[uuid.UUID]*task),
		byKey: make(map[string]uuid.UUID),
	}
}

// Schedule arms a task that calls onFire(payload) after delay. A non-empty
// key replaces any pending task with the same key; the replaced task's
// onStopped runs before Schedule returns. Either callback may be nil.
func (s *Scheduler) Schedule(key string, delay time.Duration, payload any, onFire, onStopped func(any)) (uuid.UUID, error) {
	t := &task{
		id:        uuid.New(),
		key:       key,
		payload:   payload,
		onFire:    onFire,
		onStopped: onStopped,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return uuid.Nil, ErrSchedulerStopped
	}

	var replaced *task
	if key != "" {
		if prev, ok := s.byKey[key]; ok {
			replaced = s.detachLocked(prev)
		}
		s.byKey[key] = t.id
	}
	s.tasks[t.id] = t
	t.timer = s.clock.AfterFunc(delay, func() { s.fire(t.id) })
	s.mu.Unlock()

	if replaced != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Schedule",
			"key":      key,
			"replaced": replaced.id.String(),
		}).Debug("Replacing pending task")
		replaced.stop()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Schedule",
		"key":      key,
		"delay":    delay,
		"task_id":  t.id.String(),
	}).Debug("Task scheduled")

	return t.id, nil
}

// Cancel stops the task with the given token. It reports whether a pending
// task was found; onStopped runs only in that case.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	t := s.detachLocked(id)
	s.mu.Unlock()

	if t == nil {
		return false
	}
	t.stop()
	return true
}

// CancelKey stops the pending task registered under key, if any.
func (s *Scheduler) CancelKey(key string) bool {
	s.mu.Lock()
	id, ok := s.byKey[key]
	var t *task
	if ok {
		t = s.detachLocked(id)
	}
	s.mu.Unlock()

	if t == nil {
		return false
	}
	t.stop()
	return true
}

// CancelPrefix stops every pending task whose key starts with prefix and
// returns how many were stopped. An empty prefix matches nothing.
func (s *Scheduler) CancelPrefix(prefix string) int {
	if prefix == "" {
		return 0
	}
	s.mu.Lock()
	var pending []*task
	for key, id := range s.byKey {
		if strings.HasPrefix(key, prefix) {
			pending = append(pending, s.detachLocked(id))
		}
	}
	s.mu.Unlock()

	for _, t := range pending {
		t.stop()
	}
	return len(pending)
}

// Stop cancels every pending task and rejects further Schedule calls.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	pending := make([]*task, 0, len(s.tasks))
	for id := range s.tasks {
		pending = append(pending, s.detachLocked(id))
	}
	s.mu.Unlock()

	for _, t := range pending {
		t.stop()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Stop",
		"stopped":  len(pending),
	}).Debug("Scheduler stopped")
}

// Pending returns the number of armed tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Scheduled reports whether a task is pending under key.
func (s *Scheduler) Scheduled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byKey[key]
	return ok
}

func (s *Scheduler) fire(id uuid.UUID) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		s.removeLocked(t)
	}
	s.mu.Unlock()

	// Lost the race against Cancel/Stop/replacement; onStopped already ran.
	if !ok {
		return
	}
	if t.onFire != nil {
		t.onFire(t.payload)
	}
}

func (s *Scheduler) detachLocked(id uuid.UUID) *task {
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	s.removeLocked(t)
	return t
}

func (s *Scheduler) removeLocked(t *task) {
	delete(s.tasks, t.id)
	if t.key != "" && s.byKey[t.key] == t.id {
		delete(s.byKey, t.key)
	}
}

func (t *task) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.onStopped != nil {
		t.onStopped(t.payload)
	}
}
