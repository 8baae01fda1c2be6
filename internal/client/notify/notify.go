// Package notify schedules local reminder notifications.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/google/uuid"
)

// ErrInPast is returned when a notification time has already passed.
var ErrInPast = errors.New("notification time is in the past")

type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

type Notification struct {
	ID         string
	ReminderID string
	ItemID     string
	Title      string
	Body       string
	At         time.Time
}

type Scheduler interface {
	Permission(ctx context.Context) Permission
	RequestPermission(ctx context.Context) Permission
	// Schedule returns the id to cancel the notification with.
	Schedule(ctx context.Context, n Notification) (string, error)
	Cancel(ctx context.Context, id string) error
}

// LocalScheduler fires notifications from in-process timers and hands
// them to a handler. Pending notifications do not survive a restart.
type LocalScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	handler func(Notification)
	perm    Permission
	now     func() time.Time
}

// NewLocalScheduler starts with permission undetermined; the first
// RequestPermission grants it.
func NewLocalScheduler(handler func(Notification)) *LocalScheduler {
	return &LocalScheduler{
		timers:  map[string]*time.Timer{},
		handler: handler,
		now:     time.Now,
	}
}

func (s *LocalScheduler) Permission(ctx context.Context) Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perm
}

func (s *LocalScheduler) RequestPermission(ctx context.Context) Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.perm == PermissionUndetermined {
		s.perm = PermissionGranted
	}
	return s.perm
}

// SetPermission overrides the permission, e.g. when the user opts out.
func (s *LocalScheduler) SetPermission(p Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perm = p
	if p == PermissionDenied {
		for id, t := range s.timers {
			t.Stop()
			delete(s.timers, id)
		}
	}
}

func (s *LocalScheduler) Schedule(ctx context.Context, n Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.perm != PermissionGranted {
		return "", common.ErrPermissionDenied
	}
	delay := n.At.Sub(s.now())
	if delay <= 0 {
		return "", ErrInPast
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if old, ok := s.timers[n.ID]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() { s.fire(n, &t) })
	s.timers[n.ID] = t
	return n.ID, nil
}

// fire delivers n unless its timer was cancelled or replaced meanwhile.
func (s *LocalScheduler) fire(n Notification, self **time.Timer) {
	s.mu.Lock()
	pending := s.timers[n.ID] == *self
	if pending {
		delete(s.timers, n.ID)
	}
	handler := s.handler
	s.mu.Unlock()

	if pending && handler != nil {
		handler(n)
	}
}

// Cancel stops a pending notification; unknown ids are ignored.
func (s *LocalScheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	return nil
}

// Pending is the number of scheduled, unfired notifications.
func (s *LocalScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels everything.
func (s *LocalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
