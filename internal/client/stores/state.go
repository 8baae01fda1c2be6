// Package stores holds the in-memory client state observed by screens.
//
// Every store wraps one gateway family. Fetches move the store through
// idle → loading → ready|error, or ready → refreshing → ready|error for a
// reload, and return nothing: a failure is only visible as the store's Err.
// Mutations call the gateway and then apply the returned record to the held
// collection. They report the outcome as the record, or a bool, and leave
// the collection as it was when the gateway fails.
package stores

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/common"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseRefreshing
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseRefreshing:
		return "refreshing"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// Status is the bookkeeping every store carries next to its data.
type Status struct {
	Phase Phase
	// Err is the message of the last failed action, empty after a success.
	Err string
}

func (s Status) Loading() bool    { return s.Phase == PhaseLoading }
func (s Status) Refreshing() bool { return s.Phase == PhaseRefreshing }

// begin moves a store into loading, or refreshing when it already holds data.
func (s *Status) begin() {
	if s.Phase == PhaseReady || s.Phase == PhaseRefreshing {
		s.Phase = PhaseRefreshing
		return
	}
	s.Phase = PhaseLoading
}

func (s *Status) finish(err error) {
	if err != nil {
		s.Phase = PhaseError
		s.Err = errorMessage(err)
		return
	}
	s.Phase = PhaseReady
	s.Err = ""
}

// errorMessage is the text shown for err. Validation messages are already
// meant for the user.
func errorMessage(err error) string {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

// state is a mutex-guarded value with change subscribers. Updates must
// replace slices rather than write into them: snapshots share backing arrays.
type state[T any] struct {
	mu     sync.RWMutex
	v      T
	subs   map[int]func(T)
	nextID int
}

// Snapshot returns the current value.
func (s *state[T]) Snapshot() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

// Subscribe calls fn with the new value after every change and returns a
// function that removes it.
func (s *state[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = map[int]func(T){}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *state[T]) update(fn func(v *T)) {
	s.mu.Lock()
	fn(&s.v)
	v := s.v
	subs := make([]func(T), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(v)
	}
}

func (s *state[T]) set(v T) {
	s.update(func(cur *T) { *cur = v })
}

func (s *Status) status() *Status { return s }

type hasStatus[T any] interface {
	*T
	status() *Status
}

// fail records err without touching the data.
func fail[T any, P hasStatus[T]](s *state[T], err error) {
	s.update(func(v *T) { P(v).status().Err = errorMessage(err) })
}

// succeed applies fn and clears the last error.
func succeed[T any, P hasStatus[T]](s *state[T], fn func(v *T)) {
	s.update(func(v *T) {
		fn(v)
		P(v).status().Err = ""
	})
}

// DuplicateNameError reports a name the owner already uses for the kind.
type DuplicateNameError struct {
	Kind string
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("A %s named %q already exists", e.Kind, e.Name)
}

func (e *DuplicateNameError) Unwrap() error { return common.ErrorDuplicateName }

func lessName(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// upsertSorted returns a new slice with x replacing the element of the same
// id, or added, kept ordered by less.
func upsertSorted[T any](list []T, x T, id func(T) string, less func(a, b T) bool) []T {
	out := make([]T, 0, len(list)+1)
	for _, e := range list {
		if id(e) != id(x) {
			out = append(out, e)
		}
	}
	out = append(out, x)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// without returns a new slice lacking the element with the given id.
func without[T any](list []T, id string, key func(T) string) []T {
	out := make([]T, 0, len(list))
	for _, e := range list {
		if key(e) != id {
			out = append(out, e)
		}
	}
	return out
}

// replaced returns a new slice with the element of x's id swapped for x.
// ok is false when no element matched.
func replaced[T any](list []T, x T, key func(T) string) (out []T, ok bool) {
	out = make([]T, len(list))
	for i, e := range list {
		if key(e) == key(x) {
			e, ok = x, true
		}
		out[i] = e
	}
	return out, ok
}
