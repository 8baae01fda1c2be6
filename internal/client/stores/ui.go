package stores

import (
	"sync"
	"time"
)

// Dialog asks the user to confirm an action.
type Dialog struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
	Destructive  bool
	OnConfirm    func()
	OnCancel     func()
}

type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastSuccess
	ToastError
)

type Toast struct {
	ID      int
	Kind    ToastKind
	Message string
}

// Sheet is a bottom sheet of choices.
type Sheet struct {
	ID      int
	Title   string
	Options []string
}

const (
	DefaultToastDuration = 3 * time.Second
	DefaultSheetDuration = 30 * time.Second
)

type UIState struct {
	Dialog         *Dialog
	Loading        bool
	LoadingMessage string
	Toast          *Toast
	Sheet          *Sheet

	// ids of the newest toast and sheet published
	toastSeq, sheetSeq int
}

// UIStore holds transient view state. Toasts and sheets hide themselves
// after their duration.
type UIStore struct {
	st state[UIState]

	mu         sync.Mutex
	nextID     int
	toastT     *time.Timer
	sheetT     *time.Timer
	toastArmed int
	sheetArmed int
	toastLife  time.Duration
}

func NewUIStore() *UIStore { return &UIStore{toastLife: DefaultToastDuration} }

// SetToastDuration changes the lifetime of toasts shown without one.
func (s *UIStore) SetToastDuration(d time.Duration) {
	if d > 0 {
		s.mu.Lock()
		s.toastLife = d
		s.mu.Unlock()
	}
}

func (s *UIStore) Snapshot() UIState { return s.st.Snapshot() }

func (s *UIStore) Subscribe(fn func(UIState)) func() { return s.st.Subscribe(fn) }

func (s *UIStore) ShowDialog(d Dialog) {
	if d.ConfirmLabel == "" {
		d.ConfirmLabel = "Confirm"
	}
	if d.CancelLabel == "" {
		d.CancelLabel = "Cancel"
	}
	s.st.update(func(v *UIState) { v.Dialog = &d })
}

// Confirm closes the dialog and runs its confirm callback.
func (s *UIStore) Confirm() {
	if d := s.takeDialog(); d != nil && d.OnConfirm != nil {
		d.OnConfirm()
	}
}

// Cancel closes the dialog and runs its cancel callback.
func (s *UIStore) Cancel() {
	if d := s.takeDialog(); d != nil && d.OnCancel != nil {
		d.OnCancel()
	}
}

func (s *UIStore) takeDialog() *Dialog {
	var d *Dialog
	s.st.update(func(v *UIState) {
		d = v.Dialog
		v.Dialog = nil
	})
	return d
}

func (s *UIStore) SetLoading(loading bool, message string) {
	s.st.update(func(v *UIState) {
		v.Loading = loading
		v.LoadingMessage = ""
		if loading {
			v.LoadingMessage = message
		}
	})
}

// ShowToast replaces any visible toast; d <= 0 means the store's default.
// The toast is published before its expiry timer starts.
func (s *UIStore) ShowToast(kind ToastKind, message string, d time.Duration) int {
	s.mu.Lock()
	if d <= 0 {
		d = s.toastLife
	}
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	shown := false
	s.st.update(func(v *UIState) {
		if id < v.toastSeq {
			return
		}
		v.toastSeq = id
		v.Toast = &Toast{ID: id, Kind: kind, Message: message}
		shown = true
	})
	if shown {
		s.arm(&s.toastT, &s.toastArmed, id, d, func() { s.hideToast(id) })
	}
	return id
}

// arm replaces *t with a timer running fn after d, unless a newer id has
// armed it already.
func (s *UIStore) arm(t **time.Timer, armed *int, id int, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < *armed {
		return
	}
	if *t != nil {
		(*t).Stop()
	}
	*armed = id
	*t = time.AfterFunc(d, fn)
}

func (s *UIStore) HideToast() {
	s.mu.Lock()
	if s.toastT != nil {
		s.toastT.Stop()
		s.toastT = nil
	}
	s.mu.Unlock()
	s.st.update(func(v *UIState) { v.Toast = nil })
}

// hideToast clears the toast only if it is still the one with id.
func (s *UIStore) hideToast(id int) {
	s.st.update(func(v *UIState) {
		if v.Toast != nil && v.Toast.ID == id {
			v.Toast = nil
		}
	})
}

// ShowSheet replaces any open sheet; d <= 0 means DefaultSheetDuration.
func (s *UIStore) ShowSheet(title string, options []string, d time.Duration) int {
	if d <= 0 {
		d = DefaultSheetDuration
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	shown := false
	s.st.update(func(v *UIState) {
		if id < v.sheetSeq {
			return
		}
		v.sheetSeq = id
		v.Sheet = &Sheet{ID: id, Title: title, Options: append([]string(nil), options...)}
		shown = true
	})
	if shown {
		s.arm(&s.sheetT, &s.sheetArmed, id, d, func() {
			s.st.update(func(v *UIState) {
				if v.Sheet != nil && v.Sheet.ID == id {
					v.Sheet = nil
				}
			})
		})
	}
	return id
}

func (s *UIStore) HideSheet() {
	s.mu.Lock()
	if s.sheetT != nil {
		s.sheetT.Stop()
		s.sheetT = nil
	}
	s.mu.Unlock()
	s.st.update(func(v *UIState) { v.Sheet = nil })
}

// Reset stops the timers and clears everything.
func (s *UIStore) Reset() {
	s.mu.Lock()
	for _, t := range []*time.Timer{s.toastT, s.sheetT} {
		if t != nil {
			t.Stop()
		}
	}
	s.toastT, s.sheetT = nil, nil
	s.mu.Unlock()
	s.st.set(UIState{})
}
