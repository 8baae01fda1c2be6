package stores

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/client/identity"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/task"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

// Identity is the identity gateway as seen by the auth store.
type Identity interface {
	SignIn(ctx context.Context) (*identity.SignInResult, error)
	CurrentSession(ctx context.Context) (*models.Session, error)
	RefreshSession(ctx context.Context) (*models.Session, error)
	SignOut(ctx context.Context) error
	OnSessionChange(fn identity.Listener) func()
}

type AuthState struct {
	Status
	Session         *models.Session
	User            *models.UserProfile
	IsAuthenticated bool
	Initialized     bool
}

type AuthStore struct {
	st   state[AuthState]
	id   Identity
	log  logging.Logger
	once sync.Once

	mu          sync.Mutex
	persistence *task.Handle
	onSignedOut func()
}

func NewAuthStore(id Identity, log logging.Logger) *AuthStore {
	return &AuthStore{id: id, log: log.With("store", "auth")}
}

func (s *AuthStore) Snapshot() AuthState { return s.st.Snapshot() }

func (s *AuthStore) Subscribe(fn func(AuthState)) func() { return s.st.Subscribe(fn) }

// OwnerID is the signed-in user's id, empty when signed out.
func (s *AuthStore) OwnerID() string {
	if u := s.Snapshot().User; u != nil {
		return u.ID
	}
	return ""
}

// Initialize restores an existing session and follows the gateway's
// session events from then on. Only the first call does anything.
func (s *AuthStore) Initialize(ctx context.Context) {
	s.once.Do(func() {
		s.id.OnSessionChange(s.onSessionChange)

		s.st.update(func(v *AuthState) { v.begin() })
		sess, err := s.id.CurrentSession(ctx)
		if err != nil {
			s.log.Error(ctx, "restore session", "error", err)
		}
		s.st.update(func(v *AuthState) {
			if err == nil {
				setSession(v, sess)
			}
			v.Initialized = true
			v.finish(err)
		})
	})
}

// onSessionChange follows the gateway. A sign-out it reports, whoever
// started it, drops the user's data like SignOut does.
func (s *AuthStore) onSessionChange(e identity.Event, sess *models.Session) {
	s.log.Debug(context.Background(), "session event", "event", e.String())
	if e == identity.EventSignedOut {
		s.signedOut()
		return
	}
	s.st.update(func(v *AuthState) { setSession(v, sess) })
}

// signedOut clears the session and the data held for the user. Running it
// twice for one sign-out is harmless.
func (s *AuthStore) signedOut() {
	succeed(&s.st, func(v *AuthState) { setSession(v, nil) })

	s.mu.Lock()
	fn := s.onSignedOut
	s.persistence = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func setSession(v *AuthState, sess *models.Session) {
	v.Session = sess
	v.IsAuthenticated = sess != nil
	v.User = nil
	if sess != nil {
		u := sess.User
		v.User = &u
	}
}

// SignInWithGoogle runs the browser sign-in. The store is authenticated as
// soon as the identity is resolved; the server-side session write may
// still be running and is tracked by Persistence. A user who backs out
// leaves ok false with no error recorded.
func (s *AuthStore) SignInWithGoogle(ctx context.Context) (ok bool) {
	s.st.update(func(v *AuthState) { v.begin() })

	res, err := s.id.SignIn(ctx)
	if errors.Is(err, common.ErrSignInCancelled) {
		s.log.Info(ctx, "sign-in cancelled")
		s.st.update(func(v *AuthState) { v.finish(nil) })
		return false
	}
	if err != nil {
		s.log.Error(ctx, "sign in", "error", err)
		s.st.update(func(v *AuthState) { v.finish(err) })
		return false
	}

	s.mu.Lock()
	s.persistence = res.Persisted
	s.mu.Unlock()

	s.st.update(func(v *AuthState) {
		setSession(v, res.Session)
		v.finish(nil)
	})
	s.log.Info(ctx, "signed in", "user", res.Session.User.ID)
	return true
}

// Persistence tracks the session write of the last sign-in. It is nil
// before any sign-in.
func (s *AuthStore) Persistence() *task.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistence
}

func (s *AuthStore) Refresh(ctx context.Context) bool {
	sess, err := s.id.RefreshSession(ctx)
	if err != nil {
		s.log.Error(ctx, "refresh session", "error", err)
		fail(&s.st, err)
		return false
	}
	succeed(&s.st, func(v *AuthState) { setSession(v, sess) })
	return true
}

// SignOut ends the session and clears the data held for the user.
func (s *AuthStore) SignOut(ctx context.Context) bool {
	if err := s.id.SignOut(ctx); err != nil {
		s.log.Error(ctx, "sign out", "error", err)
		fail(&s.st, err)
		return false
	}
	s.signedOut()
	return true
}

// Reset forgets the held session without signing out. The gateway
// subscription stays.
func (s *AuthStore) Reset() {
	s.mu.Lock()
	s.persistence = nil
	s.mu.Unlock()
	s.st.update(func(v *AuthState) {
		initialized := v.Initialized
		*v = AuthState{Initialized: initialized}
	})
}
