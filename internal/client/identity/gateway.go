// Package identity is the identity gateway: it drives the OAuth browser
// round trip through a loopback redirect, turns provider tokens into a
// session and tells subscribers when the session changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/docvault/internal/client/task"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/netx"
	"golang.org/x/oauth2"
)

type Event int

const (
	EventSignedIn Event = iota + 1
	EventSignedOut
	EventTokenRefreshed
)

func (e Event) String() string {
	switch e {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventTokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Listener receives session changes; the session is nil after sign-out.
type Listener func(Event, *models.Session)

// LocalState remembers which user was signed in across restarts.
type LocalState interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

const lastUserKey = "session_user"

type Options struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	// RedirectAddr is the loopback host:port the redirect lands on.
	RedirectAddr string
	Scopes       []string
	// Implicit asks the provider for tokens in the redirect instead of a code.
	Implicit bool
}

// SignInResult is a resolved sign-in. Persisted tracks the server-side
// session write, which may still be running when SignIn returns.
type SignInResult struct {
	Session   *models.Session
	Persisted *task.Handle
}

type Gateway struct {
	oauth    oauth2.Config
	implicit bool
	addr     string
	repo     sessions.Repository
	local    LocalState
	log      logging.Logger

	// OpenBrowser shows the provider's sign-in page to the user.
	OpenBrowser func(url string) error

	mu        sync.RWMutex
	current   *models.Session
	listeners map[int]Listener
	nextID    int
}

func New(opts Options, repo sessions.Repository, local LocalState, log logging.Logger) *Gateway {
	g := &Gateway{
		oauth: oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: opts.AuthURL, TokenURL: opts.TokenURL},
			RedirectURL:  "http://" + opts.RedirectAddr + callbackPath,
			Scopes:       opts.Scopes,
		},
		implicit:  opts.Implicit,
		addr:      opts.RedirectAddr,
		repo:      repo,
		local:     local,
		log:       log,
		listeners: map[int]Listener{},
	}
	g.OpenBrowser = func(url string) error {
		g.log.Info(context.Background(), "open this url to sign in", "url", url)
		return nil
	}
	return g
}

// AuthCodeURL is the provider page for state with the configured redirect.
func (g *Gateway) AuthCodeURL(state string) string {
	return authURL(&g.oauth, state, g.implicit)
}

func authURL(cfg *oauth2.Config, state string, implicit bool) string {
	if implicit {
		return cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", "token id_token"),
			oauth2.SetAuthURLParam("nonce", state))
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SignIn runs the browser round trip and resolves its outcome. Cancelling
// ctx aborts the wait with common.ErrSignInCancelled.
func (g *Gateway) SignIn(ctx context.Context) (*SignInResult, error) {
	ln, err := netx.ListenLoopback(g.addr)
	if err != nil {
		return nil, fmt.Errorf("sign-in listener: %w", err)
	}

	state, err := common.MakeRandHexString(common.OAuthStateSize)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	cfg := g.oauth
	cfg.RedirectURL = "http://" + ln.Addr().String() + callbackPath

	results := make(chan CallbackResult, 1)
	srv := &http.Server{Handler: newCallbackRouter(state, results), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error(ctx, "sign-in callback server", "error", err)
		}
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if err := g.OpenBrowser(authURL(&cfg, state, g.implicit)); err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}

	select {
	case res := <-results:
		return g.resolve(ctx, &cfg, res)
	case <-ctx.Done():
		return nil, common.ErrSignInCancelled
	}
}

// Resolve turns a callback into a session with the configured redirect.
func (g *Gateway) Resolve(ctx context.Context, cb CallbackResult) (*SignInResult, error) {
	return g.resolve(ctx, &g.oauth, cb)
}

func (g *Gateway) resolve(ctx context.Context, cfg *oauth2.Config, cb CallbackResult) (*SignInResult, error) {
	switch cb.Type {
	case CallbackCancel, CallbackDismiss:
		return nil, common.ErrSignInCancelled
	case CallbackError:
		g.log.Warn(ctx, "identity provider returned an error", "error", cb.Error)
		return nil, fmt.Errorf("%w: %s", common.ErrProviderResponse, cb.Error)
	}

	switch {
	case cb.AccessToken != "":
		return g.resolveToken(ctx, cb)
	case cb.Code != "":
		return g.resolveCode(ctx, cfg, cb.Code)
	default:
		return nil, common.ErrSignInCancelled
	}
}

// resolveToken decodes the profile locally and persists in the background.
func (g *Gateway) resolveToken(ctx context.Context, cb CallbackResult) (*SignInResult, error) {
	raw := cb.IDToken
	if raw == "" {
		raw = cb.AccessToken
	}
	claims, err := DecodeToken(raw)
	if err != nil {
		g.log.Warn(ctx, "decode identity token", "error", err)
		return nil, err
	}

	s := &models.Session{
		AccessToken:  cb.AccessToken,
		RefreshToken: cb.RefreshToken,
		Expiry:       claims.Expiry(),
		User:         claims.Profile(),
	}
	if cb.ExpiresIn > 0 {
		s.Expiry = time.Now().Add(time.Duration(cb.ExpiresIn) * time.Second)
	}

	g.setSession(s)
	g.emit(EventSignedIn, s)

	persisted := task.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return g.persist(ctx, s)
	})
	return &SignInResult{Session: s, Persisted: persisted}, nil
}

func (g *Gateway) resolveCode(ctx context.Context, cfg *oauth2.Config, code string) (*SignInResult, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		g.log.Error(ctx, "exchange authorization code", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrProviderResponse, err)
	}

	s, err := sessionFromToken(tok, nil)
	if err != nil {
		return nil, err
	}
	if err := g.persist(ctx, s); err != nil {
		return nil, err
	}

	g.setSession(s)
	g.emit(EventSignedIn, s)
	return &SignInResult{Session: s, Persisted: task.Completed(nil)}, nil
}

// sessionFromToken builds a session from a token response. The profile
// comes from id_token, else the access token, else prev.
func sessionFromToken(tok *oauth2.Token, prev *models.Session) (*models.Session, error) {
	s := &models.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if prev != nil {
		s.User = prev.User
		if s.RefreshToken == "" {
			s.RefreshToken = prev.RefreshToken
		}
	}

	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		raw = tok.AccessToken
	}
	claims, err := DecodeToken(raw)
	switch {
	case err == nil:
		s.User = claims.Profile()
	case prev == nil:
		return nil, err
	}
	return s, nil
}

func (g *Gateway) persist(ctx context.Context, s *models.Session) error {
	if err := g.repo.Save(ctx, s); err != nil {
		return err
	}
	if g.local != nil {
		if err := g.local.Set(lastUserKey, []byte(s.User.ID)); err != nil {
			g.log.Warn(ctx, "remember signed-in user", "error", err)
		}
	}
	return nil
}

// CurrentSession returns the in-memory session, restoring the last
// persisted one on first use. (nil, nil) means signed out.
func (g *Gateway) CurrentSession(ctx context.Context) (*models.Session, error) {
	g.mu.RLock()
	s := g.current
	g.mu.RUnlock()
	if s != nil || g.local == nil {
		return s, nil
	}

	id, ok, err := g.local.Get(lastUserKey)
	if err != nil || !ok || len(id) == 0 {
		return nil, err
	}
	s, err = g.repo.Get(ctx, string(id))
	if err != nil || s == nil {
		return nil, err
	}

	g.mu.Lock()
	if g.current == nil {
		g.current = s
	}
	s = g.current
	g.mu.Unlock()
	return s, nil
}

func (g *Gateway) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	s, err := g.CurrentSession(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	u := s.User
	return &u, nil
}

// RefreshSession trades the refresh token for new tokens.
func (g *Gateway) RefreshSession(ctx context.Context) (*models.Session, error) {
	cur, err := g.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, common.ErrNoSession
	}
	if cur.RefreshToken == "" {
		return nil, common.ErrNoRefreshToken
	}

	ts := g.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cur.RefreshToken, Expiry: time.Unix(1, 0)})
	tok, err := ts.Token()
	if err != nil {
		g.log.Error(ctx, "refresh session", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrProviderResponse, err)
	}

	s, err := sessionFromToken(tok, cur)
	if err != nil {
		return nil, err
	}
	if err := g.persist(ctx, s); err != nil {
		g.log.Warn(ctx, "persist refreshed session", "error", err)
	}

	g.setSession(s)
	g.emit(EventTokenRefreshed, s)
	return s, nil
}

// SignOut forgets the session locally and server-side. Remote failures are
// logged; the local sign-out always happens.
func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	cur := g.current
	g.current = nil
	g.mu.Unlock()

	if cur != nil {
		if err := g.repo.Delete(ctx, cur.User.ID); err != nil {
			g.log.Warn(ctx, "delete stored session", "error", err)
		}
	}
	if g.local != nil {
		if err := g.local.Delete(lastUserKey); err != nil {
			g.log.Warn(ctx, "forget signed-in user", "error", err)
		}
	}

	g.emit(EventSignedOut, nil)
	return nil
}

// OnSessionChange registers fn and returns a function removing it.
func (g *Gateway) OnSessionChange(fn Listener) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

func (g *Gateway) setSession(s *models.Session) {
	g.mu.Lock()
	g.current = s
	g.mu.Unlock()
}

func (g *Gateway) emit(e Event, s *models.Session) {
	g.mu.RLock()
	fns := make([]Listener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.RUnlock()

	for _, fn := range fns {
		fn(e, s)
	}
}
