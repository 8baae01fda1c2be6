package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/biometric"
	"github.com/dmitrijs2005/docvault/internal/client/config"
	"github.com/dmitrijs2005/docvault/internal/client/identity"
	"github.com/dmitrijs2005/docvault/internal/client/notify"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/docvault/internal/client/securestore"
	"github.com/dmitrijs2005/docvault/internal/client/storage"
	"github.com/dmitrijs2005/docvault/internal/client/stores"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

// Blobs is the part of object storage the screens read from directly.
type Blobs interface {
	AccessURL(ctx context.Context, path string) string
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// Lock is the biometric gate the settings screen toggles.
type Lock interface {
	Enabled(ctx context.Context) bool
	Enable(ctx context.Context) (biometric.Result, error)
	Disable(ctx context.Context) error
	Unlock(ctx context.Context) biometric.Result
}

// Enroller manages the passphrase standing in for a fingerprint.
type Enroller interface {
	IsEnrolled(ctx context.Context) bool
	Enroll(ctx context.Context, passphrase []byte) error
	Unenroll(ctx context.Context) error
}

type App struct {
	config *config.Config
	log    logging.Logger
	root   *stores.Root
	blobs  Blobs
	lock   Lock
	enroll Enroller
	notes  *notify.LocalScheduler

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu        sync.Mutex
	route     Route
	listed    []string
	reminders []string
	lastToast int
	busy      bool

	closers []func() error
}

// NewApp connects every backend named in c and builds the stores over them.
// The returned App owns the connections; call Close when done.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(os.Stderr, c.LogLevel)

	a := &App{
		config: c,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		now:    time.Now,
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	rm := repomanager.NewPostgresRepositoryManager(log)
	if err := rm.RunMigrations(ctx, db); err != nil {
		a.Close()
		return nil, err
	}

	blobs, err := storage.New(ctx, storage.Options{
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		BaseEndpoint:  c.S3BaseEndpoint,
		PublicBaseURL: c.S3PublicBaseURL,
		URLExpiry:     c.SignedURLExpiry,
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	kv, err := securestore.Open(securestore.Options{
		Path: c.SecureStorePath,
		Key:  cryptox.StoreKey(c.SecureStoreKey),
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, kv.Close)

	id := identity.New(identity.Options{
		ClientID:     c.OAuthClientID,
		ClientSecret: c.OAuthClientSecret,
		AuthURL:      c.OAuthAuthURL,
		TokenURL:     c.OAuthTokenURL,
		RedirectAddr: c.OAuthRedirectAddr,
		Scopes:       c.OAuthScopes,
	}, rm.Sessions(db), kv, log)
	id.OpenBrowser = a.openBrowser

	a.notes = notify.NewLocalScheduler(a.onNotification)
	a.closers = append(a.closers, func() error { a.notes.Stop(); return nil })

	pass := biometric.NewPassphraseAuthenticator(kv, a.out)

	a.wire(db, rm, blobs, id, pass, biometric.NewGate(pass, kv, log))
	return a, nil
}

func (a *App) wire(db *sql.DB, rm repomanager.RepositoryManager, blobs *storage.S3Storage, id stores.Identity, enroll Enroller, lock Lock) {
	a.root = stores.NewRoot(stores.Gateways{
		Items:       rm.Items(db),
		Categories:  rm.Categories(db),
		Tags:        rm.Tags(db),
		Attachments: rm.Attachments(db),
		Reminders:   rm.Reminders(db),
		Blobs:       blobs,
		Identity:    id,
		Notifier:    a.notes,
	}, a.log)
	a.root.Items.SetPageSize(a.config.PageSize)
	a.root.UI.SetToastDuration(a.config.ToastDuration)
	a.root.UI.Subscribe(a.onUI)

	a.blobs = blobs
	a.enroll = enroll
	a.lock = lock
}

// Close releases the connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn(context.Background(), "close", "error", err)
		}
	}
	a.closers = nil
}

// Run unlocks the app, restores the session and serves commands until the
// user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("Welcome to docvault (type 'help' for commands)")

	if !a.unlock(ctx) {
		return
	}

	a.root.Auth.Initialize(ctx)
	if st := a.root.Auth.Snapshot(); st.Err != "" {
		a.report(failed(st.Status))
	}
	if a.isLoggedIn() {
		a.report(a.Navigate(ctx, ItemsRoute{}))
	} else {
		printlnFn("You are not signed in. Type 'login' to sign in.")
	}

	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

// unlock runs the biometric gate. A fallback request lets the user through
// to the app's own sign-in.
func (a *App) unlock(ctx context.Context) bool {
	res := a.lock.Unlock(ctx)
	if res.Success {
		return true
	}
	if res.Reason == biometric.ReasonUserFallback {
		printlnFn("Sign in to continue.")
		if !a.root.Auth.SignInWithGoogle(ctx) {
			if st := a.root.Auth.Snapshot(); st.Err != "" {
				a.report(failed(st.Status))
			}
			return false
		}
		return a.isLoggedIn()
	}
	printlnFn(res.Reason.Message())
	return false
}

func (a *App) isLoggedIn() bool {
	return a.root.Auth.Snapshot().IsAuthenticated
}

func (a *App) owner() string {
	return a.root.Auth.OwnerID()
}

func (a *App) status() string {
	st := a.root.Auth.Snapshot()
	if st.User == nil {
		return ""
	}
	name := st.User.Email
	if name == "" {
		name = st.User.Name
	}
	return fmt.Sprintf("(%s)", name)
}

func (a *App) openBrowser(url string) error {
	printlnFn("Open this address in your browser to sign in:")
	printlnFn(url)
	return nil
}

// onNotification prints a due reminder and records it as sent.
func (a *App) onNotification(n notify.Notification) {
	printlnFn(fmt.Sprintf("\n[reminder] %s: %s", n.Title, n.Body))
	owner := a.owner()
	if owner == "" {
		return
	}
	if !a.root.Reminders.MarkSent(context.Background(), owner, n.ReminderID) {
		a.log.Warn(context.Background(), "mark reminder sent", "reminder", n.ReminderID, "error", a.root.Reminders.Snapshot().Err)
	}
}

// onUI prints each toast once and the loading banner when it is raised.
func (a *App) onUI(s stores.UIState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s.Toast != nil && s.Toast.ID != a.lastToast {
		a.lastToast = s.Toast.ID
		printlnFn(toastLine(*s.Toast))
	}
	if s.Loading && !a.busy && s.LoadingMessage != "" {
		printlnFn(s.LoadingMessage + "...")
	}
	a.busy = s.Loading
}

func (a *App) toast(kind stores.ToastKind, msg string) {
	a.root.UI.ShowToast(kind, msg, 0)
}

// report shows err to the user as an error toast.
func (a *App) report(err error) {
	if err == nil {
		return
	}
	a.toast(stores.ToastError, err.Error())
}

// confirm asks through the UI store's dialog and waits for the answer.
func (a *App) confirm(d stores.Dialog) bool {
	ok := false
	d.OnConfirm = func() { ok = true }
	a.root.UI.ShowDialog(d)

	shown := a.root.UI.Snapshot().Dialog
	prompt := fmt.Sprintf("%s\n%s (%s/%s)", shown.Title, shown.Message, shown.ConfirmLabel, shown.CancelLabel)
	yes, err := GetConfirmation(a.reader, prompt, a.out)
	if err != nil || !yes {
		a.root.UI.Cancel()
		return false
	}
	a.root.UI.Confirm()
	return ok
}

// loading raises the loading banner for the duration of fn.
func (a *App) loading(msg string, fn func()) {
	a.root.UI.SetLoading(true, msg)
	defer a.root.UI.SetLoading(false, "")
	fn()
}

// failed turns the message a store recorded for its last action into the
// error the prompt reports.
func failed(st stores.Status) error {
	if st.Err == "" {
		return errors.New("Something went wrong")
	}
	return errors.New(st.Err)
}
