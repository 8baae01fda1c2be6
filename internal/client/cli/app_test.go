package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/biometric"
	"github.com/dmitrijs2005/docvault/internal/client/config"
	"github.com/dmitrijs2005/docvault/internal/client/identity"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/notify"
	"github.com/dmitrijs2005/docvault/internal/client/storage"
	"github.com/dmitrijs2005/docvault/internal/client/stores"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIdentity struct {
	mu       sync.Mutex
	current  *models.Session
	signIn   error
	signOuts int
}

func (s *stubIdentity) SignIn(context.Context) (*identity.SignInResult, error) {
	return nil, s.signIn
}

func (s *stubIdentity) CurrentSession(context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func (s *stubIdentity) RefreshSession(context.Context) (*models.Session, error) {
	return nil, common.ErrNoRefreshToken
}

func (s *stubIdentity) SignOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOuts++
	s.current = nil
	return nil
}

func (s *stubIdentity) OnSessionChange(identity.Listener) func() { return func() {} }

type fakeLock struct {
	enabled bool
	enable  biometric.Result
	unlock  biometric.Result
}

func (f *fakeLock) Enabled(context.Context) bool { return f.enabled }
func (f *fakeLock) Enable(context.Context) (biometric.Result, error) {
	if f.enable.Success {
		f.enabled = true
	}
	return f.enable, nil
}
func (f *fakeLock) Disable(context.Context) error {
	f.enabled = false
	return nil
}
func (f *fakeLock) Unlock(context.Context) biometric.Result { return f.unlock }

type fakeEnroller struct {
	passphrase string
}

func (f *fakeEnroller) IsEnrolled(context.Context) bool { return f.passphrase != "" }
func (f *fakeEnroller) Enroll(_ context.Context, p []byte) error {
	f.passphrase = string(p)
	return nil
}
func (f *fakeEnroller) Unenroll(context.Context) error {
	f.passphrase = ""
	return nil
}

type fakeBlobs struct {
	objects map[string][]byte
	listErr error
}

func (f *fakeBlobs) AccessURL(_ context.Context, path string) string {
	return "https://blobs.example/" + path
}

func (f *fakeBlobs) Download(_ context.Context, path string, w io.Writer) (int64, error) {
	b, ok := f.objects[path]
	if !ok {
		return 0, errors.New("no such object")
	}
	n, err := w.Write(b)
	return int64(n), err
}

func (f *fakeBlobs) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []storage.ObjectInfo
	for p, b := range f.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, storage.ObjectInfo{Path: p, Size: int64(len(b))})
		}
	}
	return out, nil
}

var appNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// newTestApp builds an App over real stores whose data gateways are absent;
// tests only reach the auth, UI and settings paths.
func newTestApp(t *testing.T, id *stubIdentity, input string) (*App, *fakeLock, *fakeEnroller, *[]string) {
	t.Helper()
	out := silence(t)

	lock := &fakeLock{}
	enroll := &fakeEnroller{}
	a := &App{
		config: &config.Config{PageSize: 20, ToastDuration: time.Minute},
		log:    logging.Nop(),
		root:   stores.NewRoot(stores.Gateways{Identity: id}, logging.Nop()),
		blobs:  &fakeBlobs{},
		lock:   lock,
		enroll: enroll,
		notes:  notify.NewLocalScheduler(func(notify.Notification) {}),
		reader: bufio.NewReader(strings.NewReader(input)),
		out:    io.Discard,
		now:    func() time.Time { return appNow },
	}
	a.root.UI.SetToastDuration(a.config.ToastDuration)
	a.root.UI.Subscribe(a.onUI)
	t.Cleanup(func() {
		a.root.UI.Reset()
		a.notes.Stop()
	})
	return a, lock, enroll, out
}

func signedIn() *stubIdentity {
	return &stubIdentity{current: &models.Session{
		AccessToken: "at",
		User:        models.UserProfile{ID: "user-1", Email: "ann@example.com"},
	}}
}

func TestNavigate_RequiresSignIn(t *testing.T) {
	a, _, _, out := newTestApp(t, &stubIdentity{}, "")
	ctx := context.Background()
	a.root.Auth.Initialize(ctx)

	for _, r := range []Route{ItemsRoute{}, ItemDetailRoute{ItemID: "i"}, ItemEditRoute{ItemID: "i"},
		NewItemRoute{}, CategoriesRoute{}, TagsRoute{}, RemindersRoute{}} {
		assert.ErrorIs(t, a.Navigate(ctx, r), errNotSignedIn, r.route())
	}
	assert.Nil(t, a.Route())

	require.NoError(t, a.Navigate(ctx, SettingsRoute{}))
	assert.Equal(t, SettingsRoute{}, a.Route())
	assert.Contains(t, *out, "Account:        not signed in")
	assert.Contains(t, *out, "Biometric lock: off")
	assert.Contains(t, *out, "Notifications:  undetermined")
	assert.Contains(t, *out, "Page size:      20")
}

func TestSettings_ShowsAccountAndStorage(t *testing.T) {
	a, lock, _, out := newTestApp(t, signedIn(), "")
	ctx := context.Background()
	a.root.Auth.Initialize(ctx)
	lock.enabled = true
	a.blobs = &fakeBlobs{objects: map[string][]byte{
		"user-1/item-1/1_a.pdf": make([]byte, 1024),
		"user-1/item-2/2_b.png": make([]byte, 2048),
		"user-2/item-9/3_c.txt": make([]byte, 10),
	}}

	require.NoError(t, a.Settings(ctx))

	assert.Contains(t, *out, "Account:        ann@example.com")
	assert.Contains(t, *out, "Biometric lock: on")
	assert.Contains(t, *out, "Storage:        2 files, 3 KB")

	a.blobs = &fakeBlobs{listErr: errors.New("offline")}
	require.NoError(t, a.Settings(ctx))
	assert.Contains(t, *out, "Storage:        unavailable")
}

func TestSignIn_AlreadySignedIn(t *testing.T) {
	a, _, _, out := newTestApp(t, signedIn(), "")
	ctx := context.Background()
	a.root.Auth.Initialize(ctx)

	require.NoError(t, a.Login(ctx))
	assert.Contains(t, *out, "Already signed in (ann@example.com)")
}

func TestSignIn_CancelledByUser(t *testing.T) {
	a, _, _, out := newTestApp(t, &stubIdentity{signIn: common.ErrSignInCancelled}, "")
	ctx := context.Background()
	a.root.Auth.Initialize(ctx)

	require.NoError(t, a.Login(ctx))
	assert.False(t, a.isLoggedIn())
	assert.Contains(t, *out, "Waiting for sign-in...")
	assert.Contains(t, *out, "Sign-in cancelled.")
	assert.False(t, a.root.UI.Snapshot().Loading)
}

func TestSignIn_FailureReportsStoreError(t *testing.T) {
	a, _, _, out := newTestApp(t, &stubIdentity{signIn: errors.New("token endpoint unreachable")}, "")
	ctx := context.Background()
	a.root.Auth.Initialize(ctx)

	err := a.Login(ctx)
	require.EqualError(t, err, "token endpoint unreachable")
	assert.False(t, a.isLoggedIn())
	assert.NotContains(t, *out, "Sign-in cancelled.")
}

func TestFailed(t *testing.T) {
	assert.EqualError(t, failed(stores.Status{Phase: stores.PhaseError, Err: "Please enter a title"}), "Please enter a title")
	assert.EqualError(t, failed(stores.Status{}), "Something went wrong")
}

func TestLogout_Confirmed(t *testing.T) {
	id := signedIn()
	a, _, _, out := newTestApp(t, id, "y\n")
	ctx := context.Background()
	a.root.Auth.Initialize(ctx)
	require.True(t, a.isLoggedIn())
	a.listed = []string{"item-1"}

	require.NoError(t, a.Logout(ctx))

	assert.Equal(t, 1, id.signOuts)
	assert.False(t, a.isLoggedIn())
	assert.Empty(t, a.owner())
	assert.Nil(t, a.listed)
	assert.Nil(t, a.root.UI.Snapshot().Dialog)
	assert.Contains(t, *out, "• Signed out")
}

func TestLogout_Cancelled(t *testing.T) {
	id := signedIn()
	a, _, _, _ := newTestApp(t, id, "n\n")
	ctx := context.Background()
	a.root.Auth.Initialize(ctx)

	require.NoError(t, a.Logout(ctx))

	assert.Zero(t, id.signOuts)
	assert.True(t, a.isLoggedIn())
	assert.Nil(t, a.root.UI.Snapshot().Dialog)
}

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, io.EOF
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
	t.Cleanup(func() { readPassword = orig })
}

func TestLock_OnEnrollsThenEnables(t *testing.T) {
	a, lock, enroll, out := newTestApp(t, signedIn(), "")
	lock.enable = biometric.Result{Success: true}
	stubPasswords(t, "open sesame", "open sesame")

	require.NoError(t, a.Lock(context.Background(), "on"))

	assert.Equal(t, "open sesame", enroll.passphrase)
	assert.True(t, lock.enabled)
	assert.Contains(t, *out, "✓ Biometric lock enabled")
}

func TestLock_PassphraseMismatch(t *testing.T) {
	a, lock, enroll, _ := newTestApp(t, signedIn(), "")
	stubPasswords(t, "one", "two")

	err := a.Lock(context.Background(), "on")

	assert.EqualError(t, err, "Passphrases do not match")
	assert.Empty(t, enroll.passphrase)
	assert.False(t, lock.enabled)
}

func TestLock_RefusedShowsReason(t *testing.T) {
	a, lock, enroll, _ := newTestApp(t, signedIn(), "")
	enroll.passphrase = "already"
	lock.enable = biometric.Result{Reason: biometric.ReasonNotAvailable}

	err := a.Lock(context.Background(), "on")

	assert.EqualError(t, err, biometric.ReasonNotAvailable.Message())
	assert.False(t, lock.enabled)
}

func TestLock_OffAndStatus(t *testing.T) {
	a, lock, _, out := newTestApp(t, signedIn(), "")
	lock.enabled = true
	ctx := context.Background()

	require.NoError(t, a.Lock(ctx, ""))
	require.NoError(t, a.Lock(ctx, "off"))
	require.NoError(t, a.Lock(ctx, ""))
	assert.Error(t, a.Lock(ctx, "sideways"))

	assert.False(t, lock.enabled)
	assert.Contains(t, *out, "Biometric lock is on")
	assert.Contains(t, *out, "Biometric lock is off")
}

func TestUnlock(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		a, lock, _, _ := newTestApp(t, &stubIdentity{}, "")
		lock.unlock = biometric.Result{Success: true}
		assert.True(t, a.unlock(ctx))
	})

	t.Run("failure shows the reason", func(t *testing.T) {
		a, lock, _, out := newTestApp(t, &stubIdentity{}, "")
		lock.unlock = biometric.Result{Reason: biometric.ReasonLockout}
		assert.False(t, a.unlock(ctx))
		assert.Contains(t, *out, biometric.ReasonLockout.Message())
	})

	t.Run("fallback cancelled", func(t *testing.T) {
		a, lock, _, _ := newTestApp(t, &stubIdentity{signIn: common.ErrSignInCancelled}, "")
		lock.unlock = biometric.Result{Reason: biometric.ReasonUserFallback}
		assert.False(t, a.unlock(ctx))
	})
}

func TestOnUI_PrintsEachToastOnce(t *testing.T) {
	a, _, _, out := newTestApp(t, &stubIdentity{}, "")

	a.toast(stores.ToastSuccess, "Saved")
	a.root.UI.SetLoading(true, "Uploading")
	a.root.UI.SetLoading(true, "Uploading")
	a.root.UI.SetLoading(false, "")
	a.report(nil)
	a.report(assert.AnError)

	var toasts, banners int
	for _, l := range *out {
		switch l {
		case "✓ Saved":
			toasts++
		case "Uploading...":
			banners++
		}
	}
	assert.Equal(t, 1, toasts)
	assert.Equal(t, 1, banners)
	assert.Contains(t, *out, "✗ "+assert.AnError.Error())
}

func TestResolveItem(t *testing.T) {
	a, _, _, _ := newTestApp(t, &stubIdentity{}, "")
	a.listed = []string{"id-a", "id-b"}

	got, err := a.resolveItem("2")
	require.NoError(t, err)
	assert.Equal(t, "id-b", got)

	got, err = a.resolveItem("0b4f6c1e-raw-id")
	require.NoError(t, err)
	assert.Equal(t, "0b4f6c1e-raw-id", got)

	_, err = a.resolveItem("7")
	assert.Error(t, err)
	_, err = a.resolveItem("")
	assert.Error(t, err)
}

func TestUnremind_NeedsListedNumber(t *testing.T) {
	a, _, _, _ := newTestApp(t, signedIn(), "")
	assert.Error(t, a.Unremind(context.Background(), "1"))
}
