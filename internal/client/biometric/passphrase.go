package biometric

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"golang.org/x/term"
)

const (
	saltKey     = "passphrase_salt"
	verifierKey = "passphrase_verifier"

	// MaxAttempts failed attempts in a row lock the authenticator for
	// LockoutDuration.
	MaxAttempts     = 5
	LockoutDuration = 30 * time.Second
)

// fallbackInput switches to the app's own sign-in instead of the passphrase.
var fallbackInput = []byte("?")

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// PassphraseAuthenticator stands in for a biometric sensor on a terminal:
// the user proves presence with a local passphrase whose argon2 verifier
// lives in the secure store.
type PassphraseAuthenticator struct {
	kv  KV
	out io.Writer
	fd  int
	now func() time.Time

	mu          sync.Mutex
	failures    int
	lockedUntil time.Time
}

func NewPassphraseAuthenticator(kv KV, out io.Writer) *PassphraseAuthenticator {
	return &PassphraseAuthenticator{kv: kv, out: out, fd: int(os.Stdin.Fd()), now: time.Now}
}

func (a *PassphraseAuthenticator) HasHardware(ctx context.Context) bool {
	return isTerminal(a.fd)
}

func (a *PassphraseAuthenticator) IsEnrolled(ctx context.Context) bool {
	_, ok, err := a.kv.Get(verifierKey)
	return err == nil && ok
}

// Enroll stores a verifier for passphrase, replacing any previous one.
func (a *PassphraseAuthenticator) Enroll(ctx context.Context, passphrase []byte) error {
	if len(bytes.TrimSpace(passphrase)) == 0 {
		return fmt.Errorf("passphrase: %w", common.ErrorValidation)
	}
	salt := cryptox.NewSalt()
	key := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)

	if err := a.kv.Set(saltKey, salt); err != nil {
		return err
	}
	return a.kv.Set(verifierKey, cryptox.MakeVerifier(key))
}

// Unenroll forgets the passphrase.
func (a *PassphraseAuthenticator) Unenroll(ctx context.Context) error {
	if err := a.kv.Delete(verifierKey); err != nil {
		return err
	}
	return a.kv.Delete(saltKey)
}

// Authenticate prompts for the passphrase. An empty answer cancels and "?"
// chooses the fallback.
func (a *PassphraseAuthenticator) Authenticate(ctx context.Context, prompt string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.now().Before(a.lockedUntil) {
		return Result{Reason: ReasonLockout}
	}
	if !a.HasHardware(ctx) {
		return Result{Reason: ReasonNotAvailable}
	}
	salt, okSalt, err1 := a.kv.Get(saltKey)
	verifier, okVer, err2 := a.kv.Get(verifierKey)
	if err1 != nil || err2 != nil || !okSalt || !okVer {
		return Result{Reason: ReasonNotEnrolled}
	}

	fmt.Fprintf(a.out, "%s\nPassphrase (empty to cancel, ? for fallback): ", prompt)
	pw, err := readPassword(a.fd)
	fmt.Fprintln(a.out)
	defer common.WipeByteArray(pw)
	if err != nil {
		return Result{Reason: ReasonUserCancel}
	}

	switch {
	case len(pw) == 0:
		return Result{Reason: ReasonUserCancel}
	case bytes.Equal(pw, fallbackInput):
		return Result{Reason: ReasonUserFallback}
	case cryptox.CheckPassword(pw, salt, verifier):
		a.failures = 0
		return Result{Success: true}
	}

	a.failures++
	if a.failures >= MaxAttempts {
		a.failures = 0
		a.lockedUntil = a.now().Add(LockoutDuration)
		return Result{Reason: ReasonLockout}
	}
	return Result{Reason: ReasonFailed}
}
