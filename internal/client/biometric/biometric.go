// Package biometric gates the app behind a device user-presence check and
// remembers whether the gate is on in the secure store.
package biometric

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

// Reason names why an authentication did not succeed.
type Reason string

const (
	ReasonUserCancel   Reason = "user_cancel"
	ReasonUserFallback Reason = "user_fallback"
	ReasonLockout      Reason = "lockout"
	ReasonNotAvailable Reason = "not_available"
	ReasonNotEnrolled  Reason = "not_enrolled"
	ReasonFailed       Reason = "authentication_failed"
)

// Message is the text shown to the user for r.
func (r Reason) Message() string {
	switch r {
	case ReasonUserCancel:
		return "Authentication was cancelled"
	case ReasonUserFallback:
		return "Fallback authentication was chosen"
	case ReasonLockout:
		return "Too many failed attempts. Try again later"
	case ReasonNotAvailable:
		return "Biometric authentication is not available on this device"
	case ReasonNotEnrolled:
		return "No biometric credentials are enrolled on this device"
	case "":
		return ""
	default:
		return "Authentication failed"
	}
}

type Result struct {
	Success bool
	Reason  Reason
}

// Authenticator is the device sensor.
type Authenticator interface {
	HasHardware(ctx context.Context) bool
	IsEnrolled(ctx context.Context) bool
	Authenticate(ctx context.Context, prompt string) Result
}

// KV is the secure storage the gate and the passphrase authenticator use.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	GetBool(key string) (bool, error)
	SetBool(key string, v bool) error
}

type Gate struct {
	auth Authenticator
	kv   KV
	log  logging.Logger
}

func NewGate(auth Authenticator, kv KV, log logging.Logger) *Gate {
	return &Gate{auth: auth, kv: kv, log: log}
}

// Enabled reports the stored flag; read failures count as disabled.
func (g *Gate) Enabled(ctx context.Context) bool {
	on, err := g.kv.GetBool(common.BiometricEnabledKey)
	if err != nil {
		g.log.Warn(ctx, "read biometric flag", "error", err)
		return false
	}
	return on
}

// Enable checks hardware and enrollment, asks the user to authenticate and
// only then persists the flag.
func (g *Gate) Enable(ctx context.Context) (Result, error) {
	if !g.auth.HasHardware(ctx) {
		return Result{Reason: ReasonNotAvailable}, nil
	}
	if !g.auth.IsEnrolled(ctx) {
		return Result{Reason: ReasonNotEnrolled}, nil
	}

	res := g.auth.Authenticate(ctx, "Authenticate to enable biometric lock")
	if !res.Success {
		g.log.Info(ctx, "biometric enable refused", "reason", string(res.Reason))
		return res, nil
	}
	if err := g.kv.SetBool(common.BiometricEnabledKey, true); err != nil {
		return Result{}, fmt.Errorf("enable biometric lock: %w", err)
	}
	return res, nil
}

func (g *Gate) Disable(ctx context.Context) error {
	if err := g.kv.SetBool(common.BiometricEnabledKey, false); err != nil {
		return fmt.Errorf("disable biometric lock: %w", err)
	}
	return nil
}

// Unlock authenticates when the gate is on and succeeds right away when it
// is off.
func (g *Gate) Unlock(ctx context.Context) Result {
	if !g.Enabled(ctx) {
		return Result{Success: true}
	}
	if !g.auth.HasHardware(ctx) {
		return Result{Reason: ReasonNotAvailable}
	}
	return g.auth.Authenticate(ctx, "Unlock docvault")
}
