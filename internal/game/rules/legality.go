package rules

import (
	"errors"
	"fmt"
)

// ErrIllegalIntent marks errors for intents the engine rejected without
// changing state: wrong actor, untargetable card or lane, or an action type
// mismatch. Callers re-prompt; nothing was applied.
var ErrIllegalIntent = errors.New("illegal intent")

// IllegalIntentError carries the rejection reason and diagnostic details.
type IllegalIntentError struct {
	Reason  string
	Details map[string]string
}

func (e *IllegalIntentError) Error() string {
	return fmt.Sprintf("illegal intent: %s", e.Reason)
}

// Unwrap lets errors.Is(err, ErrIllegalIntent) identify rejections.
func (e *IllegalIntentError) Unwrap() error { return ErrIllegalIntent }

// Illegal builds an IllegalIntentError from a reason and key/value detail
// pairs.
func Illegal(reason string, kv ...string) *IllegalIntentError {
	details := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		details[kv[i]] = kv[i+1]
	}
	return &IllegalIntentError{Reason: reason, Details: details}
}

// LegalityResult reports the outcome of a playability or targetability
// check, with a reason suitable for surfacing to a UI.
type LegalityResult struct {
	Legal   bool
	Reason  string
	Details map[string]string
}

// LegalResult is the passing check result.
func LegalResult() LegalityResult {
	return LegalityResult{Legal: true}
}

// IllegalResult builds a failing check result.
func IllegalResult(reason string, kv ...string) LegalityResult {
	details := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		details[kv[i]] = kv[i+1]
	}
	return LegalityResult{Legal: false, Reason: reason, Details: details}
}
