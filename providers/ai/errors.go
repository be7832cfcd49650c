package ai

import (
	"errors"
	"strings"
)

// Sentinel errors for the provider failure taxonomy. Provider packages wrap
// upstream HTTP failures with enough of the original status text that
// Classify can sort them into these buckets; callers use errors.Is to branch.
var (
	// ErrUnknownProvider is returned for identifiers outside the closed
	// provider set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrAuth indicates rejected or missing upstream credentials.
	ErrAuth = errors.New("provider authentication failed")

	// ErrQuota indicates the upstream account has insufficient balance or
	// exhausted its quota.
	ErrQuota = errors.New("provider quota exhausted")

	// ErrUnavailable indicates a network or backend failure that is neither
	// an auth nor a quota problem.
	ErrUnavailable = errors.New("provider unavailable")
)

// Classify maps an arbitrary provider error onto the taxonomy above. Errors
// already wrapping a sentinel pass through unchanged; everything else is
// sniffed by status text, matching how the upstream APIs report billing and
// credential problems:
//
//   - "402" / "Insufficient Balance" → ErrQuota
//   - "401" / "Unauthorized" / "invalid_api_key" → ErrAuth
//   - anything else → ErrUnavailable
//
// A nil error classifies to nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrQuota) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrUnknownProvider) {
		return err
	}

	message := err.Error()
	switch {
	case strings.Contains(message, "402"), strings.Contains(message, "Insufficient Balance"):
		return errors.Join(ErrQuota, err)
	case strings.Contains(message, "401"), strings.Contains(message, "Unauthorized"), strings.Contains(message, "invalid_api_key"):
		return errors.Join(ErrAuth, err)
	default:
		return errors.Join(ErrUnavailable, err)
	}
}
