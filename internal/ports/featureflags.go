package ports

import (
	"context"
)

// Flag names understood by the quote core.
const (
	// FlagRemotePush gates the push pass of a sync run. When off, unmatched
	// local quotes are still counted but nothing is sent.
	FlagRemotePush = "remote_push"

	// FlagLastViewed gates recording the last displayed quote in the session store.
	FlagLastViewed = "remember_last_viewed"
)

// FeatureFlags evaluates boolean toggles without exposing where they come from.
//
// Example usage:
//
//	if s.flags.IsEnabled(ctx, ports.FlagRemotePush, true) {
//	    s.pusher.Go(ctx, q)
//	}
type FeatureFlags interface {
	// IsEnabled reports whether flag is on.
	// Returns defaultValue if the flag is unknown.
	IsEnabled(ctx context.Context, flag string, defaultValue bool) bool
}

// StaticFlags is a FeatureFlags backed by a fixed map, loaded from the config "features" section.
type StaticFlags map[string]bool

// IsEnabled implements FeatureFlags.
func (f StaticFlags) IsEnabled(_ context.Context, flag string, defaultValue bool) bool {
	if v, ok := f[flag]; ok {
		return v
	}

	return defaultValue
}
