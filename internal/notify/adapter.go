// Package notify defines the uniform outbound-channel contract both
// delivery adapters (push, email) implement, the tagged-variant
// replacement for the Python source's Notifier protocol (spec.md §9's
// Design Notes).
package notify

import (
	"context"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
)

// ChannelAdapter sends opening notifications and admin test pings
// over one delivery medium. Implementations own their own pooled HTTP
// client and never retry internally — retry is the dispatcher's job.
type ChannelAdapter interface {
	// Channel identifies which medium this adapter implements.
	Channel() domain.Channel
	// SendOpening notifies user that event just opened for enrollment.
	SendOpening(ctx context.Context, user domain.UserProfile, event domain.Event) (ok bool, detail string, err error)
	// SendTest sends a synthetic notification for admin verification.
	SendTest(ctx context.Context, user domain.UserProfile) (ok bool, detail string, err error)
}
