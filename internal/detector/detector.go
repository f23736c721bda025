// Package detector classifies one poll's pre- and post-snapshots into
// a lifecycle transition. It is a pure function package: no I/O, no
// stored state, fully covered by table tests in the style of the
// teacher's scheduler_unit_test.go.
package detector

import "github.com/cyprienbrisset/ffemonitor/internal/domain"

// Transition is the outcome of comparing an event's prior recorded
// status against its freshly-scraped snapshot.
type Transition string

const (
	// NoChange: nothing the dispatcher cares about happened.
	NoChange Transition = "no_change"
	// StatusChanged: the status string moved but the event did not
	// newly become open for enrollment.
	StatusChanged Transition = "status_changed"
	// Opened: the event is now open for enrollment and wasn't before.
	// This is the only transition that drives notifications.
	Opened Transition = "opened"
)

// Classify compares preStatus (the event's status as last recorded by
// the repository) against post (the freshly scraped snapshot) and
// returns the resulting Transition. Opened fires only on the genuine
// closed->open edge: once preStatus is already engagement or demande,
// repeated polls classify as NoChange, making opening detection
// idempotent across ticks.
func Classify(preStatus domain.Status, post domain.Snapshot) Transition {
	if post.IsOpen && !domain.IsOpenStatus(preStatus) {
		return Opened
	}
	if post.Status != "" && post.Status != preStatus {
		return StatusChanged
	}
	return NoChange
}
