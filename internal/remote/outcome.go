// Package remote declares what the device-side application needs from the
// remote recipe store, and the Outcome type returned by best-effort calls.
package remote

import (
	"fmt"
)

// Status tells whether a best-effort remote write is known to have landed.
type Status string

const (
	// Committed means the remote store acknowledged the write.
	Committed Status = "committed"
	// Unconfirmed means the write was attempted but failed or could not be
	// acknowledged. The local store remains authoritative.
	Unconfirmed Status = "unconfirmed"
	// Skipped means no remote write was attempted, e.g. nothing to do.
	Skipped Status = "skipped"
)

// Outcome is the result of a best-effort remote write.
type Outcome struct {
	Status   Status
	Affected int
	Err      error
}

// Done returns a committed outcome that touched n records.
func Done(n int) Outcome {
	return Outcome{Status: Committed, Affected: n}
}

// Failed returns an unconfirmed outcome carrying err.
func Failed(err error) Outcome {
	return Outcome{Status: Unconfirmed, Err: err}
}

// Committed reports whether the write was acknowledged.
func (o Outcome) Committed() bool {
	return o.Status == Committed
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s (%d): %v", o.Status, o.Affected, o.Err)
	}
	return fmt.Sprintf("%s (%d)", o.Status, o.Affected)
}
