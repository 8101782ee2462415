package file

import (
	"fmt"
	"time"

	"github.com/opd-ai/sbdt/limits"
	"github.com/opd-ai/sbdt/transport"
)

// Policy decides how new transfers and finalize requests are answered.
type Policy struct {
	// Action answers transfer requests that could be allocated.
	Action transport.Action
	// RejectReason accompanies policy and allocation rejections.
	RejectReason transport.RejectReason
	// FinalizeStatus is reported for finalize requests.
	FinalizeStatus transport.FinalStatus
	// FinalizeDelay is applied in whole seconds.
	FinalizeDelay time.Duration
	// ReleaseDelay is applied in whole milliseconds.
	ReleaseDelay time.Duration
}

// DefaultPolicy accepts everything and acknowledges finalize requests with
// SUCCESS after one second. Data buffers go back to the core after 30 ms.
func DefaultPolicy() Policy {
	return Policy{
		Action:         transport.ActionAccept,
		RejectReason:   transport.RejectReasonGeneric,
		FinalizeStatus: transport.FinalStatusSuccess,
		FinalizeDelay:  time.Second,
		ReleaseDelay:   30 * time.Millisecond,
	}
}

// Validate checks that every field is in range.
func (p Policy) Validate() error {
	if p.Action != transport.ActionAccept && p.Action != transport.ActionReject {
		return fmt.Errorf("invalid action %d", p.Action)
	}
	if !p.RejectReason.Valid() {
		return fmt.Errorf("invalid reject reason %s", p.RejectReason)
	}
	if p.FinalizeStatus != transport.FinalStatusSuccess && p.FinalizeStatus != transport.FinalStatusFailure {
		return fmt.Errorf("invalid finalize status %d", p.FinalizeStatus)
	}
	if p.FinalizeDelay < 0 || p.FinalizeDelay > limits.MaxFinalizeDelaySeconds*time.Second {
		return fmt.Errorf("finalize delay %s out of range", p.FinalizeDelay)
	}
	if p.ReleaseDelay < 0 || p.ReleaseDelay > limits.MaxReleaseDelayMillis*time.Millisecond {
		return fmt.Errorf("release delay %s out of range", p.ReleaseDelay)
	}
	return nil
}

// finalizeDelay truncates to whole seconds.
func (p Policy) finalizeDelay() time.Duration {
	return p.FinalizeDelay.Truncate(time.Second)
}

// releaseDelay truncates to whole milliseconds.
func (p Policy) releaseDelay() time.Duration {
	return p.ReleaseDelay.Truncate(time.Millisecond)
}
