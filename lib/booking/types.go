package booking

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Time Slots
// --------------------------------------------------------------------------

// TimeSlot is a half-open interval [Start, End) of wall-clock time.
// On the wire both bounds are encoded as unsigned 32-bit Unix seconds.
type TimeSlot struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Duration returns the length of the slot
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// String returns a compact representation of the slot
func (s TimeSlot) String() string {
	return fmt.Sprintf("%s - %s", s.Start.Format(time.DateTime), s.End.Format(time.DateTime))
}

// --------------------------------------------------------------------------
// Monitor Updates
// --------------------------------------------------------------------------

// Operation identifies which booking operation triggered a monitor update.
type Operation uint8

const (
	OpUnknown Operation = iota
	OpBook              // A new booking was created
	OpChange            // An existing booking was moved
	OpExtend            // An existing booking was extended
)

// String returns the string representation of an Operation.
func (o Operation) String() string {
	switch o {
	case OpBook:
		return "book"
	case OpChange:
		return "change"
	case OpExtend:
		return "extend"
	default:
		return "unknown"
	}
}

// HasPrevious reports whether updates for this operation carry the slot the
// booking occupied before the operation.
func (o Operation) HasPrevious() bool {
	return o == OpChange || o == OpExtend
}

// Update is a server-initiated notification about a booking change on a
// monitored facility.
type Update struct {
	Message        string    `json:"message" yaml:"message"`
	Op             Operation `json:"op" yaml:"op"`
	ConfirmationID uint32    `json:"confirmation_id" yaml:"confirmation_id"`
	Slot           TimeSlot  `json:"slot" yaml:"slot"`
	// Previous is only set for OpChange and OpExtend
	Previous *TimeSlot `json:"previous,omitempty" yaml:"previous,omitempty"`
}

// Key returns the identity used to detect duplicate deliveries of the same update
func (u Update) Key() string {
	return fmt.Sprintf("%d/%d/%d/%d", u.ConfirmationID, u.Op, u.Slot.Start.Unix(), u.Slot.End.Unix())
}
