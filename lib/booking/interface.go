package booking

import (
	"context"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IBookingService is the client view of the remote facility-booking service.
//
// Every method blocks until the service answered or the transport gave up.
// A failed business outcome (e.g. unknown facility) is reported as a
// *common.ApplicationError carrying the server's message verbatim, while
// delivery failures are reported as *common.TransportError. The two are
// distinguishable with errors.As.
type IBookingService interface {
	// QueryAvailability returns the free slots of a facility on the given days.
	QueryAvailability(ctx context.Context, facility string, days []time.Time) (slots []TimeSlot, err error)
	// Book reserves [start, end) on a facility and returns the confirmation id.
	Book(ctx context.Context, facility string, start, end time.Time) (confirmationID uint32, err error)
	// ChangeBooking moves an existing booking by offset (whole minutes, may be negative).
	ChangeBooking(ctx context.Context, confirmationID uint32, offset time.Duration) (message string, err error)
	// Monitor registers for updates of a facility for the given interval.
	// The returned channel is closed when the interval ends or ctx is cancelled.
	Monitor(ctx context.Context, facility string, interval time.Duration) (message string, updates <-chan Update, err error)
	// LastBookingTime returns the end of the latest booking of a facility.
	// A zero time means that the facility has no bookings.
	LastBookingTime(ctx context.Context, facility string) (lastEnd time.Time, status string, err error)
	// ExtendBooking extends the end of an existing booking (whole minutes).
	ExtendBooking(ctx context.Context, confirmationID uint32, extension time.Duration) (newEnd time.Time, message string, err error)
}
