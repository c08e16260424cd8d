package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/fbook/lib/booking"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/ValentinKolb/fbook/rpc/transport"
	"math"
	"time"
)

// FacilityClient implements booking.IBookingService over an RPC transport
type FacilityClient struct {
	rpcClientAdapter
}

var _ booking.IBookingService = (*FacilityClient)(nil)

// NewFacilityClient connects the transport and creates a client for the server in config
func NewFacilityClient(config common.ClientConfig, transport transport.IRPCClientTransport) (*FacilityClient, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &FacilityClient{
		rpcClientAdapter{
			config:    config,
			transport: transport,
			breaker:   newBreaker(config),
		},
	}, nil
}

// WithSendOptions returns a client sharing the transport whose calls use opts.
// The receiver is not modified.
func (c *FacilityClient) WithSendOptions(opts transport.SendOptions) *FacilityClient {
	clone := *c
	clone.opts = opts
	return &clone
}

// Close closes the underlying transport
func (c *FacilityClient) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the booking package in interface.go)
// --------------------------------------------------------------------------

func (c *FacilityClient) QueryAvailability(ctx context.Context, facility string, days []time.Time) ([]booking.TimeSlot, error) {
	var res common.QueryAvailabilityResult
	req := &common.QueryAvailabilityRequest{Facility: facility, Days: days}
	if err := c.invokeRPCRequest(ctx, req, &res); err != nil {
		return nil, err
	}
	return res.Slots, nil
}

func (c *FacilityClient) Book(ctx context.Context, facility string, start, end time.Time) (uint32, error) {
	var res common.BookResult
	req := &common.BookRequest{Facility: facility, Start: start, End: end}
	if err := c.invokeRPCRequest(ctx, req, &res); err != nil {
		return 0, err
	}
	return res.ConfirmationID, nil
}

func (c *FacilityClient) ChangeBooking(ctx context.Context, confirmationID uint32, offset time.Duration) (string, error) {
	minutes, err := wholeMinutes("offset", offset)
	if err != nil {
		return "", err
	}
	if minutes < math.MinInt32 || minutes > math.MaxInt32 {
		return "", &common.EncodeError{Field: "offset", Err: common.ErrValueOutOfRange}
	}

	var res common.ChangeBookingResult
	req := &common.ChangeBookingRequest{ConfirmationID: confirmationID, OffsetMinutes: int32(minutes)}
	if err := c.invokeRPCRequest(ctx, req, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

func (c *FacilityClient) LastBookingTime(ctx context.Context, facility string) (time.Time, string, error) {
	var res common.LastBookingTimeResult
	req := &common.LastBookingTimeRequest{Facility: facility}
	if err := c.invokeRPCRequest(ctx, req, &res); err != nil {
		return time.Time{}, "", err
	}
	return res.LastEnd, res.Status, nil
}

func (c *FacilityClient) ExtendBooking(ctx context.Context, confirmationID uint32, extension time.Duration) (time.Time, string, error) {
	minutes, err := wholeMinutes("extension", extension)
	if err != nil {
		return time.Time{}, "", err
	}
	if minutes <= 0 || minutes > math.MaxUint32 {
		return time.Time{}, "", &common.EncodeError{Field: "extension", Err: common.ErrValueOutOfRange}
	}

	var res common.ExtendBookingResult
	req := &common.ExtendBookingRequest{ConfirmationID: confirmationID, Minutes: uint32(minutes)}
	if err := c.invokeRPCRequest(ctx, req, &res); err != nil {
		return time.Time{}, "", err
	}
	return res.NewEnd, res.Message, nil
}

// wholeMinutes converts d to minutes, durations with a sub-minute remainder are rejected
func wholeMinutes(field string, d time.Duration) (int64, error) {
	if d%time.Minute != 0 {
		return 0, &common.EncodeError{Field: field, Err: fmt.Errorf("%w: %s is not a whole number of minutes", common.ErrValueOutOfRange, d)}
	}
	return int64(d / time.Minute), nil
}
