package client

import (
	"context"
	"github.com/ValentinKolb/fbook/lib/booking"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/ValentinKolb/fbook/rpc/serializer"
	"math"
	"time"
)

// updateBuffer is the number of decoded updates queued for a slow reader
const updateBuffer = 16

// Monitor registers for updates of facility. The subscription is set up before the
// request is sent, so no update sent right after the acknowledgement is lost.
// Duplicate deliveries of the same update are filtered.
func (c *FacilityClient) Monitor(ctx context.Context, facility string, interval time.Duration) (string, <-chan booking.Update, error) {
	// the server expects whole seconds, round up
	seconds := (interval + time.Second - 1) / time.Second
	if interval <= 0 || seconds > math.MaxUint32 {
		return "", nil, &common.EncodeError{Field: "interval", Err: common.ErrValueOutOfRange}
	}

	datagrams, cancel := c.transport.Subscribe()

	var res common.MonitorResult
	req := &common.MonitorRequest{Facility: facility, DurationSeconds: uint32(seconds)}
	if err := c.invokeRPCRequest(ctx, req, &res); err != nil {
		cancel()
		return "", nil, err
	}

	updates := make(chan booking.Update, updateBuffer)
	go forwardUpdates(ctx, facility, time.Duration(seconds)*time.Second, datagrams, cancel, updates)

	return res.Message, updates, nil
}

// forwardUpdates decodes server pushes until the interval ends, ctx is done or the
// transport closes the subscription
func forwardUpdates(ctx context.Context, facility string, interval time.Duration, datagrams <-chan []byte, cancel func(), updates chan<- booking.Update) {
	defer close(updates)
	defer cancel()

	deadline := time.NewTimer(interval)
	defer deadline.Stop()

	seen := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			Logger.Infof("Monitoring of %s ended", facility)
			return
		case data, ok := <-datagrams:
			if !ok {
				return
			}

			update, err := serializer.DecodeMonitorUpdate(data)
			if err != nil {
				Logger.Warningf("Discarding malformed update for %s: %v", facility, err)
				continue
			}

			key := update.Key()
			if _, dup := seen[key]; dup {
				Logger.Debugf("Discarding duplicate update %s", key)
				continue
			}
			seen[key] = struct{}{}

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			case <-deadline.C:
				return
			}
		}
	}
}
