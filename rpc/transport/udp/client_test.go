package udp_test

import (
	"context"
	"errors"
	"github.com/ValentinKolb/fbook/lib/booking"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/ValentinKolb/fbook/rpc/serializer"
	"github.com/ValentinKolb/fbook/rpc/transport"
	"github.com/ValentinKolb/fbook/rpc/transport/udp"
	"github.com/ValentinKolb/fbook/rpc/transport/udp/udptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func testConfig(timeout time.Duration) common.ClientConfig {
	cfg := common.DefaultClientConfig()
	cfg.Timeout = timeout
	return cfg
}

func connect(t *testing.T, conn *udptest.PacketConn, cfg common.ClientConfig, opts ...udp.Option) *udp.ClientTransport {
	t.Helper()
	opts = append(opts, udp.WithConnector(udptest.Connector{Conn: conn}))
	tr := udp.NewUDPClientTransport(opts...)
	require.NoError(t, tr.Connect(cfg))
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

// bookReply answers every request with a booking confirmation of id*10
func bookReply(req []byte) []byte {
	id, _, err := serializer.DecodeRequest(req)
	if err != nil {
		return nil
	}
	return udptest.Success(id, &common.BookResult{ConfirmationID: id * 10})
}

func bookResponder(req []byte) [][]byte {
	if reply := bookReply(req); reply != nil {
		return [][]byte{reply}
	}
	return nil
}

func bookFrame(t *testing.T, requestID uint32) []byte {
	t.Helper()
	frame, err := serializer.EncodeRequest(requestID, common.BookRequest{
		Facility: "Lab_101",
		Start:    time.Unix(1700000000, 0),
		End:      time.Unix(1700003600, 0),
	})
	require.NoError(t, err)
	return frame
}

func confirmationID(t *testing.T, data []byte) uint32 {
	t.Helper()
	resp, err := serializer.ParseResponse(data)
	require.NoError(t, err)
	var res common.BookResult
	require.NoError(t, serializer.DecodeResult(resp, &res))
	return res.ConfirmationID
}

// --------------------------------------------------------------------------
// Send
// --------------------------------------------------------------------------

func TestSendReceivesReply(t *testing.T) {
	conn := udptest.NewPacketConn(bookResponder)
	tr := connect(t, conn, testConfig(100*time.Millisecond))

	id := tr.NextRequestID()
	assert.Equal(t, uint32(1), id)

	resp, err := tr.Send(context.Background(), bookFrame(t, id), transport.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint32(10), confirmationID(t, resp))

	assert.Equal(t, 1, conn.WriteCount())
	stats := tr.Stats()
	assert.Equal(t, uint64(1), stats.Requests)
	assert.Equal(t, uint64(1), stats.Attempts)
	assert.Equal(t, uint64(0), stats.Retries)
}

func TestSendRetryBound(t *testing.T) {
	const timeout = 50 * time.Millisecond

	conn := udptest.NewPacketConn(nil)
	tr := connect(t, conn, testConfig(timeout))

	start := time.Now()
	_, err := tr.Send(context.Background(), bookFrame(t, tr.NextRequestID()), transport.SendOptions{})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, common.ErrTimeout)
	assert.False(t, errors.Is(err, common.ErrIO))

	var trErr *common.TransportError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, common.DefaultRetries, trErr.Attempts)

	assert.Equal(t, common.DefaultRetries, conn.WriteCount())
	assert.GreaterOrEqual(t, elapsed, common.DefaultRetries*timeout)
	assert.Less(t, elapsed, common.DefaultRetries*timeout+time.Second)

	stats := tr.Stats()
	assert.Equal(t, uint64(3), stats.Attempts)
	assert.Equal(t, uint64(2), stats.Retries)
	assert.Equal(t, uint64(1), stats.Timeouts)
}

func TestSendRetriesUntilReply(t *testing.T) {
	var mu sync.Mutex
	writes := 0

	// the first two requests are lost
	conn := udptest.NewPacketConn(func(req []byte) [][]byte {
		mu.Lock()
		defer mu.Unlock()
		writes++
		if writes < 3 {
			return nil
		}
		return bookResponder(req)
	})
	tr := connect(t, conn, testConfig(30*time.Millisecond))

	resp, err := tr.Send(context.Background(), bookFrame(t, tr.NextRequestID()), transport.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint32(10), confirmationID(t, resp))
	assert.Equal(t, 3, conn.WriteCount())
}

func TestSendDropAll(t *testing.T) {
	cfg := testConfig(20 * time.Millisecond)
	cfg.DropRate = 1.0

	conn := udptest.NewPacketConn(bookResponder)
	tr := connect(t, conn, cfg)

	_, err := tr.Send(context.Background(), bookFrame(t, tr.NextRequestID()), transport.SendOptions{})
	require.ErrorIs(t, err, common.ErrTimeout)

	assert.Equal(t, 0, conn.WriteCount())
	assert.Equal(t, uint64(3), tr.Stats().Drops)
}

func TestSendSeededDrop(t *testing.T) {
	const (
		seed  = 42
		calls = 10
	)

	cfg := testConfig(20 * time.Millisecond)
	cfg.DropRate = 0.5

	conn := udptest.NewPacketConn(bookResponder)
	tr := connect(t, conn, cfg, udp.WithRandomSource(rand.New(rand.NewSource(seed))))

	// replay the same stream to know which attempts are dropped
	replay := rand.New(rand.NewSource(seed))
	wantWrites, wantDrops := 0, 0

	for i := 0; i < calls; i++ {
		wantOK := false
		for attempt := 0; attempt < cfg.RetryCount; attempt++ {
			if replay.Float64() < cfg.DropRate {
				wantDrops++
				continue
			}
			wantOK = true
			wantWrites++
			break
		}

		id := tr.NextRequestID()
		resp, err := tr.Send(context.Background(), bookFrame(t, id), transport.SendOptions{})
		if wantOK {
			require.NoError(t, err, "call %d", i)
			assert.Equal(t, id*10, confirmationID(t, resp))
		} else {
			require.ErrorIs(t, err, common.ErrTimeout, "call %d", i)
		}
	}

	assert.Equal(t, wantWrites, conn.WriteCount())
	assert.Equal(t, uint64(wantDrops), tr.Stats().Drops)
}

func TestSendDemultiplexesConcurrentCalls(t *testing.T) {
	const calls = 50

	var conn *udptest.PacketConn
	conn = udptest.NewPacketConn(func(req []byte) [][]byte {
		reply := bookReply(req)
		id, _ := serializer.PeekRequestID(req)
		// later requests are answered first
		conn.DeliverAfter(time.Duration(calls-int(id)%calls)*time.Millisecond, reply)
		return nil
	})
	tr := connect(t, conn, testConfig(time.Second))

	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := tr.NextRequestID()
			frame, err := serializer.EncodeRequest(id, common.LastBookingTimeRequest{Facility: "Gym"})
			if err != nil {
				errs <- err
				return
			}
			resp, err := tr.Send(context.Background(), frame, transport.SendOptions{})
			if err != nil {
				errs <- err
				return
			}
			parsed, err := serializer.ParseResponse(resp)
			if err != nil {
				errs <- err
				return
			}
			if parsed.RequestID != id {
				errs <- errors.New("reply routed to the wrong call")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, calls, conn.WriteCount())
	assert.Equal(t, uint64(0), tr.Stats().Unmatched)
}

func TestSendDiscardsStaleReply(t *testing.T) {
	conn := udptest.NewPacketConn(bookResponder)
	tr := connect(t, conn, testConfig(100*time.Millisecond))

	// reply to a request that is not in flight
	conn.Deliver(udptest.Success(999, &common.BookResult{ConfirmationID: 1}))

	id := tr.NextRequestID()
	resp, err := tr.Send(context.Background(), bookFrame(t, id), transport.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, id*10, confirmationID(t, resp))

	assert.Eventually(t, func() bool { return tr.Stats().Unmatched == 1 }, time.Second, 5*time.Millisecond)
}

func TestSendTimeoutOverrideIsScoped(t *testing.T) {
	var conn *udptest.PacketConn
	conn = udptest.NewPacketConn(func(req []byte) [][]byte {
		conn.DeliverAfter(100*time.Millisecond, bookReply(req))
		return nil
	})
	tr := connect(t, conn, testConfig(time.Second))

	// the short override gives up before the reply arrives
	start := time.Now()
	_, err := tr.Send(context.Background(), bookFrame(t, tr.NextRequestID()), transport.SendOptions{Retries: 1, Timeout: 20 * time.Millisecond})
	require.ErrorIs(t, err, common.ErrTimeout)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// the next call uses the session default again and gets its reply
	id := tr.NextRequestID()
	resp, err := tr.Send(context.Background(), bookFrame(t, id), transport.SendOptions{Retries: 1})
	require.NoError(t, err)
	assert.Equal(t, id*10, confirmationID(t, resp))
}

func TestSendInvalidOptions(t *testing.T) {
	tr := connect(t, udptest.NewPacketConn(nil), testConfig(time.Second))

	_, err := tr.Send(context.Background(), bookFrame(t, 1), transport.SendOptions{Retries: -1})
	assert.Error(t, err)
	_, err = tr.Send(context.Background(), bookFrame(t, 1), transport.SendOptions{Timeout: -time.Second})
	assert.Error(t, err)
}

func TestSendWriteFailure(t *testing.T) {
	conn := udptest.NewPacketConn(bookResponder)
	conn.SetWriteError(errors.New("network is unreachable"))
	tr := connect(t, conn, testConfig(time.Second))

	start := time.Now()
	_, err := tr.Send(context.Background(), bookFrame(t, tr.NextRequestID()), transport.SendOptions{})
	require.ErrorIs(t, err, common.ErrIO)
	assert.False(t, errors.Is(err, common.ErrTimeout))
	assert.Contains(t, err.Error(), "network is unreachable")

	var trErr *common.TransportError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, 1, trErr.Attempts)
	// IO failures are not retried
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSendContextCancel(t *testing.T) {
	tr := connect(t, udptest.NewPacketConn(nil), testConfig(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := tr.Send(ctx, bookFrame(t, tr.NextRequestID()), transport.SendOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendRejectsDuplicateInFlightID(t *testing.T) {
	tr := connect(t, udptest.NewPacketConn(nil), testConfig(300*time.Millisecond))

	frame := bookFrame(t, 5)
	done := make(chan error, 1)
	go func() {
		_, err := tr.Send(context.Background(), frame, transport.SendOptions{Retries: 1})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := tr.Send(context.Background(), frame, transport.SendOptions{Retries: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in flight")

	assert.ErrorIs(t, <-done, common.ErrTimeout)
}

func TestSendRejectsReservedID(t *testing.T) {
	tr := connect(t, udptest.NewPacketConn(bookResponder), testConfig(time.Second))

	_, err := tr.Send(context.Background(), bookFrame(t, common.UnsolicitedRequestID), transport.SendOptions{})
	assert.Error(t, err)
}

func TestSendNotConnected(t *testing.T) {
	tr := udp.NewUDPClientTransport()
	_, err := tr.Send(context.Background(), bookFrame(t, 1), transport.SendOptions{})
	assert.Error(t, err)
}

// --------------------------------------------------------------------------
// Connect & Close
// --------------------------------------------------------------------------

func TestConnectInvalidConfig(t *testing.T) {
	cfg := common.DefaultClientConfig()
	cfg.ServerPort = 0

	tr := udp.NewUDPClientTransport(udp.WithConnector(udptest.Connector{Conn: udptest.NewPacketConn(nil)}))
	assert.Error(t, tr.Connect(cfg))
}

func TestConnectTwice(t *testing.T) {
	conn := udptest.NewPacketConn(nil)
	tr := connect(t, conn, testConfig(time.Second))
	assert.Error(t, tr.Connect(testConfig(time.Second)))
}

func TestCloseUnblocksSend(t *testing.T) {
	tr := connect(t, udptest.NewPacketConn(nil), testConfig(5*time.Second))

	frame := bookFrame(t, tr.NextRequestID())
	done := make(chan error, 1)
	go func() {
		_, err := tr.Send(context.Background(), frame, transport.SendOptions{})
		done <- err
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, tr.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, common.ErrTransportClosed)
	case <-time.After(time.Second):
		t.Fatal("send did not return after close")
	}

	_, err := tr.Send(context.Background(), bookFrame(t, tr.NextRequestID()), transport.SendOptions{})
	assert.ErrorIs(t, err, common.ErrTransportClosed)

	// idempotent
	assert.NoError(t, tr.Close())
}

// --------------------------------------------------------------------------
// Subscriptions
// --------------------------------------------------------------------------

func TestSubscribeReceivesServerUpdates(t *testing.T) {
	conn := udptest.NewPacketConn(nil)
	tr := connect(t, conn, testConfig(time.Second))

	updates, cancel := tr.Subscribe()

	update := booking.Update{
		Message:        "New booking",
		Op:             booking.OpBook,
		ConfirmationID: 4,
		Slot:           booking.TimeSlot{Start: time.Unix(1700000000, 0), End: time.Unix(1700003600, 0)},
	}
	data, err := serializer.EncodeMonitorUpdate(update)
	require.NoError(t, err)
	conn.Deliver(data)

	select {
	case got := <-updates:
		decoded, err := serializer.DecodeMonitorUpdate(got)
		require.NoError(t, err)
		assert.Equal(t, update, decoded)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	cancel()
	_, ok := <-updates
	assert.False(t, ok)
	// cancel is idempotent
	cancel()
}

func TestCloseEndsSubscriptions(t *testing.T) {
	tr := connect(t, udptest.NewPacketConn(nil), testConfig(time.Second))

	updates, cancel := tr.Subscribe()
	defer cancel()

	require.NoError(t, tr.Close())

	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestMalformedDatagramIsCounted(t *testing.T) {
	conn := udptest.NewPacketConn(nil)
	tr := connect(t, conn, testConfig(time.Second))

	conn.Deliver([]byte{0x01, 0x02})
	assert.Eventually(t, func() bool { return tr.Stats().Malformed == 1 }, time.Second, 5*time.Millisecond)
}

// --------------------------------------------------------------------------
// Loopback
// --------------------------------------------------------------------------

func TestLoopbackServer(t *testing.T) {
	server, err := udptest.NewServer(func(requestID uint32, req common.Request) []byte {
		book, ok := req.(*common.BookRequest)
		if !ok {
			return udptest.Error(requestID, "unsupported")
		}
		if book.Facility != "Lab_101" {
			return udptest.Error(requestID, "Facility not found")
		}
		return udptest.Success(requestID, &common.BookResult{ConfirmationID: 1})
	})
	require.NoError(t, err)
	defer server.Close()

	cfg := testConfig(200 * time.Millisecond)
	cfg.ServerHost = server.Host()
	cfg.ServerPort = server.Port()
	cfg.LocalAddr = "127.0.0.1:0"

	tr := udp.NewUDPClientTransport()
	require.NoError(t, tr.Connect(cfg))
	defer tr.Close()

	// first request is ignored by the server, the retry gets the reply
	server.IgnoreNext(1)

	resp, err := tr.Send(context.Background(), bookFrame(t, tr.NextRequestID()), transport.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), confirmationID(t, resp))
	assert.Equal(t, 2, server.Received())
	assert.NotNil(t, tr.LocalAddr())
}
