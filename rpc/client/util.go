package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/ValentinKolb/fbook/rpc/serializer"
	"github.com/ValentinKolb/fbook/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/sony/gobreaker/v2"
)

var (
	Logger = logger.GetLogger(common.LoggerRPC)
)

// rpcClientAdapter stores everything needed to run requests against one server
type rpcClientAdapter struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
	breaker   *gobreaker.CircuitBreaker[[]byte] // nil if disabled
	opts      transport.SendOptions
}

// invokeRPCRequest is the helper used by all operations to run one request/response exchange.
// It allocates a request id, encodes req, sends it, checks the echoed id and decodes the
// success payload into out. Error responses are returned as *common.ApplicationError
// without wrapping, so the server message stays verbatim.
func (a *rpcClientAdapter) invokeRPCRequest(ctx context.Context, req common.Request, out common.Result) error {
	requestID := a.transport.NextRequestID()

	// Serialize the request
	reqBytes, err := serializer.EncodeRequest(requestID, req)
	if err != nil {
		return err
	}

	// Send the request
	respBytes, err := a.send(ctx, reqBytes)
	if err != nil {
		return err
	}

	// Parse the response
	resp, err := serializer.ParseResponse(respBytes)
	if err != nil {
		return fmt.Errorf("invalid %s response: %w", req.MsgType(), err)
	}

	// The transport routes by id, a mismatch means the reply is not ours
	if resp.RequestID != requestID {
		return &common.DecodeError{Offset: 0, Err: fmt.Errorf("%w: sent %d, got %d", common.ErrRequestIDMismatch, requestID, resp.RequestID)}
	}

	if err := resp.Err(); err != nil {
		Logger.Debugf("Request %d (%s) failed on server: %v", requestID, req.MsgType(), err)
		return err
	}

	if err := serializer.DecodeResult(resp, out); err != nil {
		return fmt.Errorf("invalid %s response: %w", req.MsgType(), err)
	}
	return nil
}

// send passes the request through the circuit breaker (if enabled) to the transport
func (a *rpcClientAdapter) send(ctx context.Context, req []byte) ([]byte, error) {
	if a.breaker == nil {
		return a.transport.Send(ctx, req, a.opts)
	}

	resp, err := a.breaker.Execute(func() ([]byte, error) {
		return a.transport.Send(ctx, req, a.opts)
	})
	if isBreakerRejection(err) {
		return nil, fmt.Errorf("server %s unavailable: %w", a.config.Endpoint(), err)
	}
	return resp, err
}
