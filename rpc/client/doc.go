// Package client implements the RPC client of the facility-booking service.
// It provides an implementation of the booking.IBookingService interface that
// communicates with the server via an RPC transport.
//
// The package focuses on:
//   - Transparent RPC access to the six booking operations
//   - Integration with the transport and serializer layers
//   - Keeping server errors and delivery failures apart
//
// Key Components:
//
//   - FacilityClient: Created with NewFacilityClient. Every operation allocates a
//     request id, encodes the request, sends it through the transport, checks the
//     echoed id and decodes the success payload. An Error response is returned as
//     *common.ApplicationError with the server message verbatim, delivery failures
//     as *common.TransportError.
//
//   - Monitor: Registers for updates of a facility and returns a channel of decoded,
//     de-duplicated updates that is closed when the interval ends or the context is
//     cancelled.
//
//   - Circuit breaker: With Breaker.Enabled in the config, repeated transport failures
//     open a gobreaker circuit and further calls fail fast until the open timeout
//     has passed. Application errors never count as failures.
//
// Usage Example:
//
//	config := common.DefaultClientConfig()
//	config.ServerHost = "10.0.0.5"
//
//	c, err := client.NewFacilityClient(config, udp.NewUDPClientTransport())
//	if err != nil { ... }
//	defer c.Close()
//
//	id, err := c.Book(ctx, "Lab_101", start, end)
//	var appErr *common.ApplicationError
//	if errors.As(err, &appErr) {
//		fmt.Println("server refused:", appErr.Message)
//	}
//
//	// a single slow call
//	c.WithSendOptions(transport.SendOptions{Timeout: 10 * time.Second}).LastBookingTime(ctx, "Lab_101")
package client
