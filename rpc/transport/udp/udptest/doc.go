// Package udptest provides test doubles for the UDP transport: an in-memory
// net.PacketConn with a programmable responder, a matching connector and a
// loopback server that decodes requests and answers through a Handler.
package udptest
