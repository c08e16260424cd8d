package common

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// BreakerConfig configures the optional circuit breaker in front of the transport
type BreakerConfig struct {
	// Enabled turns the circuit breaker on
	Enabled bool
	// MaxFailures is the number of consecutive transport failures that opens the breaker
	MaxFailures uint32
	// OpenTimeout is the time the breaker stays open before probing again
	OpenTimeout time.Duration
}

// ClientConfig holds all parameters of one client session
type ClientConfig struct {
	// Server address
	ServerHost string
	ServerPort int

	// Local address the datagram socket binds to, empty means any port
	LocalAddr string

	// Default per-call timeout and retry budget
	Timeout    time.Duration
	RetryCount int

	// Fault injection: probability in [0,1] that an attempt is dropped before sending.
	// DropSeed seeds the random source, 0 means time based.
	DropRate float64
	DropSeed int64

	// Number of workers executing user operations
	Workers int

	Breaker BreakerConfig

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns a configuration with the protocol defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerHost: "127.0.0.1",
		ServerPort: 8080,
		Timeout:    DefaultTimeout,
		RetryCount: DefaultRetries,
		Workers:    4,
		Breaker: BreakerConfig{
			MaxFailures: 5,
			OpenTimeout: 10 * time.Second,
		},
		LogLevel: "info",
	}
}

// Endpoint returns the server address in host:port form
func (c *ClientConfig) Endpoint() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// Validate checks the configuration for values the transport can not work with
func (c *ClientConfig) Validate() error {
	if c.ServerHost == "" {
		return fmt.Errorf("server host must not be empty")
	}
	if c.ServerPort <= 0 || c.ServerPort > 0xFFFF {
		return fmt.Errorf("invalid server port %d", c.ServerPort)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RetryCount < 1 {
		return fmt.Errorf("retry count must be at least 1, got %d", c.RetryCount)
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop rate must be in [0,1], got %g", c.DropRate)
	}
	if c.Breaker.Enabled && c.Breaker.MaxFailures == 0 {
		return fmt.Errorf("breaker max failures must be at least 1")
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Server", c.Endpoint())
	if c.LocalAddr != "" {
		addField("Local Address", c.LocalAddr)
	}
	addField("Timeout", c.Timeout.String())
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Workers", strconv.Itoa(max(1, c.Workers)))

	// Fault injection
	if c.DropRate > 0 {
		addSection("Fault Injection")
		addField("Drop Rate", strconv.FormatFloat(c.DropRate, 'f', 2, 64))
		addField("Drop Seed", strconv.FormatInt(c.DropSeed, 10))
	}

	// Circuit breaker
	if c.Breaker.Enabled {
		addSection("Circuit Breaker")
		addField("Max Failures", strconv.FormatUint(uint64(c.Breaker.MaxFailures), 10))
		addField("Open Timeout", c.Breaker.OpenTimeout.String())
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
