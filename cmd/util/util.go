package util

import (
	"fmt"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/ValentinKolb/fbook/rpc/transport/udp"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds the connection, retry and fault injection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()
	flags := cmd.PersistentFlags()

	key := "server-host"
	flags.String(key, defaults.ServerHost, WrapString("Host name or IP of the booking server"))

	key = "server-port"
	flags.Int(key, defaults.ServerPort, WrapString("UDP port of the booking server"))

	key = "local-addr"
	flags.String(key, "", WrapString("Local address to bind the client socket to (host:port), empty for any"))

	key = "timeout"
	flags.Duration(key, defaults.Timeout, WrapString("How long to wait for a reply before retrying"))

	key = "retries"
	flags.Int(key, defaults.RetryCount, WrapString("How many times a request is sent before giving up"))

	key = "drop-rate"
	flags.Float64(key, 0, WrapString("Probability in [0,1] that a request is dropped before sending (fault injection)"))

	key = "drop-seed"
	flags.Int64(key, 0, WrapString("Seed for the drop simulation, 0 for a time based seed"))

	key = "workers"
	flags.Int(key, defaults.Workers, WrapString("Number of workers executing operations"))

	key = "breaker"
	flags.Bool(key, false, WrapString("Fail fast after repeated transport failures"))

	key = "breaker-max-failures"
	flags.Uint32(key, defaults.Breaker.MaxFailures, WrapString("Consecutive transport failures that open the circuit breaker"))

	key = "breaker-open-timeout"
	flags.Duration(key, defaults.Breaker.OpenTimeout, WrapString("How long the circuit breaker stays open"))

	key = "log-level"
	flags.String(key, defaults.LogLevel, WrapString("Log level (debug, info, warning, error)"))

	key = "output"
	flags.StringP(key, "o", "table", WrapString("Output format (table, json, yaml)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("fbook")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := &common.ClientConfig{
		ServerHost: viper.GetString("server-host"),
		ServerPort: viper.GetInt("server-port"),
		LocalAddr:  viper.GetString("local-addr"),
		Timeout:    viper.GetDuration("timeout"),
		RetryCount: viper.GetInt("retries"),
		DropRate:   viper.GetFloat64("drop-rate"),
		DropSeed:   viper.GetInt64("drop-seed"),
		Workers:    viper.GetInt("workers"),
		Breaker: common.BreakerConfig{
			Enabled:     viper.GetBool("breaker"),
			MaxFailures: viper.GetUint32("breaker-max-failures"),
			OpenTimeout: viper.GetDuration("breaker-open-timeout"),
		},
		LogLevel: viper.GetString("log-level"),
	}

	return conf
}

// GetTransport creates the client transport
func GetTransport() *udp.ClientTransport {
	return udp.NewUDPClientTransport()
}

// GetOutputFormat returns the configured output format
func GetOutputFormat() string {
	return viper.GetString("output")
}

// InitLogging installs the client loggers with the configured level
func InitLogging(config *common.ClientConfig) error {
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
