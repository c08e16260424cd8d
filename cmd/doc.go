// Package cmd implements the command-line interface of the fBook facility booking
// client. It provides a hierarchical command structure for all booking operations
// and a performance test.
//
// The package is organized into several subpackages:
//
//   - facility: Commands for the booking operations (query, book, change, monitor,
//     last, extend) and the perf benchmark
//   - util: Shared utilities for command-line processing, configuration and output
//     formatting (internal use)
//
// Every flag can also be set as an environment variable with the prefix FBOOK_
// (e.g. FBOOK_SERVER_HOST), also read from .env and .env.local.
//
// See fbook -help for a list of all commands.
package cmd
