package facility

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/fbook/cmd/util"
	"github.com/ValentinKolb/fbook/lib/executor"
	"github.com/ValentinKolb/fbook/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for booking servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfFacility   = "Lab_101"
	perfNumThreads = 10
	perfSkip       = make([]string, 0)

	// perfSlot makes every booking of the book test request a different hour
	perfSlot atomic.Int64
)

// perfOp is one operation under test, n counts the calls of the calling goroutine
type perfOp func(ctx context.Context, n int) error

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. book,mixed)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines issuing requests"))
	key = "facility"
	perfTestCmd.Flags().String(key, "Lab_101", util.WrapString("Facility used by the benchmarks"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the transport metrics in Prometheus format after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfFacility = viper.GetString("facility")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for booking servers")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Facility: %s\n", perfFacility)
	fmt.Println()

	fmt.Println("starting tests...")

	ctx := cmd.Context()
	registry := gometrics.NewRegistry()
	results := make(map[string]testing.BenchmarkResult)
	base := time.Now().Truncate(time.Hour).Add(24 * time.Hour)

	ops := []struct {
		name string
		op   perfOp
	}{
		{"query", func(ctx context.Context, _ int) error {
			_, err := rpcClient.QueryAvailability(ctx, perfFacility, []time.Time{base})
			return err
		}},
		{"last", func(ctx context.Context, _ int) error {
			_, _, err := rpcClient.LastBookingTime(ctx, perfFacility)
			return err
		}},
		{"book", func(ctx context.Context, _ int) error {
			start := base.Add(time.Duration(perfSlot.Add(1)) * time.Hour)
			_, err := rpcClient.Book(ctx, perfFacility, start, start.Add(30*time.Minute))
			return err
		}},
		{"mixed", func(ctx context.Context, n int) error {
			var err error
			switch n % 3 {
			case 0:
				_, err = rpcClient.QueryAvailability(ctx, perfFacility, []time.Time{base})
			case 1:
				_, _, err = rpcClient.LastBookingTime(ctx, perfFacility)
			case 2:
				start := base.Add(time.Duration(perfSlot.Add(1)) * time.Hour)
				_, err = rpcClient.Book(ctx, perfFacility, start, start.Add(30*time.Minute))
			}
			return err
		}},
	}

	for _, o := range ops {
		results[o.name] = benchmark(ctx, registry, o.name, o.op)
		printResult(o.name, results[o.name], registry)
	}

	stats := udpTransport.Stats()
	fmt.Printf("\nTransport: %d requests, %d attempts, %d retries, %d dropped, %d timeouts, %d unmatched replies\n",
		stats.Requests, stats.Attempts, stats.Retries, stats.Drops, stats.Timeouts, stats.Unmatched)

	if viper.GetBool("metrics") {
		fmt.Println()
		udpTransport.WriteMetrics(os.Stdout)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// benchmark runs op in parallel through the worker pool and records every call in a timer.
// Application errors (e.g. booking conflicts) are valid answers, only transport
// failures are counted as errors.
func benchmark(ctx context.Context, registry gometrics.Registry, name string, op perfOp) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(name) {
			return
		}

		timer := gometrics.GetOrRegisterTimer(name, registry)
		failures := gometrics.GetOrRegisterCounter(name+".errors", registry)

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				n := counter
				start := time.Now()
				_, err := executor.Run(ctx, pool, func(ctx context.Context) (struct{}, error) {
					return struct{}{}, op(ctx, n)
				})
				timer.UpdateSince(start)

				if err != nil && !common.IsApplicationError(err) {
					failures.Inc(1)
					log.Printf("(%s) - request failed: %v\n", name, err)
				}
				counter++
			}
		})
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, registry gometrics.Registry) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-12sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	timer := gometrics.GetOrRegisterTimer(test, registry).Snapshot()
	failures := gometrics.GetOrRegisterCounter(test+".errors", registry).Count()

	fmt.Printf("%-12s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\terrors %d\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(timer.Percentile(0.5)), time.Duration(timer.Percentile(0.99)), failures)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, registry gometrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"P50", "P99", "Errors",
		"Server", "Timeout", "RetryCount", "DropRate", "Workers", "Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		timer := gometrics.GetOrRegisterTimer(test, registry).Snapshot()
		failures := gometrics.GetOrRegisterCounter(test+".errors", registry).Count()

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			time.Duration(timer.Percentile(0.5)).String(),
			time.Duration(timer.Percentile(0.99)).String(),
			strconv.FormatInt(failures, 10),
			config.Endpoint(),
			config.Timeout.String(),
			strconv.Itoa(config.RetryCount),
			strconv.FormatFloat(config.DropRate, 'f', 2, 64),
			strconv.Itoa(config.Workers),
			strconv.Itoa(perfNumThreads),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
