package idx

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dIdx/cmd/util"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dIdx servers",
		Long:    "Runs a set of benchmarks against a shard. Every benchmark works on its own key region, all keys are removed afterwards.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyBase    = uint64(0xD1D0) << 48 // start of the key region used by the benchmarks
	perfOps        = 10_000
	perfNumThreads = 10
	perfKeySpread  = 1_000
	perfRangeLimit = 100
	perfRate       = 0
	perfSkip       = make([]string, 0)
)

// perfResult holds the measurements of one benchmark
type perfResult struct {
	name      string
	skipped   bool
	errors    int64
	latency   gometrics.Histogram // ns per operation
	opsPerSec float64
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. add,range)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent clients"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10_000, util.WrapString("Number of operations per benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 1_000, util.WrapString("How many different keys to use for the tests"))
	key = "range-limit"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("Maximum number of keys returned by a range request"))
	key = "rate"
	perfTestCmd.Flags().Int(key, 0, util.WrapString("Maximum operations per second over all threads (0 for no limit)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfOps = viper.GetInt("ops")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfRangeLimit = viper.GetInt("range-limit")
	perfRate = viper.GetInt("rate")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for dIdx servers")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Operations: %d, Keys: %d", perfNumThreads, perfOps, perfKeySpread)
	if perfRate > 0 {
		fmt.Printf(", Rate: %d ops/sec", perfRate)
	}
	fmt.Println()
	fmt.Println()

	fmt.Println("starting tests...")

	results := []*perfResult{
		benchmark("add", 0, nil, func(_ *rand.Rand, i int) error {
			return rpcStore.Add(perfKey(0, i))
		}, func() { cleanup(0) }),

		benchmark("has", 1, func() { fill(1) }, func(rng *rand.Rand, _ int) error {
			_, err := rpcStore.Has(perfKey(1, rng.Intn(perfKeySpread)))
			return err
		}, func() { cleanup(1) }),

		benchmark("has-not", 2, nil, func(rng *rand.Rand, _ int) error {
			_, err := rpcStore.Has(perfKey(2, rng.Intn(perfKeySpread)))
			return err
		}, nil),

		benchmark("range", 3, func() { fill(3) }, func(rng *rand.Rand, _ int) error {
			from := perfKey(3, rng.Intn(perfKeySpread))
			_, err := rpcStore.Range(from, perfKey(3, perfKeySpread), perfRangeLimit)
			return err
		}, func() { cleanup(3) }),

		benchmark("delete", 4, func() { fill(4) }, func(_ *rand.Rand, i int) error {
			return rpcStore.Delete(perfKey(4, i))
		}, func() { cleanup(4) }),

		benchmark("mixed", 5, func() { fill(5) }, func(rng *rand.Rand, i int) error {
			key := perfKey(5, rng.Intn(perfKeySpread))
			var err error
			switch i % 4 {
			case 0: // add, duplicates are expected
				if err = rpcStore.Add(key); store.IsDuplicateKey(err) {
					err = nil
				}
			case 1:
				_, err = rpcStore.Has(key)
			case 2:
				err = rpcStore.Delete(key)
			case 3:
				_, err = rpcStore.Range(key, key+uint64(perfRangeLimit), perfRangeLimit)
			}
			return err
		}, func() { cleanup(5) }),
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs op perfOps times spread over perfNumThreads goroutines.
// The index passed to op is unique per benchmark, keys derived from it are only used once.
func benchmark(name string, region int, setup func(), op func(rng *rand.Rand, i int) error, teardown func()) *perfResult {
	result := &perfResult{
		name:    name,
		latency: gometrics.NewHistogram(gometrics.NewUniformSample(max(perfOps, 1))),
	}

	if shouldSkip(name) {
		result.skipped = true
		printResult(result)
		return result
	}

	if setup != nil {
		setup()
	}
	if teardown != nil {
		defer teardown()
	}

	var limiter *rate.Limiter
	if perfRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(perfRate), max(perfRate/10, 1))
	}

	var next atomic.Int64
	var errCount atomic.Int64
	var wg sync.WaitGroup

	meter := gometrics.NewMeter()
	defer meter.Stop()

	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				i := int(next.Add(1) - 1)
				if i >= perfOps {
					return
				}
				if limiter != nil {
					_ = limiter.Wait(context.Background())
				}

				opStart := time.Now()
				err := op(rng, i)
				result.latency.Update(time.Since(opStart).Nanoseconds())
				meter.Mark(1)

				if err != nil {
					if errCount.Add(1) <= 5 {
						log.Printf("(%s) - error: %v\n", name, err)
					}
				}
			}
		}(int64(region*perfNumThreads + t))
	}
	wg.Wait()

	result.opsPerSec = meter.Snapshot().RateMean()
	result.errors = errCount.Load()
	printResult(result)
	return result
}

// perfKey returns the i-th key of a benchmark region
func perfKey(region, i int) uint64 {
	return perfKeyBase + uint64(region)<<32 + uint64(i)
}

// fill adds the keys of a region
func fill(region int) {
	for i := 0; i < perfKeySpread; i++ {
		if err := rpcStore.Add(perfKey(region, i)); err != nil && !store.IsDuplicateKey(err) {
			log.Printf("(fill) - error adding key: %v\n", err)
		}
	}
}

// cleanup removes all keys of a region
func cleanup(region int) {
	from, to := perfKey(region, 0), perfKey(region+1, 0)-1
	for {
		keys, err := rpcStore.Range(from, to, 1000)
		if err != nil {
			log.Printf("(cleanup) - error listing keys: %v\n", err)
			return
		}
		if len(keys) == 0 {
			return
		}
		for _, k := range keys {
			if err := rpcStore.Delete(k); err != nil {
				log.Printf("(cleanup) - error deleting key: %v\n", err)
				return
			}
		}
	}
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark in a formatted way
func printResult(r *perfResult) {
	if r.skipped {
		fmt.Printf("%-12sskipped\n", r.name)
		return
	}

	h := r.latency.Snapshot()
	fmt.Printf("%-12s%8.0f ops/sec   mean %-10s p50 %-10s p99 %-10s max %-10s errors %d\n",
		r.name,
		r.opsPerSec,
		time.Duration(h.Mean()).Round(time.Microsecond),
		time.Duration(h.Percentile(0.5)).Round(time.Microsecond),
		time.Duration(h.Percentile(0.99)).Round(time.Microsecond),
		time.Duration(h.Max()).Round(time.Microsecond),
		r.errors,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []*perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Skipped", "Ops", "Errors", "OpsPerSec", "MeanNs", "P50Ns", "P99Ns", "MaxNs",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "Keys", "RangeLimit", "RateLimit",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		h := r.latency.Snapshot()
		row := []string{
			r.name,
			strconv.FormatBool(r.skipped),
			strconv.FormatInt(h.Count(), 10),
			strconv.FormatInt(r.errors, 10),
			fmt.Sprintf("%.0f", r.opsPerSec),
			fmt.Sprintf("%.0f", h.Mean()),
			fmt.Sprintf("%.0f", h.Percentile(0.5)),
			fmt.Sprintf("%.0f", h.Percentile(0.99)),
			strconv.FormatInt(h.Max(), 10),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfRangeLimit),
			strconv.Itoa(perfRate),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
