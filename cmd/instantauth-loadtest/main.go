// Command instantauth-loadtest measures BuildData and GetContext throughput
// against a Redis-backed session handler.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/instantauth"
	"github.com/MrEthical07/instantauth/coder"
	"github.com/MrEthical07/instantauth/cryptor"
	"github.com/MrEthical07/instantauth/session"
	"github.com/MrEthical07/instantauth/wire"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to provision")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (build + open)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "ialt", "session key prefix")
		secret      = flag.String("secret", "loadtest-shared-secret-0123456789", "shared secret")
		wireName    = flag.String("wire", "base64url", "wire encoding: plain, base64, base64url")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	w, err := wire.ByName(*wireName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	aes, err := cryptor.NewAESCryptor(256)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	store := session.NewStore(client, *prefix)
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := instantauth.DefaultConfig()
	cfg.SecretKey = *secret
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	engine, err := instantauth.New().
		WithConfig(cfg).
		WithWire(w).
		WithCryptor(aes).
		WithCoder(coder.SimpleURLQueryCoder{}).
		WithSessionHandler(session.NewHandler(store, 0)).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	records := make([]*session.Record, *sessions)
	fmt.Printf("provisioning %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range records {
		rec, err := session.Provision(time.Hour, "lt-"+strconv.Itoa(i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "provision failed: %v\n", err)
			os.Exit(1)
		}
		if err := store.Save(ctx, rec, time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
		records[i] = rec
	}
	fmt.Printf("provisioned in %s\n", time.Since(startSeed).Round(time.Millisecond))

	buildStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, i int) error {
		_, err := engine.BuildData(ctx, records[r.Intn(len(records))], map[string]string{
			"seq": strconv.Itoa(i),
		})
		return err
	})

	ready := make([][]byte, 0, len(records))
	for i, rec := range records {
		blob, err := engine.BuildData(ctx, rec, map[string]string{"seq": strconv.Itoa(i)})
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}
		ready = append(ready, blob)
	}

	openStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		_, err := engine.GetContext(ctx, ready[r.Intn(len(ready))])
		return err
	})

	fmt.Println("---- results ----")
	printStats("build", buildStats)
	printStats("open", openStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: built=%d accepted=%d rejected=%d\n",
		snap.Counters[instantauth.MetricBuildSuccess],
		snap.Counters[instantauth.MetricContextSuccess],
		snap.Counters[instantauth.MetricContextRejected],
	)
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
