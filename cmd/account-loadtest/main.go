// Command account-loadtest measures token consumption and lookup throughput
// of the Redis store under concurrency. Every confirmation token is
// presented twice by racing workers, so the run also checks that each one
// is consumed exactly once.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type seededAccount struct {
	email string
	raw   string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 20000, "number of unconfirmed accounts to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		lookups     = flag.Int("lookups", 100000, "FindByEmail operations in the read phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "acct-load", "store key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *lookups <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and lookups must be > 0")
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
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	s := redisstore.New(client, *prefix)

	seeded := make([]seededAccount, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := 0; i < *accounts; i++ {
		acc, raw, err := buildAccount(i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token generation failed: %v\n", err)
			os.Exit(1)
		}
		if err := s.Insert(ctx, acc); err != nil {
			fmt.Fprintf(os.Stderr, "insert failed: %v\n", err)
			os.Exit(1)
		}
		seeded[i] = seededAccount{email: acc.Email, raw: raw}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	consumeStats, consumed := runConsumePhase(ctx, s, seeded, *concurrency)
	lookupStats := runLookupPhase(ctx, s, seeded, *lookups, *concurrency)

	fmt.Println("---- results ----")
	printStats("consume", consumeStats)
	printStats("lookup", lookupStats)

	if consumed != int64(len(seeded)) {
		fmt.Fprintf(os.Stderr, "expected %d successful confirmations, got %d\n", len(seeded), consumed)
		os.Exit(1)
	}
}

// runConsumePhase presents every token twice. Exactly one of the two
// attempts must succeed; the other counts as an expected rejection.
func runConsumePhase(ctx context.Context, s store.Store, seeded []seededAccount, concurrency int) (phaseStats, int64) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		successes int64
		failures  int64
		ops       = len(seeded) * 2
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				key := internal.DigestToken(seeded[i/2].raw)
				t0 := time.Now()
				_, err := s.ConsumeConfirmation(ctx, key, time.Now())
				d := time.Since(t0)
				switch {
				case err == nil:
					atomic.AddInt64(&successes, 1)
				case !errors.Is(err, store.ErrNotFound):
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), successes
}

func runLookupPhase(ctx context.Context, s store.Store, seeded []seededAccount, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(seeded))
				t0 := time.Now()
				_, err := s.FindByEmail(ctx, seeded[idx].email)
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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

func buildAccount(i int) (*store.Account, string, error) {
	raw, digest, err := internal.NewSecretToken()
	if err != nil {
		return nil, "", err
	}
	now := time.Now()
	return &store.Account{
		ID:           uuid.NewString(),
		Username:     fmt.Sprintf("load-%d", i),
		Email:        fmt.Sprintf("load-%d@example.test", i),
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         "user",
		Confirmation: &store.Token{Key: digest, ExpiresAt: now.Add(24 * time.Hour)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, raw, nil
}
