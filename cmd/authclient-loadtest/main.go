// Command authclient-loadtest drives many concurrent pipeline calls against
// an in-process backend whose access tokens expire quickly, and reports how
// many refreshes the storms produced.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var signingKey = []byte("authclient-loadtest-signing-key-32b")

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "total pipeline calls")
		ttl         = flag.Duration("ttl", 2*time.Second, "access token lifetime issued by the test backend")
		refreshLag  = flag.Duration("refresh-latency", 20*time.Millisecond, "artificial refresh endpoint latency")
		useRedis    = flag.Bool("redis", false, "keep the session in redis instead of memory")
		redisAddr   = flag.String("redis-addr", "", "redis address; empty uses REDIS_ADDR or miniredis")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *ttl < time.Second {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0 and ttl >= 1s")
		os.Exit(2)
	}

	b, err := newBackend(*ttl, *refreshLag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}
	srv := httptest.NewServer(b.routes())
	defer srv.Close()

	cfg := authclient.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Session.Backend = authclient.SessionBackendMemory

	builder := authclient.New()
	if *useRedis {
		rdb, cleanup, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		cfg.Session.Backend = authclient.SessionBackendRedis
		cfg.Session.RedisKey = "loadtest"
		builder.WithRedis(rdb)
	}

	client, err := builder.WithConfig(cfg).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Login(ctx, "load@example.edu", "pw"); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}

	stats, err := runPhase(ctx, client, *ops, *concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}

	rs := client.RefreshStats()
	fmt.Println("---- results ----")
	printStats("requests", stats)
	fmt.Printf("refresh: backend_calls=%d coordinated=%d waiters=%d replays=%d\n",
		b.refreshCalls.Load(),
		rs.Refreshes,
		rs.Waiters,
		client.Metrics().Value(authclient.MetricRequestReplays),
	)
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return rdb, func() { _ = rdb.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}

func runPhase(ctx context.Context, client *authclient.Client, ops, concurrency int) (phaseStats, error) {
	var (
		cursor    atomic.Int64
		failures  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, ops)
	)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			local := make([]time.Duration, 0, ops/concurrency+1)
			defer func() {
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
			}()
			for {
				if int(cursor.Add(1)) > ops {
					return nil
				}
				t0 := time.Now()
				_, err := client.Get(gctx, "/api/courses")
				local = append(local, time.Since(t0))
				if err != nil {
					failures.Add(1)
					if authclient.IsAuthError(err) {
						return fmt.Errorf("session lost: %w", err)
					}
				}
			}
		})
	}
	err := g.Wait()
	return computeStats(time.Since(start), latencies, failures.Load()), err
}

/*
====================================
TEST BACKEND
====================================
*/

type backend struct {
	signer    *jwt.Signer
	inspector *jwt.Inspector
	lag       time.Duration

	mu       sync.Mutex
	refreshT map[string]bool

	refreshCalls atomic.Int64
}

func newBackend(ttl, lag time.Duration) (*backend, error) {
	signer, err := jwt.NewSigner(jwt.SignerConfig{SigningMethod: jwt.MethodHS256, PrivateKey: signingKey, TTL: ttl})
	if err != nil {
		return nil, err
	}
	insp, err := jwt.NewInspector(jwt.InspectorConfig{SigningMethod: jwt.MethodHS256, VerifyKey: signingKey})
	if err != nil {
		return nil, err
	}
	return &backend{signer: signer, inspector: insp, lag: lag, refreshT: map[string]bool{}}, nil
}

func (b *backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		b.writePair(w)
	})
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		time.Sleep(b.lag)
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		known := b.refreshT[body.RefreshToken]
		delete(b.refreshT, body.RefreshToken)
		b.mu.Unlock()
		if !known {
			// A reused refresh token means two refreshes raced.
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.writePair(w)
	})
	mux.HandleFunc("GET /api/courses", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, err := b.inspector.Parse(token); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"courses":[]}`))
	})
	return mux
}

func (b *backend) writePair(w http.ResponseWriter) {
	access, err := b.signer.Issue("u1", "load@example.edu", "student", uuid.NewString())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	refresh := uuid.NewString()
	b.mu.Lock()
	b.refreshT[refresh] = true
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": access, "refreshToken": refresh})
}

/*
====================================
REPORTING
====================================
*/

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
		return phaseStats{total: total, failures: failures}
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

func percentile(sorted []time.Duration, p int) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
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
