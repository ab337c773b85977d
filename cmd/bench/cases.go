// README: Smoke checks: environment, schema, auth gating, signed-in reads, ledger exclusivity and load.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"kiloadmin/internal/modules/pricing"
	"kiloadmin/internal/types"
	"kiloadmin/migrations"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	token string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func Summarize(results []Result) map[string]int {
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	results := r.run(ctx, r.cases())

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) run(ctx context.Context, tests []TestCase) []Result {
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{Name: "Env: Postgres connect", Run: checkPostgres},
		{Name: "Env: Redis connect", Run: checkRedis},
		{Name: "Migration: apply (optional)", Run: applyMigrations},
		{Name: "Migration: tables exist", Run: checkTables},
		httpCase("HTTP: health", http.MethodGet, base+"/health", nil, false, http.StatusOK),
		httpCase("Auth: wrong password -> 401", http.MethodPost, base+"/api/auth/signin",
			map[string]string{"phone": "000000000", "password": "wrong!"}, false, http.StatusUnauthorized),
		httpCase("Auth: no token -> 401", http.MethodGet, base+"/api/fee-configs", nil, false, http.StatusUnauthorized),
		{Name: "Auth: sign in", Run: signIn},
		httpCase("Menus: signed in", http.MethodGet, base+"/api/menus", nil, true, http.StatusOK),
		httpCase("Drivers: list", http.MethodGet, base+"/api/drivers?order=asc", nil, true, http.StatusOK),
		httpCase("Drivers: invalid create -> 400", http.MethodPost, base+"/api/drivers",
			map[string]string{"driver_id": "7B000", "password": "1"}, true, http.StatusBadRequest),
		httpCase("Drivers: unknown id -> 404", http.MethodGet, base+"/api/drivers/"+uuid.NewString(), nil, true, http.StatusNotFound),
		{Name: "Fees: quote first config", Run: quoteFirstConfig},
		{Name: "Fees: trigger ledger is exclusive", Run: ledgerExclusive},
		{
			Name: "Perf: health throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/health")
			},
		},
	}
}

func checkPostgres(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusFail, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: StatusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

func applyMigrations(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: StatusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: StatusFail, Note: "db not configured"}
	}
	if err := migrations.Apply(ctx, r.db); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusFail, Note: "db not configured"}
	}
	tables, err := migrations.Tables()
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	var missing []string
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+t).Scan(&exists)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if !exists {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return Result{Status: StatusFail, Note: "missing: " + strings.Join(missing, ", ")}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("%d tables", len(tables))}
}

func (r *Runner) do(ctx context.Context, method, url string, body any, withToken bool) (*http.Response, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if withToken {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	return resp, time.Since(start), err
}

// httpCase expects one status. Cases needing a session skip without one.
func httpCase(name, method, url string, body any, needsToken bool, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			if needsToken && r.token == "" {
				return Result{Status: StatusSkip, Note: "not signed in"}
			}
			resp, latency, err := r.do(ctx, method, url, body, needsToken)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			status := StatusFail
			if resp.StatusCode == want {
				status = StatusPass
			}
			return Result{Status: status, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
		},
	}
}

func signIn(ctx context.Context, r *Runner) Result {
	if r.cfg.Phone == "" || r.cfg.Password == "" {
		return Result{Status: StatusSkip, Note: "KILO_BENCH_PHONE/KILO_BENCH_PASSWORD not set"}
	}
	resp, latency, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/auth/signin",
		map[string]string{"phone": r.cfg.Phone, "password": r.cfg.Password}, false)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	var session struct {
		Token string `json:"token"`
		Role  string `json:"admin_role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	r.token = session.Token
	return Result{Status: StatusPass, Latency: latency, Note: "role=" + session.Role}
}

func quoteFirstConfig(ctx context.Context, r *Runner) Result {
	if r.token == "" {
		return Result{Status: StatusSkip, Note: "not signed in"}
	}
	resp, _, err := r.do(ctx, http.MethodGet, r.cfg.BaseURL+"/api/fee-configs", nil, true)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden {
		return Result{Status: StatusSkip, Note: "signed in as staff"}
	}
	var configs []pricing.FeeConfig
	if err := json.NewDecoder(resp.Body).Decode(&configs); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if len(configs) == 0 {
		return Result{Status: StatusSkip, Note: "no fee configs"}
	}

	qresp, latency, err := r.do(ctx, http.MethodGet, r.cfg.BaseURL+"/api/fee-configs/"+string(configs[0].ID)+"/quote", nil, true)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer qresp.Body.Close()
	var q pricing.Quote
	if err := json.NewDecoder(qresp.Body).Decode(&q); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if q.Total != q.Base+q.Surcharge {
		return Result{Status: StatusFail, Note: fmt.Sprintf("total %d != base %d + surcharge %d", q.Total, q.Base, q.Surcharge)}
	}
	return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("at=%s total=%d", q.At, q.Total)}
}

// ledgerExclusive races claims on one throwaway key; exactly one may win.
func ledgerExclusive(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: StatusSkip, Note: "redis not configured"}
	}
	ledger := pricing.NewRedisLedger(r.redis, time.Minute)
	key := pricing.TriggerKey{Date: "bench", SlotID: types.ID("bench-" + uuid.NewString()), Boundary: pricing.BoundaryStart}

	var wins, errs int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.Claim(ctx, key)
			switch {
			case err != nil:
				atomic.AddInt64(&errs, 1)
			case ok:
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	_ = ledger.Release(ctx, key)

	if errs > 0 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("errors=%d", errs)}
	}
	if wins != 1 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("winners=%d", wins)}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("claimers=%d", r.cfg.Concurrency)}
}

func perfLoad(ctx context.Context, r *Runner, url string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				resp, _, err := r.do(ctx, http.MethodGet, url, nil, false)
				if err != nil {
					atomic.AddInt64(&errCount, 1)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				atomic.AddInt64(&count, 1)
			}
		}()
	}
	wg.Wait()
	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}
