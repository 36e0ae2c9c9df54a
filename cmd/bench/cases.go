package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"lifelink/internal/infra"
	"lifelink/internal/modules/matching"
	"lifelink/internal/types"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"

	hospitalToken = "hospital:hosp_1"
	adminToken    = "admin:admin_1"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// raceRequestID is set by the accept race for the follow-up DB and Redis checks.
	raceRequestID string
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg, httpc: &http.Client{Timeout: 10 * time.Second}}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx, r)
		if res.Latency == 0 {
			res.Latency = time.Since(start).Round(time.Millisecond)
		}
		results = append(results, res)
		fmt.Printf("%-5s %s (%s)", res.Status, tc.Name, res.Latency)
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: statusSkip, Note: "no dsn"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return fromErr(r.db.Ping(ctx))
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: statusSkip, Note: "no redis address"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return fromErr(r.redis.Ping(ctx).Err())
		}},
		{Name: "Migration: apply", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil || !r.cfg.ApplyMigration {
				return Result{Status: statusSkip}
			}
			return fromErr(infra.ApplyMigration(ctx, r.db, r.cfg.MigrationPath))
		}},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			code, _, err := r.call(ctx, http.MethodGet, "/health", "", nil)
			return expect(code, err, http.StatusOK)
		}},
		{Name: "API: auth required", Run: func(ctx context.Context, r *Runner) Result {
			code, _, err := r.call(ctx, http.MethodGet, "/api/hospitals", "", nil)
			return expect(code, err, http.StatusUnauthorized)
		}},
		{Name: "API: seeded hospitals", Run: func(ctx context.Context, r *Runner) Result {
			var out struct {
				Hospitals []json.RawMessage `json:"hospitals"`
			}
			code, body, err := r.call(ctx, http.MethodGet, "/api/hospitals", adminToken, nil)
			if res := expect(code, err, http.StatusOK); res.Status != statusPass {
				return res
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if len(out.Hospitals) == 0 {
				return Result{Status: statusFail, Note: "no hospitals; start the api with seed enabled"}
			}
			return Result{Status: statusPass, Note: fmt.Sprintf("hospitals=%d", len(out.Hospitals))}
		}},
		{Name: "Concurrency: many donors accept one request", Run: acceptRace},
		{Name: "DB: accept recorded once", Run: checkAcceptEvents},
		{Name: "Redis: dispatch recorded", Run: checkDispatch},
		{Name: "Perf: donor search throughput", Run: func(ctx context.Context, r *Runner) Result {
			return r.load(ctx, "/api/donors?blood_group=O%2B&lat=37.7833&lng=-122.4167&radius_km=25", hospitalToken)
		}},
	}
}

func (r *Runner) call(ctx context.Context, method, path, token string, body any) (int, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

// acceptRace registers Concurrency fresh AB- donors next to hosp_1, raises
// one AB- request and lets every donor accept at once. Exactly one may win.
func acceptRace(ctx context.Context, r *Runner) Result {
	run := time.Now().UnixNano()
	donors := make([]string, r.cfg.Concurrency)
	for i := range donors {
		id := fmt.Sprintf("bench_%d_%d", run, i)
		code, body, err := r.call(ctx, http.MethodPost, "/api/donors", "donor:"+id, map[string]any{
			"name":        "Bench Donor",
			"age":         30,
			"blood_group": "AB-",
			"phone":       "555-0000",
			"email":       id + "@bench.local",
			"password":    "benchpass",
			"position":    map[string]float64{"lat": 37.7833, "lng": -122.4167},
		})
		if err != nil || code != http.StatusCreated {
			return Result{Status: statusFail, Note: fmt.Sprintf("register %s: %d %s %v", id, code, body, err)}
		}
		donors[i] = id
	}

	var submitted struct {
		Request struct {
			ID string `json:"id"`
		} `json:"request"`
		MatchedCount int `json:"matched_count"`
	}
	code, body, err := r.call(ctx, http.MethodPost, "/api/requests", hospitalToken, map[string]any{
		"patient_name": "Bench Patient",
		"blood_group":  "AB-",
		"urgency":      "Critical",
		"radius_km":    1,
	})
	if err != nil || code != http.StatusCreated {
		return Result{Status: statusFail, Note: fmt.Sprintf("submit: %d %s %v", code, body, err)}
	}
	if err := json.Unmarshal(body, &submitted); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	r.raceRequestID = submitted.Request.ID
	if submitted.MatchedCount < len(donors) {
		return Result{Status: statusFail, Note: fmt.Sprintf("matched %d of %d donors", submitted.MatchedCount, len(donors))}
	}

	notes := make([]string, len(donors))
	for i, id := range donors {
		nid, err := r.findNotification(ctx, id, submitted.Request.ID)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		notes[i] = nid
	}

	var (
		wg    sync.WaitGroup
		wins  atomic.Int32
		fails atomic.Int32
	)
	start := time.Now()
	for i := range donors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var res struct {
				RequestAccepted bool `json:"request_accepted"`
			}
			code, body, err := r.call(ctx, http.MethodPost, "/api/notifications/"+notes[i]+"/respond", "donor:"+donors[i], map[string]string{"decision": "Accepted"})
			if err != nil || code != http.StatusOK || json.Unmarshal(body, &res) != nil {
				fails.Add(1)
				return
			}
			if res.RequestAccepted {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	latency := time.Since(start)

	note := fmt.Sprintf("winners=%d errors=%d donors=%d", wins.Load(), fails.Load(), len(donors))
	if wins.Load() != 1 || fails.Load() > 0 {
		return Result{Status: statusFail, Latency: latency, Note: note}
	}
	return Result{Status: statusPass, Latency: latency, Note: note}
}

func (r *Runner) findNotification(ctx context.Context, donorID, requestID string) (string, error) {
	var inbox struct {
		Notifications []struct {
			ID        string `json:"id"`
			RequestID string `json:"request_id"`
		} `json:"notifications"`
	}
	code, body, err := r.call(ctx, http.MethodGet, "/api/notifications", "donor:"+donorID, nil)
	if err != nil || code != http.StatusOK {
		return "", fmt.Errorf("inbox %s: %d %v", donorID, code, err)
	}
	if err := json.Unmarshal(body, &inbox); err != nil {
		return "", err
	}
	for _, n := range inbox.Notifications {
		if n.RequestID == requestID {
			return n.ID, nil
		}
	}
	return "", fmt.Errorf("donor %s was not notified", donorID)
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "no dsn"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, t).Scan(&exists); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table " + t}
		}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("tables=%d", len(tables))}
}

func checkAcceptEvents(ctx context.Context, r *Runner) Result {
	if r.db == nil || r.raceRequestID == "" {
		return Result{Status: statusSkip}
	}
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM request_state_events WHERE request_id = $1 AND to_status = 'Accepted'`,
		r.raceRequestID).Scan(&n)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if n != 1 {
		return Result{Status: statusFail, Note: fmt.Sprintf("accepted events=%d", n)}
	}
	return Result{Status: statusPass}
}

func checkDispatch(ctx context.Context, r *Runner) Result {
	if r.redis == nil || r.raceRequestID == "" {
		return Result{Status: statusSkip}
	}
	dispatch := matching.NewStore(r.redis)
	id := types.ID(r.raceRequestID)
	at, ok, err := dispatch.DispatchedAt(ctx, id)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if !ok {
		return Result{Status: statusFail, Note: "no dispatch recorded"}
	}
	notified, err := dispatch.NotifiedDonors(ctx, id)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if len(notified) < r.cfg.Concurrency {
		return Result{Status: statusFail, Note: fmt.Sprintf("notified=%d", len(notified))}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("notified=%d at=%s", len(notified), at.Format(time.RFC3339))}
}

func (r *Runner) load(ctx context.Context, path, token string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, _, err := r.call(ctx, http.MethodGet, path, token, nil)
				if err != nil || code != http.StatusOK {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		}()
	}
	wg.Wait()

	if count.Load() == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Latency: r.cfg.Duration, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}

func fromErr(err error) Result {
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func expect(code int, err error, want int) Result {
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if code != want {
		return Result{Status: statusFail, Note: fmt.Sprintf("status=%d want=%d", code, want)}
	}
	return Result{Status: statusPass}
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	matches := createTable.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}
