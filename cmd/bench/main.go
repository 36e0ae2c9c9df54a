// README: Smoke and load runner against a running lifelink-api; checks HTTP, DB, Redis and the accept race.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	results := NewRunner(cfg).RunAll(ctx)

	fmt.Println("\n== Summary ==")
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", counts[statusPass], counts[statusFail], counts[statusSkip])

	if counts[statusFail] > 0 || (cfg.Strict && counts[statusSkip] > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL        string
	DSN            string
	RedisAddr      string
	MigrationPath  string
	ApplyMigration bool
	Strict         bool
	Timeout        time.Duration
	Concurrency    int
	Duration       time.Duration
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("LIFELINK_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&cfg.DSN, "dsn", os.Getenv("LIFELINK_DB__DSN"), "Postgres DSN; empty skips DB checks")
	flag.StringVar(&cfg.RedisAddr, "redis", os.Getenv("LIFELINK_REDIS__ADDR"), "Redis address; empty skips Redis checks")
	flag.StringVar(&cfg.MigrationPath, "migration", "migrations/0001_init.sql", "Migration SQL path")
	flag.BoolVar(&cfg.ApplyMigration, "apply-migration", false, "Apply migration SQL before the checks")
	flag.BoolVar(&cfg.Strict, "strict", false, "Treat skipped checks as failures")
	flag.DurationVar(&cfg.Timeout, "timeout", 2*time.Minute, "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", 20, "Donors in the accept race and workers in the load test")
	flag.DurationVar(&cfg.Duration, "duration", 10*time.Second, "Load test duration")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
