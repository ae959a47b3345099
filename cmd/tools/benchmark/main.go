package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/sensacare/vitals/internal/models"
)

// Config controls a load run against a running vitalsd.
type Config struct {
	BaseURL       string
	APIKey        string
	Users         int
	Duration      time.Duration
	WriteWorkers  int
	QueryWorkers  int
	BatchSize     int
	QueryInterval time.Duration
	QueryPath     string
	History       time.Duration
	Seed          int64
	ResultsDir    string
	HTTPClient    *http.Client
}

// Metrics is shared by all workers.
type Metrics struct {
	mu             sync.Mutex
	writeLatencies []float64
	queryLatencies []float64
	firstWriteErr  string
	firstQueryErr  string

	readingsSent   atomic.Int64
	readingsStored atomic.Int64
	writeErrors    atomic.Int64
	queries        atomic.Int64
	queryErrors    atomic.Int64
}

func (m *Metrics) recordWrite(latency float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeLatencies = append(m.writeLatencies, latency)
	if err != nil && m.firstWriteErr == "" {
		m.firstWriteErr = err.Error()
	}
}

func (m *Metrics) recordQuery(latency float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryLatencies = append(m.queryLatencies, latency)
	if err != nil && m.firstQueryErr == "" {
		m.firstQueryErr = err.Error()
	}
}

// Result summarises one operation type.
type Result struct {
	Operation  string
	Requests   int
	Errors     int64
	Duration   time.Duration
	Throughput float64 // requests/sec
	Avg        float64 // ms
	Min        float64
	Max        float64
	P50        float64
	P95        float64
	P99        float64
	FirstError string
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.BaseURL, "url", "http://127.0.0.1:8080", "Base URL of the vitals API")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for /v1")
	flag.IntVar(&cfg.Users, "users", 50, "Number of simulated users")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "Run duration")
	flag.IntVar(&cfg.WriteWorkers, "write-workers", 8, "Concurrent write workers")
	flag.IntVar(&cfg.QueryWorkers, "query-workers", 2, "Concurrent query workers")
	flag.IntVar(&cfg.BatchSize, "batch-size", 60, "Readings per write request")
	flag.DurationVar(&cfg.QueryInterval, "query-interval", 50*time.Millisecond, "Pause between queries per worker")
	flag.StringVar(&cfg.QueryPath, "query", "report", "Per-user endpoint to query: stats, hrv, trends, abnormalities, outliers or report")
	flag.DurationVar(&cfg.History, "history", 24*time.Hour, "How far back synthetic readings start")
	flag.Int64Var(&cfg.Seed, "seed", 1, "Random seed for synthetic readings")
	flag.StringVar(&cfg.ResultsDir, "results-dir", "", "Write a results file into this directory")
	flag.Parse()

	if cfg.Users <= 0 || cfg.BatchSize <= 0 {
		fmt.Fprintln(os.Stderr, "users and batch-size must be positive")
		os.Exit(2)
	}

	cfg.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("=== Vitals load run ===\n")
	fmt.Printf("  URL: %s  users: %d  duration: %s\n", cfg.BaseURL, cfg.Users, cfg.Duration)
	fmt.Printf("  writers: %d x %d readings  queriers: %d on /%s\n\n",
		cfg.WriteWorkers, cfg.BatchSize, cfg.QueryWorkers, cfg.QueryPath)

	m := run(cfg)

	write := summarize("Write", m.writeLatencies, m.writeErrors.Load(), cfg.Duration, m.firstWriteErr)
	query := summarize("Query", m.queryLatencies, m.queryErrors.Load(), cfg.Duration, m.firstQueryErr)

	fmt.Printf("\nReadings sent: %d, stored: %d\n\n", m.readingsSent.Load(), m.readingsStored.Load())
	printResult(os.Stdout, write)
	fmt.Println()
	printResult(os.Stdout, query)

	if cfg.ResultsDir != "" {
		if err := saveResults(cfg, write, query); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save results: %v\n", err)
		}
	}
}

func run(cfg Config) *Metrics {
	m := &Metrics{}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < cfg.WriteWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			writeWorker(id, cfg, m, stop)
		}(i)
	}
	for i := 0; i < cfg.QueryWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			queryWorker(id, cfg, m, stop)
		}(i)
	}
	go progress(m, cfg.Duration, start, stop)

	time.Sleep(cfg.Duration)
	close(stop)
	wg.Wait()
	return m
}

func userName(i int) string {
	return fmt.Sprintf("bench-user-%04d", i)
}

// generator produces a plausible heart-rate walk for one user, five seconds
// between readings. Once a user's walk passes the current time the service
// rejects the batch as future-dated.
type generator struct {
	rng  *rand.Rand
	bpm  float64
	next time.Time
}

func newGenerator(seed int64, start time.Time) *generator {
	return &generator{rng: rand.New(rand.NewSource(seed)), bpm: 70, next: start}
}

func (g *generator) batch(userID string, n int) []models.VitalReading {
	out := make([]models.VitalReading, n)
	for i := range out {
		// Mean-reverting walk around 75 with occasional exertion bursts.
		g.bpm += (75-g.bpm)*0.05 + g.rng.NormFloat64()*3
		if g.rng.Float64() < 0.01 {
			g.bpm += 40
		}
		g.bpm = math.Max(35, math.Min(210, g.bpm))

		r := models.VitalReading{
			ID:            uuid.NewString(),
			UserID:        userID,
			Timestamp:     g.next,
			Value:         int(math.Round(g.bpm)),
			ActivityLevel: models.ActivityRest,
		}
		if g.bpm > 110 {
			r.ActivityLevel = models.ActivityModerate
		}
		if g.rng.Float64() < 0.2 {
			hrv := 20 + g.rng.Float64()*60
			r.HRVValue = &hrv
		}
		out[i] = r
		g.next = g.next.Add(5 * time.Second)
	}
	return out
}

func writeWorker(id int, cfg Config, m *Metrics, stop <-chan struct{}) {
	// Each worker owns a disjoint set of users so timestamps stay monotonic.
	gens := map[int]*generator{}
	if id >= cfg.Users {
		return
	}
	origin := time.Now().Add(-cfg.History)
	user := id

	for {
		select {
		case <-stop:
			return
		default:
		}

		g, ok := gens[user]
		if !ok {
			g = newGenerator(cfg.Seed+int64(user), origin)
			gens[user] = g
		}
		readings := g.batch(userName(user), cfg.BatchSize)

		path := fmt.Sprintf("%s/v1/users/%s/readings", cfg.BaseURL, userName(user))
		var resp models.WriteReadingsResponse
		begin := time.Now()
		err := doJSON(cfg, http.MethodPost, path, models.WriteReadingsRequest{Readings: readings}, &resp)
		m.recordWrite(float64(time.Since(begin).Microseconds())/1000, err)

		m.readingsSent.Add(int64(len(readings)))
		if err != nil {
			m.writeErrors.Add(1)
		} else {
			m.readingsStored.Add(int64(resp.Stored))
		}

		user += cfg.WriteWorkers
		if user >= cfg.Users {
			user = id
		}
	}
}

func queryWorker(id int, cfg Config, m *Metrics, stop <-chan struct{}) {
	ticker := time.NewTicker(cfg.QueryInterval)
	defer ticker.Stop()
	rng := rand.New(rand.NewSource(cfg.Seed + int64(1000+id)))

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			end := time.Now()
			q := url.Values{}
			q.Set("start_time", end.Add(-cfg.History).Format(time.RFC3339))
			q.Set("end_time", end.Format(time.RFC3339))
			path := fmt.Sprintf("%s/v1/users/%s/%s?%s",
				cfg.BaseURL, userName(rng.Intn(cfg.Users)), cfg.QueryPath, q.Encode())

			begin := time.Now()
			err := doJSON(cfg, http.MethodGet, path, nil, nil)
			m.recordQuery(float64(time.Since(begin).Microseconds())/1000, err)
			m.queries.Add(1)
			if err != nil {
				m.queryErrors.Add(1)
			}
		}
	}
}

func progress(m *Metrics, duration time.Duration, start time.Time, stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			fmt.Printf("[%s remaining] readings: %d (%.0f/s, %d write errors) | queries: %d (%d errors)\n",
				(duration - elapsed).Round(time.Second),
				m.readingsSent.Load(), float64(m.readingsSent.Load())/elapsed.Seconds(),
				m.writeErrors.Load(), m.queries.Load(), m.queryErrors.Load())
		}
	}
}

// doJSON treats 207 as success: a partial batch is a normal outcome.
func doJSON(cfg Config, method, target string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("X-API-Key", cfg.APIKey)
	}

	resp, err := cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, method)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func summarize(op string, latencies []float64, errors int64, d time.Duration, firstErr string) Result {
	r := Result{
		Operation:  op,
		Requests:   len(latencies),
		Errors:     errors,
		Duration:   d,
		FirstError: firstErr,
	}
	if len(latencies) == 0 {
		return r
	}

	data := stats.Float64Data(latencies)
	r.Throughput = float64(len(latencies)-int(errors)) / d.Seconds()
	r.Avg, _ = data.Mean()
	r.Min, _ = data.Min()
	r.Max, _ = data.Max()
	r.P50, _ = data.Percentile(50)
	r.P95, _ = data.Percentile(95)
	r.P99, _ = data.Percentile(99)
	return r
}

func printResult(w io.Writer, r Result) {
	_, _ = fmt.Fprintf(w, "=== %s ===\n", r.Operation)
	_, _ = fmt.Fprintf(w, "Requests:   %d (%d errors)\n", r.Requests, r.Errors)
	_, _ = fmt.Fprintf(w, "Throughput: %.2f req/s\n", r.Throughput)
	if r.Errors > 0 && r.FirstError != "" {
		_, _ = fmt.Fprintf(w, "First error: %s\n", r.FirstError)
	}
	_, _ = fmt.Fprintf(w, "Latency ms: min %.2f  avg %.2f  p50 %.2f  p95 %.2f  p99 %.2f  max %.2f\n",
		r.Min, r.Avg, r.P50, r.P95, r.P99, r.Max)
}

func saveResults(cfg Config, results ...Result) error {
	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s/vitals_load_%s.txt", cfg.ResultsDir, time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "URL: %s\nUsers: %d\nDuration: %s\nBatch: %d\n\n",
		cfg.BaseURL, cfg.Users, cfg.Duration, cfg.BatchSize)
	for _, r := range results {
		printResult(f, r)
		_, _ = fmt.Fprintln(f)
	}
	fmt.Printf("\nResults saved to: %s\n", name)
	return nil
}
