package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/digipin/internal/ingest"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
	"github.com/mohammed-shakir/digipin/pkg/ingest/kafka"
)

type Config struct {
	BaseURL        string
	Mode           string
	Concurrency    int
	Duration       time.Duration
	ZipfS          float64
	ZipfV          float64
	Points         int
	Radius         int
	Seed           int64
	Register       string
	KafkaBrokers   string
	KafkaTopic     string
	OutputPrefix   string
	RequestTimeout time.Duration
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:8090", "digipin server base URL")
	flag.StringVar(&cfg.Mode, "mode", "mixed", "Request mix: encode|nearby|disk|mixed")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.Points, "points", 256, "Distinct points in pool")
	flag.IntVar(&cfg.Radius, "radius", 2, "Disk and nearby radius in cells")
	flag.Int64Var(&cfg.Seed, "seed", 0, "Random seed, 0 for time based")
	flag.StringVar(&cfg.Register, "register", "http", "How to register the point pool before the run: http|kafka|none")
	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", "localhost:9092", "Kafka brokers CSV for -register=kafka")
	flag.StringVar(&cfg.KafkaTopic, "kafka-topic", "digipin-locations", "Ingest topic for -register=kafka")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/loadgen", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.Parse()
	return cfg
}

type point struct {
	ID       string
	Lat, Lon float64
	Code     string // precision 8, the default search level
}

// city centres the hot points cluster around
var hotCentres = [][2]float64{
	{28.6139, 77.2090}, // Delhi
	{19.0760, 72.8777}, // Mumbai
	{12.9716, 77.5946}, // Bengaluru
	{22.5726, 88.3639}, // Kolkata
}

// makePoints puts a quarter of the pool (at least 8) around hotCentres and
// spreads the rest over the mainland.
func makePoints(count int, r *rand.Rand) []point {
	pts := make([]point, 0, count)
	add := func(id string, lat, lon float64) {
		code, err := digipin.Encode(lat, lon, 8)
		if err != nil {
			return
		}
		pts = append(pts, point{ID: id, Lat: lat, Lon: lon, Code: code})
	}
	hot := max(8, count/4)
	for i := 0; i < hot && len(pts) < count; i++ {
		c := hotCentres[i%len(hotCentres)]
		add(fmt.Sprintf("hot-%04d", i), c[0]+(r.Float64()-0.5)*0.1, c[1]+(r.Float64()-0.5)*0.1)
	}
	for i := 0; len(pts) < count; i++ {
		add(fmt.Sprintf("cold-%04d", i), 8+r.Float64()*(32-8), 69+r.Float64()*(92-69))
	}
	return pts
}

// requestURL builds the GET for request n. Mixed mode rotates through the
// three endpoints.
func requestURL(base *url.URL, mode string, n int, p point, radius int) string {
	if mode == "mixed" {
		mode = []string{"encode", "nearby", "disk"}[n%3]
	}
	u := *base
	root := strings.TrimRight(u.Path, "/")
	q := url.Values{}
	lat := strconv.FormatFloat(p.Lat, 'f', 6, 64)
	lon := strconv.FormatFloat(p.Lon, 'f', 6, 64)
	switch mode {
	case "nearby":
		u.Path = root + "/v1/locations/nearby"
		q.Set("lat", lat)
		q.Set("lon", lon)
		q.Set("radius", strconv.Itoa(radius))
	case "disk":
		u.Path = root + "/v1/disk/" + p.Code
		q.Set("radius", strconv.Itoa(radius))
	default:
		u.Path = root + "/v1/encode"
		q.Set("lat", lat)
		q.Set("lon", lon)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func registerHTTP(ctx context.Context, client *http.Client, base *url.URL, pts []point) error {
	for _, p := range pts {
		body, _ := json.Marshal(map[string]any{"name": p.ID, "lat": p.Lat, "lon": p.Lon})
		u := *base
		u.Path = strings.TrimRight(u.Path, "/") + "/v1/locations/" + url.PathEscape(p.ID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("register %s: %w", p.ID, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
			return fmt.Errorf("register %s: status=%d", p.ID, resp.StatusCode)
		}
	}
	return nil
}

// upsertEvents turns the pool into ingest events stamped with version.
func upsertEvents(pts []point, version int64, ts time.Time) []ingest.Event {
	out := make([]ingest.Event, 0, len(pts))
	for _, p := range pts {
		lat, lon := p.Lat, p.Lon
		out = append(out, ingest.Event{
			Version: version,
			Op:      ingest.OpUpsert,
			ID:      p.ID,
			Name:    p.ID,
			Lat:     &lat,
			Lon:     &lon,
			TS:      ts,
		})
	}
	return out
}

func registerKafka(brokers []string, topic string, pts []point) error {
	pub, err := kafka.NewPublisher(brokers, topic, len(pts), nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, ev := range upsertEvents(pts, now.UnixMilli(), now) {
		pub.Publish(ev)
	}
	if err := pub.Close(); err != nil {
		return err
	}
	if n := pub.Dropped(); n > 0 {
		return fmt.Errorf("%d events dropped", n)
	}
	return nil
}

// request result (one sample per request)
type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	ErrorMsg  string
	Target    string
}

type summary struct {
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	Mode          string    `json:"mode"`
	Points        int       `json:"points"`
	Radius        int       `json:"radius"`
	TargetURL     string    `json:"target"`
}

type aggregatedResult struct {
	total   int64
	success int64
	errors  int64
	latMs   []float64
}

func main() {
	cfg := loadConfig()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		log.Fatalf("bad -target %q", cfg.BaseURL)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}
	prefix := fmt.Sprintf("%s_%s", cfg.OutputPrefix, time.Now().UTC().Format("20060102_150405Z"))

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	pts := makePoints(cfg.Points, rand.New(rand.NewSource(seed)))
	if len(pts) == 0 {
		log.Fatalf("no points generated")
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          1024,
			MaxIdleConnsPerHost:   256,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   4 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	switch cfg.Register {
	case "http":
		if err := registerHTTP(context.Background(), httpClient, base, pts); err != nil {
			log.Fatalf("register over http: %v", err)
		}
	case "kafka":
		if err := registerKafka(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, pts); err != nil {
			log.Fatalf("register over kafka: %v", err)
		}
	}
	log.Printf("registered %d points via %s", len(pts), cfg.Register)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Printf("open csv: %v", err)
		return
	}
	defer func() { _ = csvFile.Close() }()
	csvWriter := csv.NewWriter(csvFile)

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go func() {
		_ = csvWriter.Write([]string{"timestamp", "latency_ms", "status", "error", "target"})
		var agg aggregatedResult
		for s := range samplesChan {
			agg.total++
			ms := float64(s.Latency.Microseconds()) / 1000.0
			if s.ErrorMsg == "" {
				agg.success++
				agg.latMs = append(agg.latMs, ms)
			} else {
				agg.errors++
			}
			_ = csvWriter.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				fmt.Sprintf("%.3f", ms),
				strconv.Itoa(s.Status),
				s.ErrorMsg,
				s.Target,
			})
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Printf("csv flush error: %v", err)
		}
		resultsChan <- agg
	}()

	startTime := time.Now()
	log.Printf("loadgen start target=%s mode=%s dur=%s conc=%d zipf(s=%.2f,v=%.2f) points=%d",
		cfg.BaseURL, cfg.Mode, cfg.Duration, cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, len(pts))

	imax := uint64(len(pts)) - 1
	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for workerID := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()
			rWorker := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipfDist := rand.NewZipf(rWorker, cfg.ZipfS, cfg.ZipfV, imax)
			for n := 0; ; n++ {
				if ctx.Err() != nil {
					return
				}
				p := pts[zipfDist.Uint64()]
				target := requestURL(base, cfg.Mode, n+id, p, cfg.Radius)

				startReq := time.Now()
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				resp, err := httpClient.Do(req)
				result := sample{Timestamp: startReq, Latency: time.Since(startReq), Target: target}
				if err != nil {
					result.ErrorMsg = err.Error()
				} else {
					result.Status = resp.StatusCode
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
					if resp.StatusCode < 200 || resp.StatusCode >= 300 {
						result.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
					}
				}

				select {
				case samplesChan <- result:
				case <-ctx.Done():
					return
				}
			}
		}(workerID)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	runSummary := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Concurrency:   cfg.Concurrency,
		Mode:          cfg.Mode,
		Points:        len(pts),
		Radius:        cfg.Radius,
		TargetURL:     cfg.BaseURL,
	}

	if jsonFile, err := os.Create(filepath.Clean(jsonPath)); err == nil {
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		_ = enc.Encode(runSummary)
		_ = jsonFile.Close()
	}

	log.Printf("done: total=%d succ=%d err=%d thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms",
		agg.total, agg.success, agg.errors, runSummary.ThroughputRPS, runSummary.P50Ms, runSummary.P95Ms, runSummary.P99Ms)
	log.Printf("wrote %s and %s", jsonPath, csvPath)
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
