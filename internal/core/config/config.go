package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type IngestCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type Config struct {
	Addr             string
	LogLevel         string
	LogConsole       bool
	LogSampleN       int
	StoreDriver      string
	RedisAddr        string
	StoreOpTimeout   time.Duration
	LocationTTL      time.Duration
	DefaultPrecision int
	SearchPrecision  int
	MaxRadius        int
	MaxBatch         int
	QueryCacheSize   int
	Ingest           IngestCfg
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

func FromEnv() Config {
	precision := clamp(getint("DEFAULT_PRECISION", 10), 1, 10)
	search := clamp(getint("SEARCH_PRECISION", 8), 1, 10)

	driver := strings.ToLower(strings.TrimSpace(getenv("STORE_DRIVER", DriverMemory)))
	if driver != DriverRedis {
		driver = DriverMemory
	}

	maxRadius := getint("MAX_RADIUS", 25)
	if maxRadius < 1 {
		maxRadius = 1
	}
	maxBatch := getint("MAX_BATCH", 10000)
	if maxBatch < 1 {
		maxBatch = 1
	}

	return Config{
		Addr:             getenv("ADDR", ":8090"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogConsole:       getbool("LOG_CONSOLE", false),
		LogSampleN:       getint("LOG_SAMPLE_N", 0),
		StoreDriver:      driver,
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		StoreOpTimeout:   getduration("STORE_OP_TIMEOUT", 250*time.Millisecond),
		LocationTTL:      getduration("LOCATION_TTL", 0),
		DefaultPrecision: precision,
		SearchPrecision:  search,
		MaxRadius:        maxRadius,
		MaxBatch:         maxBatch,
		QueryCacheSize:   getint("QUERY_CACHE_SIZE", 4096),
		Ingest: IngestCfg{
			Enabled: getbool("INGEST_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "digipin-locations"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "digipin-registry"),
		},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// BrokerList splits the comma separated broker list.
func (c IngestCfg) BrokerList() []string {
	var out []string
	for p := range strings.SplitSeq(c.Brokers, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
