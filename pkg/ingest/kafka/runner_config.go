package kafka

import (
	"time"

	"github.com/mohammed-shakir/digipin/internal/core/config"
)

type Config struct {
	Enabled bool

	Brokers []string
	Topic   string
	GroupID string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
	DedupeSize       int
}

// FromCore fills consumer defaults around the service ingest settings.
func FromCore(c config.IngestCfg) Config {
	return Config{
		Enabled:          c.Enabled,
		Brokers:          c.BrokerList(),
		Topic:            c.Topic,
		GroupID:          c.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    true,
		DedupeSize:       8192,
	}
}
