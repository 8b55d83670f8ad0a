// Package config loads the YAML configuration shared by the intseq commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/illmade-knight/go-intseq/pkg/cache"
	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"gopkg.in/yaml.v3"
)

// Cache store backends.
const (
	StoreNone      = ""
	StoreMemory    = "memory"
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
)

// Audit sinks.
const (
	SinkNone     = ""
	SinkBigQuery = "bigquery"
	SinkGCS      = "gcs"
)

// ServiceConfig holds common configuration fields for all services.
type ServiceConfig struct {
	LogLevel        string `yaml:"log_level"`
	LogPretty       bool   `yaml:"log_pretty"`
	HTTPPort        string `yaml:"http_port"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	ServiceName     string `yaml:"service_name"`
}

// LimitsConfig bounds what a single request may ask for.
type LimitsConfig struct {
	MaxQuerySize  int `yaml:"max_query_size"`
	NativeIntBits int `yaml:"native_int_bits"`
}

// CacheConfig describes the result cache tiers.
type CacheConfig struct {
	LRUSize      int                   `yaml:"lru_size"`
	Store        string                `yaml:"store"`
	WriteTimeout time.Duration         `yaml:"write_timeout"`
	Redis        cache.RedisConfig     `yaml:"redis"`
	Firestore    cache.FirestoreConfig `yaml:"firestore"`
}

// PubSubConfig configures the asynchronous request worker.
type PubSubConfig struct {
	Enabled        bool          `yaml:"enabled"`
	SubscriptionID string        `yaml:"subscription_id"`
	ReplyTopicID   string        `yaml:"reply_topic_id"`
	NumWorkers     int           `yaml:"num_workers"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// AuditConfig configures the computation audit log.
type AuditConfig struct {
	Sink          string        `yaml:"sink"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	InsertTimeout time.Duration `yaml:"insert_timeout"`
	DatasetID     string        `yaml:"dataset_id"`
	TableID       string        `yaml:"table_id"`
	Bucket        string        `yaml:"bucket"`
	ObjectPrefix  string        `yaml:"object_prefix"`
}

// Config is the root of the configuration file.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Limits  LimitsConfig  `yaml:"limits"`
	// Sequences overrides the max index of implementations, keyed "id.kind".
	Sequences map[string]int `yaml:"sequences"`
	Cache     CacheConfig    `yaml:"cache"`
	PubSub    PubSubConfig   `yaml:"pubsub"`
	Audit     AuditConfig    `yaml:"audit"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			LogLevel:    "info",
			HTTPPort:    ":8080",
			ServiceName: "intseq",
		},
		Limits: LimitsConfig{
			MaxQuerySize:  100,
			NativeIntBits: sequence.DefaultNativeBits,
		},
		Cache: CacheConfig{
			LRUSize:      10_000,
			WriteTimeout: 10 * time.Second,
			Redis:        cache.RedisConfig{Addr: "localhost:6379", CacheTTL: 24 * time.Hour, KeyPrefix: "intseq:"},
			Firestore:    cache.FirestoreConfig{CollectionName: "intseq-results"},
		},
		PubSub: PubSubConfig{
			SubscriptionID: "intseq-requests-sub",
			ReplyTopicID:   "intseq-replies",
			NumWorkers:     4,
			ProcessTimeout: 2 * time.Minute,
		},
		Audit: AuditConfig{
			BatchSize:     500,
			FlushInterval: 10 * time.Second,
			InsertTimeout: 30 * time.Second,
			DatasetID:     "intseq",
			TableID:       "computations",
			ObjectPrefix:  "audit",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path loads only defaults and environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode rejects unknown keys so that typos surface at startup.
func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from INTSEQ_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"INTSEQ_LOG_LEVEL":           &c.Service.LogLevel,
		"INTSEQ_HTTP_PORT":           &c.Service.HTTPPort,
		"INTSEQ_PROJECT_ID":          &c.Service.ProjectID,
		"INTSEQ_CREDENTIALS_FILE":    &c.Service.CredentialsFile,
		"INTSEQ_CACHE_STORE":         &c.Cache.Store,
		"INTSEQ_REDIS_ADDR":          &c.Cache.Redis.Addr,
		"INTSEQ_REDIS_PASSWORD":      &c.Cache.Redis.Password,
		"INTSEQ_PUBSUB_SUBSCRIPTION": &c.PubSub.SubscriptionID,
		"INTSEQ_PUBSUB_REPLY_TOPIC":  &c.PubSub.ReplyTopicID,
		"INTSEQ_AUDIT_SINK":          &c.Audit.Sink,
		"INTSEQ_AUDIT_BUCKET":        &c.Audit.Bucket,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"INTSEQ_MAX_QUERY_SIZE":  &c.Limits.MaxQuerySize,
		"INTSEQ_NATIVE_INT_BITS": &c.Limits.NativeIntBits,
		"INTSEQ_LRU_SIZE":        &c.Cache.LRUSize,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv("INTSEQ_PUBSUB_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid INTSEQ_PUBSUB_ENABLED %q: %w", v, err)
		}
		c.PubSub.Enabled = b
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	var errs []error
	if c.Limits.MaxQuerySize <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_query_size must be positive, got %d", c.Limits.MaxQuerySize))
	}
	if c.Limits.NativeIntBits < 1 || c.Limits.NativeIntBits > sequence.DefaultNativeBits {
		errs = append(errs, fmt.Errorf("limits.native_int_bits must be in [1, %d], got %d",
			sequence.DefaultNativeBits, c.Limits.NativeIntBits))
	}
	for name, maxIndex := range c.Sequences {
		if maxIndex < 0 {
			errs = append(errs, fmt.Errorf("sequences.%s must not be negative", name))
		}
	}
	switch c.Cache.Store {
	case StoreNone, StoreMemory, StoreRedis:
	case StoreFirestore:
		if c.Service.ProjectID == "" {
			errs = append(errs, errors.New("cache.store firestore requires service.project_id"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.store %q", c.Cache.Store))
	}
	if c.PubSub.Enabled {
		if c.Service.ProjectID == "" {
			errs = append(errs, errors.New("pubsub requires service.project_id"))
		}
		if c.PubSub.SubscriptionID == "" || c.PubSub.ReplyTopicID == "" {
			errs = append(errs, errors.New("pubsub requires subscription_id and reply_topic_id"))
		}
	}
	switch c.Audit.Sink {
	case SinkNone:
	case SinkBigQuery, SinkGCS:
		if c.Service.ProjectID == "" {
			errs = append(errs, fmt.Errorf("audit sink %s requires service.project_id", c.Audit.Sink))
		}
		if c.Audit.Sink == SinkGCS && c.Audit.Bucket == "" {
			errs = append(errs, errors.New("audit sink gcs requires audit.bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audit.sink %q", c.Audit.Sink))
	}
	return errors.Join(errs...)
}
