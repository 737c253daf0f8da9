package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process settings read from the environment at startup.
type Config struct {
	ServiceName     string
	Env             string
	HTTPAddr        string
	LogFile         string
	IDMaxAttempts   int
	EventQueueSize  int
	KafkaBrokers    []string
	KafkaTopic      string
	ShutdownTimeout time.Duration
}

// RelayEnabled reports whether events should be forwarded to Kafka.
func (c Config) RelayEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads settings through getenv. Every invalid value is reported.
func LoadFrom(getenv func(string) string) (Config, error) {
	env := lookup(getenv)

	cfg := Config{
		ServiceName:  env.str("SERVICE_NAME", "minishop-ledger"),
		Env:          env.str("ENV", "dev"),
		HTTPAddr:     env.str("HTTP_ADDR", ":8080"),
		LogFile:      env.str("LOG_FILE", ""),
		KafkaBrokers: splitList(env.str("KAFKA_BROKERS", "")),
		KafkaTopic:   env.str("KAFKA_TOPIC", "ledger.events"),
	}

	var errs []error
	var err error
	if cfg.IDMaxAttempts, err = env.positiveInt("ID_MAX_ATTEMPTS", 8); err != nil {
		errs = append(errs, err)
	}
	if cfg.EventQueueSize, err = env.positiveInt("EVENT_QUEUE_SIZE", 1024); err != nil {
		errs = append(errs, err)
	}
	if cfg.ShutdownTimeout, err = env.duration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

type lookup func(string) string

func (l lookup) str(key, def string) string {
	if v := strings.TrimSpace(l(key)); v != "" {
		return v
	}
	return def
}

func (l lookup) positiveInt(key string, def int) (int, error) {
	raw := l.str(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: want a positive integer, got %q", key, raw)
	}
	return n, nil
}

func (l lookup) duration(key string, def time.Duration) (time.Duration, error) {
	raw := l.str(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: want a positive duration, got %q", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
