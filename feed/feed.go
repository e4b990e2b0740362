// Package feed obtains the value the oracle publishes: the price of the
// tracked pair in nano-units. Sources are pluggable; the stock ones pull
// a JSON HTTP API or run an operator-provided command.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Source produces the current price. A failed fetch skips the commit for
// the tick, it never publishes a guess.
type Source interface {
	FetchPrice(ctx context.Context) (int64, error)
}

// ErrOutOfRange marks a fetched price that failed the sanity bounds.
var ErrOutOfRange = errors.New("feed: price out of range")

// Source kinds.
const (
	KindHTTP    = "http"
	KindCommand = "command"
)

// Config selects and parameterizes a price source.
type Config struct {
	Kind string `mapstructure:"kind" json:"kind"`

	// HTTP source: GET URL, walk JSONPath into the document.
	URL      string `mapstructure:"url" json:"url"`
	JSONPath string `mapstructure:"json_path" json:"json_path"`

	// The published value is raw*Scale, or Scale/raw when Invert is set
	// (a USD-per-coin quote inverts into nano-coins per USD).
	Scale  float64 `mapstructure:"scale" json:"scale"`
	Invert bool    `mapstructure:"invert" json:"invert"`

	// Command source: run through the shell, stdout is the price.
	Command string `mapstructure:"command" json:"command"`

	// MaxPrice rejects implausible quotes, 0 disables the ceiling.
	MaxPrice int64 `mapstructure:"max_price" json:"max_price"`

	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultConfig publishes nano-coins per USD from the reference API, the
// pair the known deployment tracks.
func DefaultConfig() Config {
	return Config{
		Kind:     KindHTTP,
		URL:      "https://api.coingecko.com/api/v3/simple/price?ids=ergo&vs_currencies=usd",
		JSONPath: "ergo.usd",
		Scale:    1e9,
		Invert:   true,
		Timeout:  10 * time.Second,
	}
}

// Validate checks the config for the selected kind.
func (c Config) Validate() error {
	switch c.Kind {
	case KindHTTP:
		if c.URL == "" {
			return errors.New("feed: http source needs a url")
		}
		if c.JSONPath == "" {
			return errors.New("feed: http source needs a json path")
		}
	case KindCommand:
		if c.Command == "" {
			return errors.New("feed: command source needs a command")
		}
	default:
		return fmt.Errorf("feed: unknown source kind %q", c.Kind)
	}
	if c.Scale < 0 {
		return errors.New("feed: negative scale")
	}
	if c.MaxPrice < 0 {
		return errors.New("feed: negative price ceiling")
	}
	return nil
}

// New builds the configured source, wrapped in the sanity bounds.
func New(cfg Config, log *logrus.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	var src Source
	switch cfg.Kind {
	case KindHTTP:
		src = newHTTPSource(cfg, log)
	case KindCommand:
		src = &commandSource{command: cfg.Command, log: log}
	}
	return Bounded{Source: src, Max: cfg.MaxPrice}, nil
}

// Bounded rejects non-positive prices and, when Max is set, prices above
// it. A bad quote from an upstream API must never reach the pool.
type Bounded struct {
	Source Source
	Max    int64
}

func (b Bounded) FetchPrice(ctx context.Context) (int64, error) {
	price, err := b.Source.FetchPrice(ctx)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: %d is not positive", ErrOutOfRange, price)
	}
	if b.Max > 0 && price > b.Max {
		return 0, fmt.Errorf("%w: %d exceeds the ceiling %d", ErrOutOfRange, price, b.Max)
	}
	return price, nil
}
