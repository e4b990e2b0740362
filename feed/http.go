package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

type httpSource struct {
	url    string
	path   []string
	scale  float64
	invert bool
	hc     *http.Client
	log    *logrus.Logger
}

func newHTTPSource(cfg Config, log *logrus.Logger) *httpSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	scale := cfg.Scale
	if scale == 0 {
		scale = 1
	}
	return &httpSource{
		url:    cfg.URL,
		path:   strings.Split(cfg.JSONPath, "."),
		scale:  scale,
		invert: cfg.Invert,
		hc:     &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (s *httpSource) FetchPrice(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("feed: %w", err)
	}
	resp, err := s.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("feed: fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed: fetch %s: http %d", s.url, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("feed: read response: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("feed: decode response: %w", err)
	}
	quote, err := lookup(doc, s.path)
	if err != nil {
		return 0, err
	}
	if quote <= 0 || math.IsNaN(quote) || math.IsInf(quote, 0) {
		return 0, fmt.Errorf("%w: quote %v", ErrOutOfRange, quote)
	}

	price := quote * s.scale
	if s.invert {
		price = s.scale / quote
	}
	if price > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v overflows", ErrOutOfRange, price)
	}
	value := int64(math.Round(price))
	s.log.WithFields(logrus.Fields{"quote": quote, "price": value}).Debug("price fetched")
	return value, nil
}

// lookup walks a dotted path into a decoded JSON document and returns the
// number at the end. String-typed numbers are accepted, some price APIs
// quote them that way.
func lookup(doc any, path []string) (float64, error) {
	cur := doc
	for i, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("feed: %s is not an object", strings.Join(path[:i], "."))
		}
		cur, ok = obj[key]
		if !ok {
			return 0, fmt.Errorf("feed: no %s in response", strings.Join(path[:i+1], "."))
		}
	}
	switch v := cur.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("feed: %s is not a number: %q", strings.Join(path, "."), v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("feed: %s is not a number", strings.Join(path, "."))
	}
}
