// Package runtimecfg determines which backend address the console talks
// to. Resolution runs once at boot, before any authenticated request is
// constructed; a failed fetch falls back to the default address and the
// console keeps starting.
package runtimecfg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arcletproject/entari-console/internal/notify"
)

const (
	// DefaultBaseURL is used whenever the runtime descriptor cannot be
	// fetched or parsed.
	DefaultBaseURL = "http://127.0.0.1:5140/api"

	// CacheKey is the settings key the resolved address is mirrored to.
	// The cache is advisory; Resolve always re-fetches.
	CacheKey = "srv_base"

	descriptorPath  = "/frontend/runtime.json"
	maxDescriptor   = 64 << 10
	resolverTimeout = 5 * time.Second
)

// Cache receives the resolved address for debugging/inspection.
type Cache interface {
	SetSetting(key, value string) error
}

// Resolver fetches the runtime descriptor from the console origin and
// publishes the resolved API base address.
type Resolver struct {
	http     *http.Client
	origin   string
	notifier *notify.Bus
	cache    Cache

	mu       sync.RWMutex
	resolved string
}

// Option customises the resolver.
type Option func(*Resolver)

// WithTransport overrides the HTTP transport (primarily for tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(r *Resolver) {
		if rt != nil {
			r.http.Transport = rt
		}
	}
}

// WithCache mirrors resolved addresses to the given cache.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// New builds a resolver for the given console origin. notifier may be nil.
func New(origin string, notifier *notify.Bus, opts ...Option) *Resolver {
	r := &Resolver{
		http:     &http.Client{Timeout: resolverTimeout},
		origin:   strings.TrimRight(origin, "/"),
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches the runtime descriptor and returns the resolved base
// address. Every failure mode is non-fatal: the operator is notified
// exactly once and the default address is used. The result is also
// published through BaseURL for the request pipeline.
func (r *Resolver) Resolve(ctx context.Context) string {
	base := DefaultBaseURL

	switch descriptor, err := r.fetch(ctx); {
	case err != nil:
		r.notifier.Errorf(notify.SourceResolver, "runtime config fetch failed: %v", err)
	case descriptor == nil:
		r.notifier.Warnf(notify.SourceResolver, "runtime config unavailable, using default base URL %s", DefaultBaseURL)
	case strings.TrimSpace(descriptor.BaseURL) == "":
		r.notifier.Warnf(notify.SourceResolver, "runtime config has no baseURL, using default %s", DefaultBaseURL)
	default:
		base = strings.TrimSpace(descriptor.BaseURL)
	}

	r.mu.Lock()
	r.resolved = base
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.SetSetting(CacheKey, base); err != nil {
			log.Printf("[Resolver] failed to cache base URL: %v", err)
		}
	}
	return base
}

// BaseURL implements the request pipeline's address source. Before
// Resolve settles it reports the default address.
func (r *Resolver) BaseURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.resolved == "" {
		return DefaultBaseURL
	}
	return r.resolved
}

type descriptor struct {
	BaseURL string `json:"baseURL"`
}

// fetch returns (nil, nil) for a non-2xx response and an error for
// transport or parse failures. The cache-busting query parameter defeats
// intermediary caching of the descriptor.
func (r *Resolver) fetch(ctx context.Context) (*descriptor, error) {
	url := fmt.Sprintf("%s%s?%s", r.origin, descriptorPath, uuid.NewString())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptor))
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	var d descriptor
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return &d, nil
}
