package maps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ridematch/internal/types"
)

// Kind distinguishes request types for cache TTLs.
type Kind string

const (
	KindMatrix     Kind = "matrix"
	KindDirections Kind = "directions"
	KindGeocode    Kind = "geocode"
)

const defaultMaxCoordinates = 25

// Options configures a Provider.
type Options struct {
	// MaxCoordinates is the most points the backend accepts in one request.
	MaxCoordinates int
	// Concurrency bounds in-flight backend requests for one Matrix call.
	Concurrency int
	TTL         map[Kind]time.Duration
}

// Stats is a diagnostic snapshot of provider traffic.
type Stats struct {
	Calls     int64   `json:"calls"`
	CacheHits int64   `json:"cache_hits"`
	Failures  int64   `json:"failures"`
	HitRate   float64 `json:"hit_rate"`
}

// Provider answers travel-time queries through a cache, a rate limiter and
// a Backend. Transient backend failures degrade to infeasible legs; only
// quota exhaustion and cancellation are returned as errors.
type Provider struct {
	backend Backend
	cache   Cache
	limiter *Limiter
	opts    Options

	calls    atomic.Int64
	hits     atomic.Int64
	failures atomic.Int64
}

func NewProvider(backend Backend, cache Cache, limiter *Limiter, opts Options) *Provider {
	if opts.MaxCoordinates < 2 {
		opts.MaxCoordinates = defaultMaxCoordinates
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if cache == nil {
		cache = NewMemoryCache(nil)
	}
	return &Provider{backend: backend, cache: cache, limiter: limiter, opts: opts}
}

// Matrix returns legs from every origin to every destination. Each origin is
// paired with destination batches of MaxCoordinates-1 points; batches are
// fetched concurrently and Matrix returns only after all of them finish.
func (p *Provider) Matrix(ctx context.Context, origins, destinations []types.Point) (Matrix, error) {
	out := make(Matrix, len(origins))
	for i := range out {
		out[i] = make([]Leg, len(destinations))
	}
	if len(origins) == 0 || len(destinations) == 0 {
		return out, nil
	}

	batch := p.opts.MaxCoordinates - 1
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, origin := range origins {
		for start := 0; start < len(destinations); start += batch {
			end := start + batch
			if end > len(destinations) {
				end = len(destinations)
			}
			i, origin, start, chunk := i, origin, start, destinations[start:end]
			g.Go(func() error {
				legs, err := p.row(gctx, origin, chunk)
				if err != nil {
					return err
				}
				copy(out[i][start:], legs)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Route returns a single-pair leg. A failed lookup yields an infeasible leg.
func (p *Provider) Route(ctx context.Context, from, to types.Point) (Leg, error) {
	key := signature(KindDirections, from.String(), to.String())
	var leg Leg
	if p.lookup(ctx, key, &leg) {
		return leg, nil
	}
	if err := p.acquire(ctx, 1); err != nil {
		return Leg{}, err
	}
	leg, err := p.backend.Directions(ctx, from, to)
	if err != nil {
		if hardError(ctx, err) {
			return Leg{}, err
		}
		p.failures.Add(1)
		log.Printf("[TRAVELTIME] directions %s -> %s failed: %v", from, to, err)
		return Leg{}, nil
	}
	p.store(ctx, key, KindDirections, leg)
	return leg, nil
}

// Geocode resolves an address, caching the answer with the geocoding TTL.
func (p *Provider) Geocode(ctx context.Context, address string) (types.Point, error) {
	key := signature(KindGeocode, strings.ToLower(strings.TrimSpace(address)))
	var pt types.Point
	if p.lookup(ctx, key, &pt) {
		return pt, nil
	}
	if err := p.acquire(ctx, 1); err != nil {
		return types.Point{}, err
	}
	pt, err := p.backend.Geocode(ctx, address)
	if err != nil {
		if !hardError(ctx, err) {
			p.failures.Add(1)
		}
		return types.Point{}, err
	}
	p.store(ctx, key, KindGeocode, pt)
	return pt, nil
}

// Stats returns call and cache counters.
func (p *Provider) Stats() Stats {
	s := Stats{
		Calls:     p.calls.Load(),
		CacheHits: p.hits.Load(),
		Failures:  p.failures.Load(),
	}
	if total := s.Calls + s.CacheHits; total > 0 {
		s.HitRate = float64(s.CacheHits) / float64(total)
	}
	return s
}

// row fetches legs from one origin to a batch of destinations.
func (p *Provider) row(ctx context.Context, origin types.Point, dests []types.Point) ([]Leg, error) {
	if len(dests) == 1 {
		leg, err := p.Route(ctx, origin, dests[0])
		if err != nil {
			return nil, err
		}
		return []Leg{leg}, nil
	}

	// Canonical order: unique destinations sorted by coordinate string.
	index := make(map[string]int, len(dests))
	var canon []types.Point
	for _, d := range dests {
		k := d.String()
		if _, ok := index[k]; ok {
			continue
		}
		index[k] = 0
		canon = append(canon, d)
	}
	sort.Slice(canon, func(a, b int) bool { return canon[a].String() < canon[b].String() })
	parts := make([]string, 0, len(canon)+1)
	parts = append(parts, origin.String())
	for i, d := range canon {
		index[d.String()] = i
		parts = append(parts, d.String())
	}
	key := signature(KindMatrix, parts...)

	var legs []Leg
	if !p.lookup(ctx, key, &legs) || len(legs) != len(canon) {
		if err := p.acquire(ctx, len(canon)); err != nil {
			return nil, err
		}
		m, err := p.backend.DistanceMatrix(ctx, []types.Point{origin}, canon)
		if err != nil {
			if hardError(ctx, err) {
				return nil, err
			}
			p.failures.Add(1)
			log.Printf("[TRAVELTIME] matrix from %s (%d destinations) failed: %v", origin, len(canon), err)
			return make([]Leg, len(dests)), nil
		}
		if len(m) != 1 || len(m[0]) != len(canon) {
			p.failures.Add(1)
			log.Printf("[TRAVELTIME] matrix from %s: malformed response", origin)
			return make([]Leg, len(dests)), nil
		}
		legs = m[0]
		p.store(ctx, key, KindMatrix, legs)
	}

	out := make([]Leg, len(dests))
	for j, d := range dests {
		out[j] = legs[index[d.String()]]
	}
	return out, nil
}

func (p *Provider) acquire(ctx context.Context, cost int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx, cost); err != nil {
			return err
		}
	}
	p.calls.Add(1)
	return nil
}

// lookup decodes a cached value into dst. Cache errors count as misses.
func (p *Provider) lookup(ctx context.Context, key string, dst any) bool {
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[TRAVELTIME] cache get: %v", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("[TRAVELTIME] cache decode %s: %v", key, err)
		return false
	}
	p.hits.Add(1)
	return true
}

func (p *Provider) store(ctx context.Context, key string, kind Kind, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[TRAVELTIME] cache encode: %v", err)
		return
	}
	if err := p.cache.Set(ctx, key, raw, p.opts.TTL[kind]); err != nil {
		log.Printf("[TRAVELTIME] cache set: %v", err)
	}
}

// signature hashes the kind and normalized parameters into a cache key.
func signature(kind Kind, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{'|'})
		h.Write([]byte(p))
	}
	return string(kind) + ":" + hex.EncodeToString(h.Sum(nil))
}

// hardError reports failures that must abort the caller instead of
// degrading a pair to infeasible.
func hardError(ctx context.Context, err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || ctx.Err() != nil
}
