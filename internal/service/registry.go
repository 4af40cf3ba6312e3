package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/LdDl/shaderoute"
	"github.com/LdDl/shaderoute/internal/metrics"
)

const (
	EngineDijkstra = "dijkstra"
	EngineCH       = "ch"
)

// ZoneLoader provides zones of a dataset in planar CRS. Implemented by *shaderoute.Loader
type ZoneLoader interface {
	Load(ctx context.Context, key shaderoute.DatasetKey) ([]shaderoute.ExposureZone, error)
	Projection() shaderoute.Projection
}

// Entry is a ready-to-query network of one dataset
type Entry struct {
	Key     shaderoute.DatasetKey
	Network *shaderoute.Network
	Finder  shaderoute.RouteFinder
	BuiltAt time.Time
}

// Registry builds every dataset network once and keeps it for the process lifetime.
// Concurrent requests for the same missing key share one build
type Registry struct {
	loader        ZoneLoader
	engine        string
	snapTolerance float64

	mu      sync.RWMutex
	entries map[shaderoute.DatasetKey]*Entry
	group   singleflight.Group
}

func NewRegistry(loader ZoneLoader, options ...func(*Registry)) *Registry {
	registry := &Registry{
		loader:        loader,
		engine:        EngineDijkstra,
		snapTolerance: shaderoute.DefaultSnapTolerance,
		entries:       make(map[shaderoute.DatasetKey]*Entry),
	}
	for _, option := range options {
		option(registry)
	}
	return registry
}

func WithEngine(engine string) func(*Registry) {
	return func(registry *Registry) {
		registry.engine = engine
	}
}

func WithSnapTolerance(snapTolerance float64) func(*Registry) {
	return func(registry *Registry) {
		registry.snapTolerance = snapTolerance
	}
}

// Get returns network of the dataset, building it on first use
func (registry *Registry) Get(ctx context.Context, key shaderoute.DatasetKey) (*Entry, error) {
	registry.mu.RLock()
	entry, ok := registry.entries[key]
	registry.mu.RUnlock()
	if ok {
		return entry, nil
	}

	// Build must outlive the caller which started it: others may be waiting for the same key
	buildCtx := context.WithoutCancel(ctx)
	ch := registry.group.DoChan(key.String(), func() (any, error) {
		registry.mu.RLock()
		entry, ok := registry.entries[key]
		registry.mu.RUnlock()
		if ok {
			return entry, nil
		}
		entry, err := registry.build(buildCtx, key)
		if err != nil {
			return nil, err
		}
		registry.mu.Lock()
		registry.entries[key] = entry
		registry.mu.Unlock()
		return entry, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	}
}

func (registry *Registry) build(ctx context.Context, key shaderoute.DatasetKey) (*Entry, error) {
	st := time.Now()
	zones, err := registry.loader.Load(ctx, key)
	if err != nil {
		outcome := "error"
		if errors.Is(err, shaderoute.ErrDatasetNotFound) {
			outcome = "not_found"
		}
		metrics.NetworkBuilds.WithLabelValues(outcome).Inc()
		return nil, err
	}
	net, err := shaderoute.BuildNetwork(zones,
		shaderoute.WithSnapTolerance(registry.snapTolerance),
		shaderoute.WithName(key.String()),
	)
	if err != nil {
		metrics.NetworkBuilds.WithLabelValues("error").Inc()
		return nil, errors.Wrapf(err, "Can't build network for '%s'", key)
	}

	var finder shaderoute.RouteFinder
	switch registry.engine {
	case EngineCH:
		finder, err = shaderoute.NewContractedRouter(net, registry.loader.Projection())
		if err != nil {
			metrics.NetworkBuilds.WithLabelValues("error").Inc()
			return nil, errors.Wrapf(err, "Can't prepare router for '%s'", key)
		}
	default:
		finder = shaderoute.NewRouter(net, registry.loader.Projection())
	}

	took := time.Since(st)
	metrics.NetworkBuilds.WithLabelValues("ok").Inc()
	metrics.NetworkBuildDuration.Observe(took.Seconds())
	metrics.NetworkEdges.WithLabelValues(key.String()).Set(float64(net.EdgesNum()))
	zap.L().Info("network ready",
		zap.Stringer("dataset", key),
		zap.String("engine", registry.engine),
		zap.Int("nodes", net.NodesNum()),
		zap.Int("edges", net.EdgesNum()),
		zap.Duration("took", took),
	)
	return &Entry{
		Key:     key,
		Network: net,
		Finder:  finder,
		BuiltAt: time.Now(),
	}, nil
}

// Preload builds networks for the keys in parallel. Stops on the first error
func (registry *Registry) Preload(ctx context.Context, keys []shaderoute.DatasetKey) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		g.Go(func() error {
			_, err := registry.Get(gctx, key)
			return err
		})
	}
	return g.Wait()
}

// Keys returns datasets which networks are built already
func (registry *Registry) Keys() []shaderoute.DatasetKey {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	keys := make([]shaderoute.DatasetKey, 0, len(registry.entries))
	for key := range registry.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}
