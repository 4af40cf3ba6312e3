package service

import (
	"context"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LdDl/shaderoute"
	"github.com/LdDl/shaderoute/internal/metrics"
)

// Request is a dual-criterion query: both points are WGS84 (lon, lat)
type Request struct {
	Start orb.Point
	End   orb.Point
	Key   shaderoute.DatasetKey
	// Criteria limits legs to compute. Empty means all of them
	Criteria []shaderoute.Criterion
}

// Plan holds results of both criteria. A leg error does not affect the other leg.
// Legs not requested stay nil
type Plan struct {
	Key      shaderoute.DatasetKey
	Sun      *shaderoute.RouteResult
	Shade    *shaderoute.RouteResult
	SunErr   error
	ShadeErr error
}

// Result returns result and error of the leg
func (plan *Plan) Result(criterion shaderoute.Criterion) (*shaderoute.RouteResult, error) {
	if criterion == shaderoute.CriterionShade {
		return plan.Shade, plan.ShadeErr
	}
	return plan.Sun, plan.SunErr
}

type Planner struct {
	registry *Registry
}

func NewPlanner(registry *Registry) *Planner {
	return &Planner{registry: registry}
}

// Validate checks request before any network is touched
func (req Request) Validate() error {
	if err := shaderoute.ValidateGeoPoint(req.Start); err != nil {
		return errors.Wrap(err, "start")
	}
	if err := shaderoute.ValidateGeoPoint(req.End); err != nil {
		return errors.Wrap(err, "end")
	}
	for _, criterion := range req.Criteria {
		if criterion != shaderoute.CriterionSun && criterion != shaderoute.CriterionShade {
			return errors.Wrapf(shaderoute.ErrInvalidRequest, "criterion %d", criterion)
		}
	}
	return req.Key.Validate()
}

func (req Request) wants(criterion shaderoute.Criterion) bool {
	if len(req.Criteria) == 0 {
		return true
	}
	for _, c := range req.Criteria {
		if c == criterion {
			return true
		}
	}
	return false
}

// Plan answers sun-preferring and shade-preferring routes for the request.
// Returned error is about request or dataset only; failures of single legs are reported in Plan
func (planner *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	entry, err := planner.registry.Get(ctx, req.Key)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Key: req.Key}
	var g errgroup.Group
	if req.wants(shaderoute.CriterionSun) {
		g.Go(func() error {
			plan.Sun, plan.SunErr = findRoute(entry.Finder, req, shaderoute.CriterionSun)
			return nil
		})
	}
	if req.wants(shaderoute.CriterionShade) {
		g.Go(func() error {
			plan.Shade, plan.ShadeErr = findRoute(entry.Finder, req, shaderoute.CriterionShade)
			return nil
		})
	}
	_ = g.Wait()
	return plan, nil
}

func findRoute(finder shaderoute.RouteFinder, req Request, criterion shaderoute.Criterion) (*shaderoute.RouteResult, error) {
	st := time.Now()
	result, err := finder.FindRoute(req.Start, req.End, criterion)
	metrics.RouteQueryDuration.WithLabelValues(criterion.String()).Observe(time.Since(st).Seconds())
	switch {
	case err != nil:
		metrics.RouteQueries.WithLabelValues(criterion.String(), "error").Inc()
		zap.L().Error("route query failed", zap.Stringer("dataset", req.Key), zap.Stringer("criterion", criterion), zap.Error(err))
		return nil, err
	case !result.Found:
		metrics.RouteQueries.WithLabelValues(criterion.String(), "not_found").Inc()
		zap.L().Info("no route", zap.Stringer("dataset", req.Key), zap.Stringer("criterion", criterion))
	default:
		metrics.RouteQueries.WithLabelValues(criterion.String(), "found").Inc()
		zap.L().Debug("route found",
			zap.Stringer("dataset", req.Key),
			zap.Stringer("criterion", criterion),
			zap.Float64("length_meters", result.LengthMeters),
			zap.Float64("cost", result.Cost),
		)
	}
	return result, nil
}
