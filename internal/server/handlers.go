package server

import (
	"encoding/json"
	"net/http"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/LdDl/shaderoute"
	"github.com/LdDl/shaderoute/internal/service"
)

type routesRequest struct {
	StartLon *float64 `json:"start_lon"`
	StartLat *float64 `json:"start_lat"`
	EndLon   *float64 `json:"end_lon"`
	EndLat   *float64 `json:"end_lat"`
	Season   string   `json:"season"`
	Period   string   `json:"period"`
}

type routesResponse struct {
	Sun   *geojson.FeatureCollection `json:"sun"`
	Shade *geojson.FeatureCollection `json:"shade"`
}

// legacyRequest is the body of the original single-page application
type legacyRequest struct {
	StartLon *float64 `json:"start_lon"`
	StartLat *float64 `json:"start_lat"`
	EndLon   *float64 `json:"end_lon"`
	EndLat   *float64 `json:"end_lat"`
	Season   string   `json:"stagione"`
	Period   string   `json:"fascia"`
}

type legacyResponse struct {
	Sun   *geojson.FeatureCollection `json:"sole"`
	Shade *geojson.FeatureCollection `json:"ombra"`
}

func (srv *Server) routes(w http.ResponseWriter, r *http.Request) {
	var body routesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, errors.Wrapf(shaderoute.ErrInvalidRequest, "body: %s", err.Error()))
		return
	}
	sun, shade, err := srv.plan(r, body.StartLon, body.StartLat, body.EndLon, body.EndLat, body.Season, body.Period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routesResponse{Sun: sun, Shade: shade})
}

func (srv *Server) percorsi(w http.ResponseWriter, r *http.Request) {
	var body legacyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, errors.Wrapf(shaderoute.ErrInvalidRequest, "body: %s", err.Error()))
		return
	}
	sun, shade, err := srv.plan(r, body.StartLon, body.StartLat, body.EndLon, body.EndLat, body.Season, body.Period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, legacyResponse{Sun: sun, Shade: shade})
}

func (srv *Server) plan(r *http.Request, startLon, startLat, endLon, endLat *float64, season, period string) (*geojson.FeatureCollection, *geojson.FeatureCollection, error) {
	if startLon == nil || startLat == nil || endLon == nil || endLat == nil {
		return nil, nil, errors.Wrap(shaderoute.ErrInvalidRequest, "start_lon, start_lat, end_lon and end_lat are required")
	}
	key, err := srv.datasetKey(season, period)
	if err != nil {
		return nil, nil, err
	}
	plan, err := srv.planner.Plan(r.Context(), service.Request{
		Start: orb.Point{*startLon, *startLat},
		End:   orb.Point{*endLon, *endLat},
		Key:   key,
	})
	if err != nil {
		return nil, nil, err
	}
	// A failed leg is answered with null like a missing route, the error is logged by the planner
	return legCollection(plan, shaderoute.CriterionSun), legCollection(plan, shaderoute.CriterionShade), nil
}

func (srv *Server) datasetKey(season, period string) (shaderoute.DatasetKey, error) {
	if season == "" && period == "" && srv.defaultKey != nil {
		return *srv.defaultKey, nil
	}
	key := shaderoute.DatasetKey{Season: season, Period: period}
	if err := key.Validate(); err != nil {
		return shaderoute.DatasetKey{}, err
	}
	return key, nil
}

func legCollection(plan *service.Plan, criterion shaderoute.Criterion) *geojson.FeatureCollection {
	result, err := plan.Result(criterion)
	if err != nil || result == nil {
		return nil
	}
	return result.FeatureCollection()
}
