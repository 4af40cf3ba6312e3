package shaderoute

import (
	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"
)

// FeatureCollection returns route as GeoJSON feature collection with single LineString feature.
// Returns nil when route has not been found
func (result *RouteResult) FeatureCollection() *geojson.FeatureCollection {
	if result == nil || !result.Found {
		return nil
	}
	fc := geojson.NewFeatureCollection()
	feature := geojson.NewLineStringFeature(lineToPositions(result.Geom))
	feature.SetProperty("criterion", result.Criterion.String())
	feature.SetProperty("length_meters", result.LengthMeters)
	feature.SetProperty("cost", result.Cost)
	fc.AddFeature(feature)
	return fc
}

// PrepareGeoJSONLinestring returns GeoJSON representation of LineString
func PrepareGeoJSONLinestring(line orb.LineString) (string, error) {
	b, err := geojson.NewLineStringGeometry(lineToPositions(line)).MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func lineToPositions(line orb.LineString) [][]float64 {
	pts2d := make([][]float64, len(line))
	for i := range line {
		pts2d[i] = []float64{line[i].Lon(), line[i].Lat()}
	}
	return pts2d
}
