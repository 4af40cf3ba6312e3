package shaderoute

import (
	"github.com/paulmach/orb/encoding/wkt"
)

// WKT returns WKT representation of the route geometry. Empty string when route has not been found
func (result *RouteResult) WKT() string {
	if result == nil || !result.Found {
		return ""
	}
	return wkt.MarshalString(result.Geom)
}
