package shaderoute

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrInvalidDatasetKey = errors.New("invalid dataset key")
)

var datasetKeyPartRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// DatasetKey selects exposure dataset: season and time of the day (e.g. Autunno / Mattina)
type DatasetKey struct {
	Season string
	Period string
}

func (key DatasetKey) String() string {
	return key.Season + "/" + key.Period
}

// Validate checks that both parts are present and safe to be used in file names and SQL parameters
func (key DatasetKey) Validate() error {
	if !datasetKeyPartRe.MatchString(key.Season) {
		return errors.Wrapf(ErrInvalidDatasetKey, "season '%s'", key.Season)
	}
	if !datasetKeyPartRe.MatchString(key.Period) {
		return errors.Wrapf(ErrInvalidDatasetKey, "period '%s'", key.Period)
	}
	return nil
}

// Filename substitutes {season} and {period} placeholders of the pattern
func (key DatasetKey) Filename(pattern string) string {
	return strings.NewReplacer("{season}", key.Season, "{period}", key.Period).Replace(pattern)
}

// ParseDatasetKey parses "Season/Period"
func ParseDatasetKey(str string) (DatasetKey, error) {
	parts := strings.Split(str, "/")
	if len(parts) != 2 {
		return DatasetKey{}, errors.Wrapf(ErrInvalidDatasetKey, "'%s' should look like 'Season/Period'", str)
	}
	key := DatasetKey{Season: strings.TrimSpace(parts[0]), Period: strings.TrimSpace(parts[1])}
	if err := key.Validate(); err != nil {
		return DatasetKey{}, err
	}
	return key, nil
}

// ZoneSet is raw content of a dataset: zones in coordinates of SRID
type ZoneSet struct {
	Zones []ExposureZone
	SRID  int
}

// ZoneSource supplies raw exposure zones for the dataset key.
// Must return error wrapping ErrDatasetNotFound if there is no data for the key
type ZoneSource interface {
	LoadZones(ctx context.Context, key DatasetKey) (*ZoneSet, error)
}

// Loader prepares zones for the network builder: reprojects them into planar CRS and scales shadow cost
type Loader struct {
	source     ZoneSource
	projection Projection
	shadeScale float64
}

func (loader *Loader) String() string {
	return fmt.Sprintf(`
Zones loader parameters:
	source: %T
	target_srid: %d
	shade_scale: %f
	`,
		loader.source,
		loader.projection.SRID(),
		loader.shadeScale,
	)
}

func NewLoader(source ZoneSource, projection Projection, options ...func(*Loader)) *Loader {
	loader := &Loader{
		source:     source,
		projection: projection,
		shadeScale: DefaultShadeScale,
	}
	for _, option := range options {
		option(loader)
	}
	return loader
}

func WithShadeScale(shadeScale float64) func(*Loader) {
	return func(loader *Loader) {
		loader.shadeScale = shadeScale
	}
}

// Projection returns planar CRS zones are converted into
func (loader *Loader) Projection() Projection {
	return loader.projection
}

// Load returns zones of the dataset in planar CRS
func (loader *Loader) Load(ctx context.Context, key DatasetKey) ([]ExposureZone, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	st := time.Now()
	set, err := loader.source.LoadZones(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't load zones for '%s'", key)
	}

	var reproject orb.Projection
	switch set.SRID {
	case loader.projection.SRID():
		reproject = nil
	case SRIDWGS84, 0:
		reproject = loader.projection.Forward
	default:
		return nil, errors.Wrapf(ErrUnsupportedCRS, "dataset '%s' is in EPSG:%d, expected EPSG:%d or EPSG:%d", key, set.SRID, SRIDWGS84, loader.projection.SRID())
	}

	zones := make([]ExposureZone, 0, len(set.Zones))
	skipped := 0
	for _, zone := range set.Zones {
		if zone.Geom == nil || isEmptyGeometry(zone.Geom) {
			skipped++
			continue
		}
		if reproject != nil {
			zone.Geom = project.Geometry(orb.Clone(zone.Geom), reproject)
		}
		zone.ShadeCost *= loader.shadeScale
		if err := zone.validate(); err != nil {
			return nil, errors.Wrapf(err, "dataset '%s'", key)
		}
		zones = append(zones, zone)
	}
	zap.L().Info("zones loaded",
		zap.Stringer("dataset", key),
		zap.Int("zones", len(zones)),
		zap.Int("skipped", skipped),
		zap.Int("source_srid", set.SRID),
		zap.Duration("took", time.Since(st)),
	)
	return zones, nil
}

func isEmptyGeometry(geom orb.Geometry) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		for _, ring := range g {
			if len(ring) > 0 {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		for _, polygon := range g {
			if !isEmptyGeometry(polygon) {
				return false
			}
		}
		return true
	}
	return false
}
