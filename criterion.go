package shaderoute

import (
	"strings"

	"github.com/pkg/errors"
)

// Criterion selects edge weight used as cost by path search
type Criterion uint8

const (
	CriterionSun = Criterion(iota + 1)
	CriterionShade
)

var (
	ErrUnknownCriterion = errors.New("unknown criterion")
)

// Criteria lists all criteria in order they are evaluated for one user query
var Criteria = [...]Criterion{CriterionSun, CriterionShade}

func (iotaIdx Criterion) String() string {
	switch iotaIdx {
	case CriterionSun:
		return "sun"
	case CriterionShade:
		return "shade"
	default:
		return "undefined"
	}
}

// ParseCriterion accepts "sun"/"shade" and legacy "sole"/"ombra"
func ParseCriterion(str string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "sun", "sole", "costo_sole":
		return CriterionSun, nil
	case "shade", "ombra", "costo_ombra":
		return CriterionShade, nil
	}
	return 0, errors.Wrapf(ErrUnknownCriterion, "'%s'", str)
}
