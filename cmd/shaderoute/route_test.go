package main

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/shaderoute"
)

func TestParseLonLat(t *testing.T) {
	pt, err := parseLonLat("14.2681, 40.8518")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{14.2681, 40.8518}, pt)

	for _, bad := range []string{"", "14.2", "14,40,1", "a,40", "14,b", "200,40", "14,-95"} {
		_, err := parseLonLat(bad)
		assert.True(t, errors.Is(err, shaderoute.ErrInvalidRequest), bad)
	}
}

func TestParseCriteria(t *testing.T) {
	criteria, err := parseCriteria("")
	require.NoError(t, err)
	assert.Equal(t, []shaderoute.Criterion{shaderoute.CriterionSun, shaderoute.CriterionShade}, criteria)

	criteria, err = parseCriteria("ombra")
	require.NoError(t, err)
	assert.Equal(t, []shaderoute.Criterion{shaderoute.CriterionShade}, criteria)

	_, err = parseCriteria("rain")
	assert.True(t, errors.Is(err, shaderoute.ErrUnknownCriterion))
}
