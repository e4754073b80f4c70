package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := map[string]struct {
		in      string
		kind    Kind
		p       float64
		wantErr bool
	}{
		"avg":          {in: "avg", kind: KindAvg},
		"min":          {in: "min", kind: KindMin},
		"med":          {in: "med", kind: KindMed, p: 50},
		"max":          {in: "max", kind: KindMax},
		"count":        {in: "count", kind: KindCount},
		"p95":          {in: "p(95)", kind: KindPercentile, p: 95},
		"decimal":      {in: "p(99.9)", kind: KindPercentile, p: 99.9},
		"zero":         {in: "p(0)", wantErr: true},
		"hundred":      {in: "p(100)", wantErr: true},
		"negative":     {in: "p(-1)", wantErr: true},
		"unknown":      {in: "stddev", wantErr: true},
		"no parens":    {in: "p95", wantErr: true},
		"upper case":   {in: "AVG", wantErr: true},
		"empty parens": {in: "p()", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			k, err := ParseKey(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, k.Kind)
			assert.Equal(t, tc.p, k.P)
			assert.Equal(t, tc.in, k.String())
		})
	}
}

func TestParseKeys_DefaultsAndDedup(t *testing.T) {
	keys, err := ParseKeys(nil)
	require.NoError(t, err)
	assert.Len(t, keys, len(DefaultKeys))

	keys, err = ParseKeys([]string{"p(95)", "avg", "p(95)", "count"})
	require.NoError(t, err)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	assert.Equal(t, []string{"p(95)", "avg", "count"}, names)

	_, err = ParseKeys([]string{"avg", "bogus"})
	assert.Error(t, err)
}

func TestNearestRank(t *testing.T) {
	assert.Equal(t, 3, NearestRank(50, 5))
	assert.Equal(t, 1, NearestRank(0.0001, 5))
	assert.Equal(t, 5, NearestRank(99.999, 5))
	assert.Equal(t, 19, NearestRank(95, 20))
	assert.Equal(t, 20, NearestRank(95.1, 20))
	// 99.9 * 1000 / 100 is not exactly 999 in floating point.
	assert.Equal(t, 999, NearestRank(99.9, 1000))
	assert.Equal(t, 1, NearestRank(50, 1))
	// Just past an integer rank must move to the next one.
	assert.Equal(t, 2, NearestRank(50.0000000001, 2))
	assert.Equal(t, 1, NearestRank(50, 2))
	assert.Equal(t, 50, NearestRank(5, 1000))
}

func TestPercentile_TiesAndEmpty(t *testing.T) {
	_, ok := Percentile(nil, 50)
	assert.False(t, ok)

	d := []time.Duration{5, 1, 3, 3, 3, 9}
	sortLatencies(d)
	assert.Equal(t, []time.Duration{1, 3, 3, 3, 5, 9}, d)

	v, ok := Percentile(d, 50)
	require.True(t, ok)
	assert.Equal(t, time.Duration(3), v)
	v, _ = Percentile(d, 67)
	assert.Equal(t, time.Duration(5), v)
}

func TestParseSketchKind(t *testing.T) {
	k, err := ParseSketchKind("")
	require.NoError(t, err)
	assert.Equal(t, SketchExact, k)

	k, err = ParseSketchKind("hdr")
	require.NoError(t, err)
	assert.Equal(t, SketchHDR, k)

	_, err = ParseSketchKind("tdigest")
	assert.Error(t, err)
}
