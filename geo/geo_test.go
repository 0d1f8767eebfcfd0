package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{"origin", NewPoint(0, 0), false},
		{"bounds inclusive", NewPoint(180, -90), false},
		{"negative bounds inclusive", NewPoint(-180, 90), false},
		{"longitude too large", NewPoint(180.0001, 0), true},
		{"latitude too small", NewPoint(0, -90.5), true},
		{"nan longitude", NewPoint(math.NaN(), 0), true},
		{"infinite latitude", NewPoint(0, math.Inf(1)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		p := NewPoint(3.3792, 6.5244)
		assert.Zero(t, Distance(p, p))
	})

	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		d := Distance(NewPoint(0, 0), NewPoint(1, 0))
		assert.InDelta(t, 111195.08, d, 1)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := NewPoint(-0.1276, 51.5072), NewPoint(2.3522, 48.8566)
		assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-6)
		// London to Paris is roughly 344 km
		assert.InDelta(t, 343500, Distance(a, b), 1500)
	})

	t.Run("antipodal points stay finite", func(t *testing.T) {
		d := Distance(NewPoint(0, 0), NewPoint(180, 0))
		require.False(t, math.IsNaN(d))
		assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1)
	})
}
