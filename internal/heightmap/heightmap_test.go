package heightmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesData(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	h, err := New(2, 2, data)
	require.NoError(t, err)

	data[0] = 99
	assert.Equal(t, 1.0, h.At(0, 0), "New must copy its input")

	out := h.Data()
	out[1] = 42
	assert.Equal(t, 2.0, h.At(0, 1), "Data must return a copy")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(0, 3, nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = New(2, 2, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestFromRows_Ragged(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2}, {3}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRaggedRows))
}

func TestSquare(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		want       int
	}{
		{"already square", 4, 4, 4},
		{"extra row", 5, 4, 4},
		{"extra cols", 3, 6, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]float64, tt.rows*tt.cols)
			for i := range data {
				data[i] = float64(i)
			}
			h, err := New(tt.rows, tt.cols, data)
			require.NoError(t, err)

			sq := h.Square()
			r, c := sq.Dims()
			assert.Equal(t, tt.want, r)
			assert.Equal(t, tt.want, c)
			assert.True(t, sq.IsSquare())
			// top-left corner is preserved
			assert.Equal(t, h.At(tt.want-1, tt.want-1), sq.At(tt.want-1, tt.want-1))
		})
	}
}

func TestMinMaxRow(t *testing.T) {
	h, err := FromRows([][]float64{{3, -1}, {7, 2}})
	require.NoError(t, err)

	assert.Equal(t, -1.0, h.Min())
	assert.Equal(t, 7.0, h.Max())
	assert.Equal(t, []float64{7, 2}, h.Row(1))
	assert.Equal(t, "HeightMap(2x2)", h.String())
}

func TestLabelMap(t *testing.T) {
	l, err := NewLabelMap(2, 3, []int{0, 1, 1, 0, 4, 0})
	require.NoError(t, err)

	assert.Equal(t, 4, l.Max())
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 4, l.At(1, 1))

	labels := l.Labels()
	labels[0] = 9
	assert.Equal(t, 0, l.At(0, 0), "Labels must return a copy")

	_, err = NewLabelMap(1, 2, []int{0, -1})
	assert.Error(t, err)
}

func TestNewScaleFactor(t *testing.T) {
	tests := []struct {
		name    string
		realX   float64
		pixels  int
		unit    string
		want    float64
		wantErr bool
	}{
		{"micrometers", 5, 100, "um", 50, false},
		{"micro sign", 5, 100, "µm", 50, false},
		{"nanometers", 500, 100, "nm", 5, false},
		{"unknown unit treated as nm", 200, 100, "", 2, false},
		{"zero size", 0, 100, "um", 0, true},
		{"zero pixels", 5, 0, "um", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewScaleFactor(tt.realX, tt.pixels, tt.unit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScale)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, float64(got), 1e-12)
		})
	}
}

func TestScaleFactor_Validate(t *testing.T) {
	assert.NoError(t, ScaleFactor(2).Validate())
	assert.ErrorIs(t, ScaleFactor(0).Validate(), ErrInvalidScale)
	assert.ErrorIs(t, ScaleFactor(-1).Validate(), ErrInvalidScale)
}
