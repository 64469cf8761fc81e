package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectIntClip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rect  RectInt
		fw    int
		fh    int
		want  RectInt
		empty bool
	}{
		{
			name: "fully inside",
			rect: NewRectInt(10, 10, 20, 20),
			fw:   100, fh: 100,
			want: NewRectInt(10, 10, 20, 20),
		},
		{
			name: "overhangs bottom right",
			rect: NewRectInt(90, 90, 20, 20),
			fw:   100, fh: 100,
			want: NewRectInt(90, 90, 10, 10),
		},
		{
			name: "negative origin",
			rect: NewRectInt(-5, -5, 20, 20),
			fw:   100, fh: 100,
			want: NewRectInt(0, 0, 15, 15),
		},
		{
			name: "entirely outside",
			rect: NewRectInt(200, 200, 20, 20),
			fw:   100, fh: 100,
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rect.Clip(tt.fw, tt.fh)
			if tt.empty {
				assert.True(t, got.Empty())
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRectIntContains(t *testing.T) {
	t.Parallel()

	r := NewRectInt(10, 10, 5, 5)
	assert.True(t, r.Contains(10, 10))
	assert.True(t, r.Contains(14, 14))
	assert.False(t, r.Contains(15, 15))
	assert.False(t, r.Contains(9, 12))
}

func TestCircleContains(t *testing.T) {
	t.Parallel()

	c := Circle{CX: 50, CY: 50, Radius: 10}
	assert.True(t, c.Contains(50, 50))
	assert.True(t, c.Contains(60, 50))
	assert.False(t, c.Contains(61, 50))
	assert.False(t, c.Contains(58, 58))
}
