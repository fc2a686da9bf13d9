package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeDistanceSqDisjointRight(t *testing.T) {
	b := Bound{Low: 0, High: 2}
	other := Bound{Low: 5, High: 7}

	lo, hi := b.RangeDistanceSq(other)
	assert.Equal(t, 9.0, lo) // (5-2)^2
	assert.Equal(t, 49.0, hi) // (7-0)^2
}

func TestRangeDistanceSqDisjointLeft(t *testing.T) {
	b := Bound{Low: 5, High: 7}
	other := Bound{Low: 0, High: 2}

	lo, hi := b.RangeDistanceSq(other)
	assert.Equal(t, 9.0, lo)
	assert.Equal(t, 49.0, hi)
}

func TestRangeDistanceSqOverlapping(t *testing.T) {
	b := Bound{Low: 0, High: 4}
	other := Bound{Low: 2, High: 6}

	lo, hi := b.RangeDistanceSq(other)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 36.0, hi) // max(|0-2|,|0-6|,|4-2|,|4-6|)^2 = 6^2
}

func TestMid(t *testing.T) {
	assert.Equal(t, 5.0, Mid(2, 8))
	assert.Equal(t, 0.0, Mid(-3, 3))
}
