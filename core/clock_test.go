package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockElapsed(t *testing.T) {
	base := time.Unix(100, 0)
	now := base
	c := NewClockWithSource(func() time.Time { return now })

	assert.Equal(t, 0.0, c.ElapsedTime(), "first reading starts the clock")

	now = base.Add(1500 * time.Millisecond)
	assert.InDelta(t, 1.5, c.ElapsedTime(), 1e-9)

	now = base.Add(4 * time.Second)
	assert.InDelta(t, 4.0, c.ElapsedTime(), 1e-9)
}

func TestClockNeverNegative(t *testing.T) {
	base := time.Unix(100, 0)
	now := base
	c := NewClockWithSource(func() time.Time { return now })
	c.Start()

	now = base.Add(-time.Second)
	assert.Equal(t, 0.0, c.ElapsedTime())
}

func TestTransformMatrix(t *testing.T) {
	tr := NewTransform()
	tr.Position = [3]float32{1, 2, 3}
	m := tr.GetMatrix()
	p := m.Mul4x1([4]float32{0, 0, 0, 1})
	assert.InDelta(t, 1, p.X(), 1e-6)
	assert.InDelta(t, 2, p.Y(), 1e-6)
	assert.InDelta(t, 3, p.Z(), 1e-6)
}
