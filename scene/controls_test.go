package scene

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const angleSlack = 1e-4

func newBoundedControls() *OrbitControls {
	cam := NewPerspectiveCamera(75, 16.0/9.0, 0.1, 100)
	cam.SetPosition(mgl32.Vec3{4, 5, 6})
	cam.LookAt(mgl32.Vec3{})

	c := NewOrbitControls(cam)
	c.MinPolarAngle, c.MaxPolarAngle = math32.Pi/4, math32.Pi/2
	c.MinAzimuthAngle, c.MaxAzimuthAngle = -math32.Pi/6, math32.Pi/2
	c.MinDistance, c.MaxDistance = 2, 12
	return c
}

func assertInBounds(t *testing.T, c *OrbitControls) {
	t.Helper()
	s := c.Spherical()
	assert.GreaterOrEqual(t, s.Phi, c.MinPolarAngle-angleSlack)
	assert.LessOrEqual(t, s.Phi, c.MaxPolarAngle+angleSlack)
	assert.GreaterOrEqual(t, s.Theta, c.MinAzimuthAngle-angleSlack)
	assert.LessOrEqual(t, s.Theta, c.MaxAzimuthAngle+angleSlack)
	assert.GreaterOrEqual(t, s.Radius, c.MinDistance-angleSlack)
	assert.LessOrEqual(t, s.Radius, c.MaxDistance+angleSlack)
}

func TestOrbitControlsStartInside(t *testing.T) {
	c := newBoundedControls()
	before := c.Camera.Position
	c.Update()
	assert.InDelta(t, 0, c.Camera.Position.Sub(before).Len(), 1e-4)
	assertInBounds(t, c)
}

func TestOrbitControlsClampExtremes(t *testing.T) {
	c := newBoundedControls()

	c.Drag(-5000, 0, 800)
	c.Update()
	assert.InDelta(t, math32.Pi/2, c.Spherical().Theta, angleSlack)

	c.Drag(5000, 0, 800)
	c.Update()
	assert.InDelta(t, -math32.Pi/6, c.Spherical().Theta, angleSlack)

	c.Drag(0, 5000, 800)
	c.Update()
	assert.InDelta(t, math32.Pi/4, c.Spherical().Phi, angleSlack)

	c.Drag(0, -5000, 800)
	c.Update()
	assert.InDelta(t, math32.Pi/2, c.Spherical().Phi, angleSlack)

	for i := 0; i < 200; i++ {
		c.Scroll(1)
		c.Update()
	}
	assert.InDelta(t, 2, c.Spherical().Radius, angleSlack)

	for i := 0; i < 200; i++ {
		c.Scroll(-1)
		c.Update()
	}
	assert.InDelta(t, 12, c.Spherical().Radius, angleSlack)
}

func TestOrbitControlsRandomInput(t *testing.T) {
	c := newBoundedControls()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		switch rng.Intn(3) {
		case 0:
			c.Drag(rng.Float32()*4000-2000, rng.Float32()*4000-2000, 720)
		case 1:
			c.Scroll(rng.Float32()*20 - 10)
		default:
		}
		c.Update()
		assertInBounds(t, c)
	}
}

func TestOrbitControlsAnglesNeverOvershoot(t *testing.T) {
	c := newBoundedControls()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		c.Drag(rng.Float32()*600-300, rng.Float32()*600-300, 720)
		if rng.Intn(4) == 0 {
			c.Scroll(rng.Float32()*6 - 3)
		}
		c.Update()

		s := c.Spherical()
		require.GreaterOrEqual(t, s.Phi, c.MinPolarAngle, "frame %d", i)
		require.LessOrEqual(t, s.Phi, c.MaxPolarAngle, "frame %d", i)
		require.GreaterOrEqual(t, s.Theta, c.MinAzimuthAngle, "frame %d", i)
		require.LessOrEqual(t, s.Theta, c.MaxAzimuthAngle, "frame %d", i)
	}
}

func TestOvershoot(t *testing.T) {
	assert.Equal(t, float32(0), overshoot(1, 0, 2))
	assert.Equal(t, float32(1), overshoot(3, 0, 2))
	assert.Equal(t, float32(-1), overshoot(-1, 0, 2))
	assert.Equal(t, float32(0), overshoot(5, 2, 0))
}

func TestOrbitControlsDisabled(t *testing.T) {
	c := newBoundedControls()
	c.Enabled = false
	before := c.Camera.Position
	c.Drag(300, 300, 800)
	c.Scroll(5)
	c.Update()
	assert.InDelta(t, 0, c.Camera.Position.Sub(before).Len(), 1e-4)
}

func TestOrbitControlsBoundsOutsideStart(t *testing.T) {
	cam := NewPerspectiveCamera(75, 1, 0.1, 100)
	cam.SetPosition(mgl32.Vec3{0, 30, 0.01})
	c := NewOrbitControls(cam)
	c.MinPolarAngle, c.MaxPolarAngle = math32.Pi/4, math32.Pi/2
	c.MinDistance, c.MaxDistance = 2, 12

	c.Update()
	s := c.Spherical()
	assert.InDelta(t, math32.Pi/4, s.Phi, angleSlack)
	assert.InDelta(t, 12, s.Radius, angleSlack)
}

func TestClampAzimuthWrapped(t *testing.T) {
	// [170°, -170°] straddles ±π.
	lo, hi := mgl32.DegToRad(170), mgl32.DegToRad(-170)
	assert.InDelta(t, math32.Pi, clampAzimuth(math32.Pi, lo, hi), 1e-6)
	assert.InDelta(t, lo, clampAzimuth(mgl32.DegToRad(100), lo, hi), 1e-6)
	assert.InDelta(t, hi, clampAzimuth(mgl32.DegToRad(-100), lo, hi), 1e-6)

	inf := math32.Inf(1)
	assert.Equal(t, float32(9), clampAzimuth(9, -inf, inf))
}

func TestSphericalRoundTrip(t *testing.T) {
	v := mgl32.Vec3{4, 5, 6}
	s := sphericalFromVector(v)
	require.InDelta(t, v.Len(), s.Radius, 1e-5)
	back := s.vector()
	assert.InDelta(t, 0, back.Sub(v).Len(), 1e-4)
}

func TestCameraAspect(t *testing.T) {
	cam := NewPerspectiveCamera(75, 1, 0.1, 100)
	cam.UpdateAspectRatio(1920, 1080)
	assert.InDelta(t, 1920.0/1080.0, cam.AspectRatio, 1e-6)
	cam.UpdateAspectRatio(10, 0)
	assert.InDelta(t, 1920.0/1080.0, cam.AspectRatio, 1e-6)
}
