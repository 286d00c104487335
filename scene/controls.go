package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const sphericalEPS = 1e-6

// Spherical coordinates around a target: Theta is the azimuth measured from
// +Z towards +X, Phi the polar angle from +Y.
type Spherical struct {
	Radius, Theta, Phi float32
}

func sphericalFromVector(v mgl32.Vec3) Spherical {
	r := v.Len()
	if r == 0 {
		return Spherical{}
	}
	return Spherical{
		Radius: r,
		Theta:  math32.Atan2(v.X(), v.Z()),
		Phi:    math32.Acos(mgl32.Clamp(v.Y()/r, -1, 1)),
	}
}

func (s Spherical) vector() mgl32.Vec3 {
	sinPhiR := math32.Sin(s.Phi) * s.Radius
	return mgl32.Vec3{
		sinPhiR * math32.Sin(s.Theta),
		math32.Cos(s.Phi) * s.Radius,
		sinPhiR * math32.Cos(s.Theta),
	}
}

// OrbitControls rotates and dollies a camera around Target. Every Update
// clamps polar angle, azimuth and distance to their ranges, whatever input
// was accumulated since the previous call.
type OrbitControls struct {
	Camera *Camera
	Target mgl32.Vec3

	MinPolarAngle, MaxPolarAngle     float32
	MinAzimuthAngle, MaxAzimuthAngle float32
	MinDistance, MaxDistance         float32

	RotateSpeed float32
	ZoomSpeed   float32
	Enabled     bool

	deltaTheta, deltaPhi float32
	scale                float32
}

// NewOrbitControls leaves every range unbounded; callers narrow them.
func NewOrbitControls(camera *Camera) *OrbitControls {
	inf := math32.Inf(1)
	return &OrbitControls{
		Camera:          camera,
		Target:          camera.Target,
		MinPolarAngle:   0,
		MaxPolarAngle:   math32.Pi,
		MinAzimuthAngle: -inf,
		MaxAzimuthAngle: inf,
		MinDistance:     0,
		MaxDistance:     inf,
		RotateSpeed:     1,
		ZoomSpeed:       1,
		Enabled:         true,
		scale:           1,
	}
}

// RotateLeft queues an azimuth change.
func (o *OrbitControls) RotateLeft(angle float32) {
	o.deltaTheta -= angle
}

// RotateUp queues a polar change.
func (o *OrbitControls) RotateUp(angle float32) {
	o.deltaPhi -= angle
}

// Drag converts a pointer drag in pixels into rotation. A drag across the
// full viewport height turns the camera by one revolution.
func (o *OrbitControls) Drag(dx, dy, viewportHeight float32) {
	if !o.Enabled || viewportHeight <= 0 {
		return
	}
	o.RotateLeft(2 * math32.Pi * dx * o.RotateSpeed / viewportHeight)
	o.RotateUp(2 * math32.Pi * dy * o.RotateSpeed / viewportHeight)
}

// Scroll dollies by 0.95^ZoomSpeed per wheel step; positive steps move in.
func (o *OrbitControls) Scroll(steps float32) {
	if !o.Enabled || steps == 0 {
		return
	}
	factor := math32.Pow(0.95, o.ZoomSpeed*math32.Abs(steps))
	if steps > 0 {
		o.scale *= factor
	} else {
		o.scale /= factor
	}
}

// Spherical returns the camera's current offset from Target.
func (o *OrbitControls) Spherical() Spherical {
	return sphericalFromVector(o.Camera.Position.Sub(o.Target))
}

// Update applies queued input, clamps, moves the camera and reports whether
// it moved.
func (o *OrbitControls) Update() bool {
	before := o.Camera.Position

	s := o.Spherical()
	s.Theta += o.deltaTheta
	s.Phi += o.deltaPhi

	s.Theta = clampAzimuth(s.Theta, o.MinAzimuthAngle, o.MaxAzimuthAngle)
	s.Phi = mgl32.Clamp(s.Phi, o.MinPolarAngle, o.MaxPolarAngle)
	s.Phi = mgl32.Clamp(s.Phi, sphericalEPS, math32.Pi-sphericalEPS)

	s.Radius = mgl32.Clamp(s.Radius*o.scale, o.MinDistance, o.MaxDistance)

	o.Camera.SetPosition(o.place(s))
	o.Camera.LookAt(o.Target)

	o.deltaTheta, o.deltaPhi = 0, 0
	o.scale = 1

	return o.Camera.Position.Sub(before).Len() > sphericalEPS
}

// place converts s to a position, nudging the angles inward until the
// angles measured back from the float32 position stay inside their ranges.
func (o *OrbitControls) place(s Spherical) mgl32.Vec3 {
	phiLo := math32.Max(o.MinPolarAngle, sphericalEPS)
	phiHi := math32.Min(o.MaxPolarAngle, math32.Pi-sphericalEPS)
	checkTheta := o.MinAzimuthAngle >= -math32.Pi && o.MaxAzimuthAngle <= math32.Pi &&
		o.MinAzimuthAngle <= o.MaxAzimuthAngle

	pos := o.Target.Add(s.vector())
	for i := 0; i < 8; i++ {
		m := sphericalFromVector(pos.Sub(o.Target))
		dPhi := overshoot(m.Phi, phiLo, phiHi)
		var dTheta float32
		if checkTheta {
			dTheta = overshoot(m.Theta, o.MinAzimuthAngle, o.MaxAzimuthAngle)
		}
		if dPhi == 0 && dTheta == 0 {
			break
		}
		step := 1e-6 * float32(i+1)
		if dPhi != 0 {
			s.Phi -= dPhi + math32.Copysign(step, dPhi)
		}
		if dTheta != 0 {
			s.Theta -= dTheta + math32.Copysign(step, dTheta)
		}
		pos = o.Target.Add(s.vector())
	}
	return pos
}

// overshoot is how far v lies outside [lo, hi], signed, or 0 inside.
func overshoot(v, lo, hi float32) float32 {
	switch {
	case lo > hi:
		return 0
	case v > hi:
		return v - hi
	case v < lo:
		return v - lo
	}
	return 0
}

// clampAzimuth restricts theta to [lo, hi], treating ranges that straddle
// ±π the way a wrapped angle would.
func clampAzimuth(theta, lo, hi float32) float32 {
	if math32.IsInf(lo, 0) || math32.IsInf(hi, 0) {
		return theta
	}
	twoPi := 2 * math32.Pi
	if lo < -math32.Pi {
		lo += twoPi
	} else if lo > math32.Pi {
		lo -= twoPi
	}
	if hi < -math32.Pi {
		hi += twoPi
	} else if hi > math32.Pi {
		hi -= twoPi
	}
	if lo <= hi {
		return mgl32.Clamp(theta, lo, hi)
	}
	if theta > (lo+hi)/2 {
		return math32.Max(lo, theta)
	}
	return math32.Min(hi, theta)
}
