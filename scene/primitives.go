package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CreatePlane generates a width×height plane in the XY plane facing +Z,
// split into widthSegments×heightSegments quads. UV (0,0) is bottom left.
func CreatePlane(width, height float32, widthSegments, heightSegments int) *Geometry {
	if widthSegments < 1 {
		widthSegments = 1
	}
	if heightSegments < 1 {
		heightSegments = 1
	}

	gridX1 := widthSegments + 1
	gridY1 := heightSegments + 1
	segW := width / float32(widthSegments)
	segH := height / float32(heightSegments)

	var positions, normals []mgl32.Vec3
	var uvs []mgl32.Vec2
	var indices []uint32

	for iy := 0; iy < gridY1; iy++ {
		y := float32(iy)*segH - height/2
		for ix := 0; ix < gridX1; ix++ {
			x := float32(ix)*segW - width/2
			positions = append(positions, mgl32.Vec3{x, -y, 0})
			normals = append(normals, mgl32.Vec3{0, 0, 1})
			uvs = append(uvs, mgl32.Vec2{
				float32(ix) / float32(widthSegments),
				1 - float32(iy)/float32(heightSegments),
			})
		}
	}

	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint32(ix + gridX1*iy)
			b := uint32(ix + gridX1*(iy+1))
			c := uint32(ix + 1 + gridX1*(iy+1))
			d := uint32(ix + 1 + gridX1*iy)
			indices = append(indices, a, b, d, b, c, d)
		}
	}

	return NewGeometry(positions, normals, uvs, indices)
}
