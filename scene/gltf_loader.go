package scene

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"coffee-scene/core"
)

// Mesh compression extensions this loader recognizes but cannot decode.
var compressionExtensions = []string{
	"KHR_draco_mesh_compression",
	"EXT_meshopt_compression",
}

// GLTFResult holds the graph and textures decoded from a .glb / .gltf file.
type GLTFResult struct {
	// Scene groups the document's root nodes, like a loader's gltf.scene.
	Scene    *Node
	Textures []*Texture
	// Warnings lists parts that were skipped without failing the load.
	Warnings []error
}

// DecodeGLTF decodes a self-contained binary glTF held in memory.
func DecodeGLTF(name string, data []byte) (*GLTFResult, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("gltf decode %q: %w", name, err)
	}
	return buildGLTF(name, doc)
}

func buildGLTF(name string, doc *gltf.Document) (*GLTFResult, error) {
	for _, ext := range compressionExtensions {
		if slices.Contains(doc.ExtensionsRequired, ext) {
			return nil, fmt.Errorf("gltf %q: %w: %s", name, ErrUnsupportedCompression, ext)
		}
	}

	result := &GLTFResult{Scene: NewNode(name)}
	warn := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Errorf(format, args...))
	}

	// ── 1. Textures ───────────────────────────────────────────────────────────
	texCache := make([]*Texture, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil || *gt.Source >= len(doc.Images) {
			continue
		}
		img := doc.Images[*gt.Source]
		texName := img.Name
		if texName == "" {
			texName = fmt.Sprintf("gltf_img_%d", *gt.Source)
		}

		var data []byte
		switch {
		case img.BufferView != nil:
			raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
			if err != nil {
				warn("gltf: image %d bufferview: %w", *gt.Source, err)
				continue
			}
			data = raw
		case img.URI != "" && !img.IsEmbeddedResource():
			warn("gltf: image %d (%s): external images are not resolved", *gt.Source, img.URI)
			continue
		default:
			continue
		}

		decoded, err := DecodeImage(data)
		if err != nil {
			warn("gltf: image %d: %w", *gt.Source, err)
			continue
		}
		tex := NewTexture(texName)
		tex.FlipY = false
		tex.SetImage(decoded)
		texCache[i] = tex
		result.Textures = append(result.Textures, tex)
	}

	// ── 2. Materials ─────────────────────────────────────────────────────────
	matCache := make([]Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		mat := NewBasicMaterial(gm.Name, nil)
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.Color = core.Color{
				R: float32(cf[0]), G: float32(cf[1]),
				B: float32(cf[2]), A: float32(cf[3]),
			}
			if pbr.BaseColorTexture != nil {
				idx := pbr.BaseColorTexture.Index
				if idx < len(texCache) && texCache[idx] != nil {
					texCache[idx].ColorSpace = ColorSpaceSRGB
					mat.Map = texCache[idx]
				}
			}
		}
		if gm.DoubleSided {
			mat.Side = DoubleSide
		}
		if gm.AlphaMode == gltf.AlphaBlend {
			mat.Transparent = true
		}
		matCache[i] = mat
	}

	// ── 3. Mesh primitives ────────────────────────────────────────────────────
	meshPrims := make([][]*Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			for _, ext := range compressionExtensions {
				if _, ok := prim.Extensions[ext]; ok {
					return nil, fmt.Errorf("gltf %q: mesh %d prim %d: %w: %s", name, mi, pi, ErrUnsupportedCompression, ext)
				}
			}
			m, err := loadGLTFPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				warn("gltf: mesh %d prim %d: %w", mi, pi, err)
				continue
			}
			if prim.Material != nil && *prim.Material < len(matCache) {
				m.Material = matCache[*prim.Material]
			} else {
				m.Material = NewBasicMaterial("Default", nil)
			}
			meshPrims[mi] = append(meshPrims[mi], m)
		}
	}

	// ── 4. Nodes ──────────────────────────────────────────────────────────────
	nodes := make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		nodeName := gn.Name
		if nodeName == "" {
			nodeName = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(nodeName)

		t := gn.TranslationOrDefault()
		n.SetPosition(mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])})

		sc := gn.ScaleOrDefault()
		n.SetScale(mgl32.Vec3{float32(sc[0]), float32(sc[1]), float32(sc[2])})

		r := gn.RotationOrDefault() // [x, y, z, w]
		n.SetRotation(mgl32.Quat{
			W: float32(r[3]),
			V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])},
		})

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			prims := meshPrims[*gn.Mesh]
			switch len(prims) {
			case 0:
				// no geometry
			case 1:
				n.Mesh = prims[0]
			default:
				// Multiple primitives → one child node per primitive
				for pi, p := range prims {
					child := NewNode(fmt.Sprintf("%s_prim%d", nodeName, pi))
					child.Mesh = p
					n.AddChild(child)
				}
			}
		}
		nodes[i] = n
	}

	// Wire up parent-child relationships
	for i, gn := range doc.Nodes {
		for _, childIdx := range gn.Children {
			if childIdx < len(nodes) {
				nodes[i].AddChild(nodes[childIdx])
			}
		}
	}

	// ── 5. Root nodes ─────────────────────────────────────────────────────────
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, rootIdx := range doc.Scenes[*doc.Scene].Nodes {
			if rootIdx < len(nodes) {
				result.Scene.AddChild(nodes[rootIdx])
			}
		}
	} else {
		for _, n := range nodes {
			if n.Parent == nil {
				result.Scene.AddChild(n)
			}
		}
	}

	return result, nil
}

// loadGLTFPrimitive converts one glTF mesh primitive into a Mesh.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*Mesh, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}

	// Positions are required
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	geo := &Geometry{Version: 1}
	geo.Positions = make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		geo.Positions[i] = mgl32.Vec3(p)
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err == nil && len(normals) == len(positions) {
			geo.Normals = make([]mgl32.Vec3, len(normals))
			for i, n := range normals {
				geo.Normals[i] = mgl32.Vec3(n)
			}
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err == nil && len(uvs) == len(positions) {
			geo.UVs = make([]mgl32.Vec2, len(uvs))
			for i, uv := range uvs {
				geo.UVs[i] = mgl32.Vec2(uv)
			}
		}
	}

	if prim.Indices != nil {
		geo.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}
	if geo.Normals == nil {
		geo.ComputeVertexNormals()
	}

	return NewMesh(name, geo, nil), nil
}
