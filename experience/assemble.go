package experience

import (
	"github.com/go-gl/mathgl/mgl32"

	"coffee-scene/loader"
	"coffee-scene/scene"
	"coffee-scene/text"
)

// OnModel places the loaded model and binds the baked and smoke materials
// to its children. Calling it again with the same result changes nothing.
// When a child is missing the model is not added.
func (e *Experience) OnModel(r *scene.GLTFResult) error {
	root := r.Scene
	err := scene.BindMaterials(root, map[string]scene.Material{
		NodeBaked:  e.Baked,
		NodeSmoke:  e.Smoke,
		NodeSmoke2: e.Smoke2,
	})
	if err != nil {
		e.ModelState = Failed
		return err
	}

	root.SetRotationEuler(0, e.cfg.Model.RotationY, 0)
	pos := root.Transform.Position
	pos[1] = e.cfg.Model.PositionY
	root.SetPosition(pos)

	if e.Model != root {
		if e.Model != nil {
			e.Scene.RemoveNode(e.Model)
			e.release(e.Model)
		}
		e.Scene.AddNode(root)
		e.Model = root
	}
	e.ModelState = Loaded
	e.logger.Info("model assembled", "children", len(root.Children))
	return nil
}

// OnFont builds the extruded, bevelled text mesh and adds it, replacing
// any previous one.
func (e *Experience) OnFont(f text.Font) error {
	c := e.cfg.Text
	geo := scene.NewTextGeometry(c.Content, f, scene.TextOptions{
		ExtrudeOptions: scene.ExtrudeOptions{
			Depth:          c.Depth,
			Steps:          1,
			BevelEnabled:   c.BevelEnabled,
			BevelThickness: c.BevelThickness,
			BevelSize:      c.BevelSize,
			BevelOffset:    c.BevelOffset,
			BevelSegments:  c.BevelSegments,
		},
		Size:          c.Size,
		CurveSegments: c.CurveSegments,
	})
	geo.DeleteAttribute(scene.AttributeNormal)
	geo = geo.MergeVertices(c.MergeTolerance)
	geo.ComputeVertexNormals()

	node := scene.NewNode("Text")
	node.Mesh = scene.NewMesh("text", geo, e.Matcap)
	node.SetPosition(mgl32.Vec3(c.Position))
	node.SetRotationEuler(0, c.RotationY, 0)

	if e.Text != nil {
		e.Scene.RemoveNode(e.Text)
		e.release(e.Text)
	}
	e.Scene.AddNode(node)
	e.Text = node
	e.TextState = Loaded
	e.logger.Info("text assembled", "vertices", geo.VertexCount(), "triangles", geo.TriangleCount())
	return nil
}

// release frees the GPU buffers of every mesh under n.
func (e *Experience) release(n *scene.Node) {
	n.Traverse(func(c *scene.Node) {
		if c.Mesh != nil && c.Mesh.Geometry != nil {
			e.renderer.Release(c.Mesh.Geometry)
		}
	})
}

// useFallbackFont builds the text from the bundled font after the font
// asset failed.
func (e *Experience) useFallbackFont(cause error) {
	f, err := text.DefaultFont()
	if err == nil {
		err = e.OnFont(f)
	}
	if err != nil {
		e.TextState = Failed
		e.logger.Error("fallback font unavailable", "err", err)
		return
	}
	e.logger.Warn("text uses the fallback font", "url", e.cfg.Assets.Font, "err", cause)
}

func (e *Experience) onProgress(p loader.Progress) {
	e.LoaderVisible = true
	e.logger.Debug("asset loaded", "url", p.URL, "loaded", p.Loaded, "failed", p.Failed, "total", p.Total)
}

func (e *Experience) onError(url string, err error) {
	switch url {
	case e.cfg.Assets.Model:
		e.ModelState = Failed
	case e.cfg.Assets.Font:
		e.useFallbackFont(err)
	}
	e.logger.Debug("asset state changed", "url", url, "model", e.ModelState, "text", e.TextState)
}

func (e *Experience) onLoad() {
	e.scheduleReveal()
}

// onFailed reveals whatever did load rather than leaving the indicator up.
func (e *Experience) onFailed(error) {
	e.logger.Warn("revealing partial scene", "model", e.ModelState, "text", e.TextState)
	e.scheduleReveal()
}

// scheduleReveal hides the indicator RevealDelay after the current time and
// fades the overlay out and the smoke in.
func (e *Experience) scheduleReveal() {
	if e.revealScheduled {
		return
	}
	e.revealScheduled = true

	l := e.cfg.Loading
	e.timeline.DelayedCall(l.RevealDelay.Seconds(), func() {
		e.LoaderVisible = false
		e.Fade = FadeTransitioning

		pending := 3
		done := func() {
			pending--
			if pending == 0 {
				e.Fade = FadeSteady
			}
		}
		for _, f := range []struct {
			m      *scene.ShaderMaterial
			target float32
		}{
			{e.Overlay, 0},
			{e.Smoke, 1},
			{e.Smoke2, 1},
		} {
			e.timeline.To(alpha{f.m}, f.target, l.FadeDuration.Seconds(), l.FadeDelay.Seconds()).OnComplete(done)
		}
	})
}

// alpha drives a material's uAlpha through its clamping setter.
type alpha struct{ m *scene.ShaderMaterial }

func (a alpha) Float() float32     { return a.m.Alpha() }
func (a alpha) SetFloat(v float32) { a.m.SetAlpha(v) }
