// Package experience assembles the coffee scene and advances it one frame
// at a time. An Experience owns every piece of mutable state: materials,
// scene graph, camera rig, asset loader and animation timeline. Asset
// completions and frame ticks both run on the frame thread.
package experience

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"coffee-scene/config"
	"coffee-scene/input"
	"coffee-scene/loader"
	"coffee-scene/scene"
	"coffee-scene/tween"
)

// FadeState tracks the reveal transition.
type FadeState int

const (
	FadeLoading FadeState = iota
	FadeTransitioning
	FadeSteady
)

func (s FadeState) String() string {
	switch s {
	case FadeLoading:
		return "loading"
	case FadeTransitioning:
		return "transitioning"
	case FadeSteady:
		return "steady"
	}
	return fmt.Sprintf("FadeState(%d)", int(s))
}

// AssetState tracks one asynchronously assembled part of the scene.
type AssetState int

const (
	NotLoaded AssetState = iota
	Loaded
	Failed
)

func (s AssetState) String() string {
	switch s {
	case NotLoaded:
		return "not loaded"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("AssetState(%d)", int(s))
}

// Renderer is the part of the render engine a frame needs.
type Renderer interface {
	Render(s *scene.Scene, camera *scene.Camera) error
	SetSize(width, height int)
	SetPixelRatio(ratio float32)
	// Release frees the GPU copy of a geometry that left the scene.
	Release(g *scene.Geometry)
}

// Node names of the model's children that receive the scene materials.
const (
	NodeBaked  = "Baked"
	NodeSmoke  = "Smoke"
	NodeSmoke2 = "Smoke2"
)

type Options struct {
	Config   config.Config
	Renderer Renderer
	Loader   *loader.Manager
	// Input is optional; without it the camera only follows the clamps.
	Input  *input.Manager
	Logger *slog.Logger
}

type Experience struct {
	cfg      config.Config
	logger   *slog.Logger
	renderer Renderer
	loader   *loader.Manager
	input    *input.Manager
	timeline *tween.Timeline

	Scene    *scene.Scene
	Camera   *scene.Camera
	Controls *scene.OrbitControls

	Overlay *scene.ShaderMaterial
	Smoke   *scene.ShaderMaterial
	Smoke2  *scene.ShaderMaterial
	Baked   *scene.BasicMaterial
	Matcap  *scene.MatcapMaterial

	Model *scene.Node
	Text  *scene.Node

	Fade          FadeState
	ModelState    AssetState
	TextState     AssetState
	LoaderVisible bool

	revealScheduled bool
	viewportHeight  float32
}

// New builds the materials, camera rig and overlay and queues every asset
// load. Nothing is drawn until the first Tick.
func New(opts Options) (*Experience, error) {
	if opts.Renderer == nil {
		return nil, errors.New("experience: nil renderer")
	}
	if opts.Loader == nil {
		return nil, errors.New("experience: nil loader")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	e := &Experience{
		cfg:            cfg,
		logger:         logger,
		renderer:       opts.Renderer,
		loader:         opts.Loader,
		input:          opts.Input,
		timeline:       tween.NewTimeline(),
		Scene:          scene.NewScene(),
		viewportHeight: float32(cfg.Window.Height),
	}

	textures := loader.NewTextureLoader(e.loader)

	baked := textures.Load(cfg.Assets.BakedTexture)
	baked.FlipY = false
	baked.ColorSpace = scene.ColorSpaceSRGB
	e.Baked = scene.NewBasicMaterial("baked", baked)

	perlin := textures.Load(cfg.Assets.Perlin)
	perlin.SetWrap(scene.WrapRepeat, scene.WrapRepeat)
	perlin2 := textures.Load(cfg.Assets.Perlin2)
	perlin2.SetWrap(scene.WrapRepeat, scene.WrapRepeat)

	matcap := textures.Load(cfg.Assets.Matcap)
	matcap.ColorSpace = scene.ColorSpaceSRGB
	e.Matcap = scene.NewMatcapMaterial("text", matcap)

	e.Overlay = scene.NewShaderMaterial("overlay", "overlay", map[string]any{
		scene.UniformAlpha: float32(1),
	})
	e.Overlay.Transparent = true
	e.Overlay.DepthWrite = false

	e.Smoke = newSmokeMaterial("smoke", perlin)
	e.Smoke2 = newSmokeMaterial("smoke2", perlin2)

	overlay := scene.NewNode("Overlay")
	overlay.Mesh = scene.NewMesh("overlay", scene.CreatePlane(2, 2, 1, 1), e.Overlay)
	overlay.Mesh.FrustumCulled = false
	overlay.Mesh.RenderOrder = 1
	e.Scene.AddNode(overlay)

	e.setupCamera()

	e.loader.OnProgress = e.onProgress
	e.loader.OnLoad = e.onLoad
	e.loader.OnError = e.onError
	e.loader.OnFailed = e.onFailed

	// assembly errors fail the request and surface through OnError
	loader.NewGLTFLoader(e.loader).Load(cfg.Assets.Model, e.OnModel)
	loader.NewFontLoader(e.loader).Load(cfg.Assets.Font, e.OnFont)

	return e, nil
}

func newSmokeMaterial(name string, perlin *scene.Texture) *scene.ShaderMaterial {
	m := scene.NewShaderMaterial(name, "smoke", map[string]any{
		scene.UniformTime:          float32(0),
		scene.UniformPerlinTexture: perlin,
		scene.UniformAlpha:         float32(0),
	})
	m.Side = scene.DoubleSide
	m.Transparent = true
	m.DepthWrite = false
	return m
}

func (e *Experience) setupCamera() {
	c := e.cfg.Camera
	aspect := float32(1)
	if e.cfg.Window.Height > 0 {
		aspect = float32(e.cfg.Window.Width) / float32(e.cfg.Window.Height)
	}
	e.Camera = scene.NewPerspectiveCamera(c.FOV, aspect, c.Near, c.Far)
	e.Camera.SetPosition(mgl32.Vec3(c.Position))
	e.Camera.LookAt(mgl32.Vec3{})

	e.Controls = scene.NewOrbitControls(e.Camera)
	e.Controls.MinPolarAngle = c.MinPolar
	e.Controls.MaxPolarAngle = c.MaxPolar
	e.Controls.MinAzimuthAngle = c.MinAzimuth
	e.Controls.MaxAzimuthAngle = c.MaxAzimuth
	e.Controls.MinDistance = c.MinDist
	e.Controls.MaxDistance = c.MaxDist
}

// Input returns the pointer and keyboard state, or nil.
func (e *Experience) Input() *input.Manager { return e.input }

// Tick advances the scene to elapsed seconds and renders it: the timeline
// is advanced and asset completions delivered, both smoke materials receive
// uTime = elapsed, the controls re-apply their clamps, then the frame is
// drawn. The timeline moves first so a completion delivered in this frame
// schedules its reveal from elapsed.
func (e *Experience) Tick(elapsed float64) error {
	e.timeline.Advance(elapsed)
	e.loader.Poll()

	t := float32(elapsed)
	e.Smoke.SetTime(t)
	e.Smoke2.SetTime(t)

	if e.input != nil {
		e.input.Update()
		e.input.Drive(e.Controls, e.viewportHeight)
		e.input.EndFrame()
	}
	e.Controls.Update()

	if err := e.renderer.Render(e.Scene, e.Camera); err != nil {
		return fmt.Errorf("render at %.3fs: %w", elapsed, err)
	}
	return nil
}

// Resize applies a new window size in screen coordinates and the device
// pixel ratio, capped at the configured maximum.
func (e *Experience) Resize(width, height int, pixelRatio float32) {
	e.Camera.UpdateAspectRatio(float32(width), float32(height))
	e.renderer.SetSize(width, height)
	e.renderer.SetPixelRatio(min(pixelRatio, e.cfg.Renderer.MaxPixelRatio))
	if height > 0 {
		e.viewportHeight = float32(height)
	}
}
