package experience

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffee-scene/config"
	"coffee-scene/core"
	"coffee-scene/input"
	"coffee-scene/loader"
	"coffee-scene/scene"
	"coffee-scene/text"
)

const testModel = `{
	"asset": {"version": "2.0"},
	"nodes": [{"name": "Baked"}, {"name": "Smoke"}, {"name": "Smoke2"}]
}`

// Every character falls back to the '?' box.
const testFont = `{
	"resolution": 1000,
	"boundingBox": {"yMin": -200, "yMax": 800},
	"underlineThickness": 50,
	"glyphs": {
		"?": {"ha": 500, "o": "m 0 0 l 400 0 l 400 700 l 0 700 z"},
		" ": {"ha": 250, "o": ""}
	}
}`

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testAssets(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"Model/baked.jpg":                {Data: pngBytes(t)},
		"Noise/perlin.png":               {Data: pngBytes(t)},
		"Noise/perlin2.png":              {Data: pngBytes(t)},
		"Matcap/matcap.png":              {Data: pngBytes(t)},
		"Model/coffee.glb":               {Data: []byte(testModel)},
		"Font/Playwrite CU_Regular.json": {Data: []byte(testFont)},
	}
}

type fakeRenderer struct {
	renders       int
	width, height int
	ratio         float32
	err           error
	onRender      func()
	released      []*scene.Geometry
}

func (r *fakeRenderer) Render(*scene.Scene, *scene.Camera) error {
	r.renders++
	if r.onRender != nil {
		r.onRender()
	}
	return r.err
}

func (r *fakeRenderer) SetSize(w, h int)          { r.width, r.height = w, h }
func (r *fakeRenderer) SetPixelRatio(pr float32)  { r.ratio = pr }
func (r *fakeRenderer) Release(g *scene.Geometry) { r.released = append(r.released, g) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExperience(t *testing.T, fsys fstest.MapFS) (*Experience, *fakeRenderer, *loader.Manager) {
	t.Helper()
	m := loader.NewManager(fsys, loader.WithLogger(quietLogger()))
	t.Cleanup(m.Close)
	r := &fakeRenderer{}
	e, err := New(Options{
		Config:   config.Default(),
		Renderer: r,
		Loader:   m,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	return e, r, m
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testModelResult(names ...string) *scene.GLTFResult {
	root := scene.NewNode("Scene")
	for _, n := range names {
		child := scene.NewNode(n)
		child.Mesh = scene.NewMesh(n, scene.CreatePlane(1, 1, 1, 1), nil)
		root.AddChild(child)
	}
	return &scene.GLTFResult{Scene: root}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{Config: config.Default()})
	assert.Error(t, err)
}

func TestInitialState(t *testing.T) {
	e, _, _ := newTestExperience(t, testAssets(t))

	assert.Equal(t, FadeLoading, e.Fade)
	assert.Equal(t, NotLoaded, e.ModelState)
	assert.Equal(t, NotLoaded, e.TextState)
	assert.False(t, e.LoaderVisible)

	assert.Equal(t, float32(1), e.Overlay.Alpha())
	assert.Equal(t, float32(0), e.Smoke.Alpha())
	assert.Equal(t, float32(0), e.Smoke2.Alpha())
	assert.Equal(t, scene.DoubleSide, e.Smoke.Side)
	assert.False(t, e.Smoke.DepthWrite)
	assert.True(t, e.Overlay.Transparent)
	assert.False(t, e.Overlay.DepthWrite)

	assert.NotSame(t, e.Smoke.Uniform(scene.UniformPerlinTexture).Texture(),
		e.Smoke2.Uniform(scene.UniformPerlinTexture).Texture())
	assert.Equal(t, scene.WrapRepeat, e.Smoke.Uniform(scene.UniformPerlinTexture).Texture().WrapS)
	assert.False(t, e.Baked.Map.FlipY)
	assert.Equal(t, scene.ColorSpaceSRGB, e.Baked.Map.ColorSpace)

	assert.Equal(t, mgl32.Vec3{4, 5, 6}, e.Camera.Position)
}

func TestTickWritesElapsedTime(t *testing.T) {
	e, r, _ := newTestExperience(t, testAssets(t))

	var seen [][2]float32
	r.onRender = func() {
		seen = append(seen, [2]float32{e.Smoke.Time(), e.Smoke2.Time()})
	}

	times := []float64{0, 0.016, 0.5, 1.25, 7.1, 3600.123}
	for _, tt := range times {
		require.NoError(t, e.Tick(tt))
	}
	require.Len(t, seen, len(times))
	for i, tt := range times {
		assert.Equal(t, float32(tt), seen[i][0])
		assert.Equal(t, float32(tt), seen[i][1])
	}
}

func TestRevealSchedule(t *testing.T) {
	e, _, m := newTestExperience(t, testAssets(t))
	require.NoError(t, m.Wait(waitCtx(t)))

	assert.True(t, e.LoaderVisible)
	assert.Equal(t, Loaded, e.ModelState)
	assert.Equal(t, Loaded, e.TextState)

	require.NoError(t, e.Tick(0.999))
	assert.Equal(t, FadeLoading, e.Fade)
	assert.True(t, e.LoaderVisible)

	require.NoError(t, e.Tick(1.0))
	assert.Equal(t, FadeTransitioning, e.Fade)
	assert.False(t, e.LoaderVisible)
	assert.Equal(t, float32(1), e.Overlay.Alpha())

	require.NoError(t, e.Tick(1.5))
	assert.Equal(t, float32(1), e.Overlay.Alpha())
	assert.Equal(t, float32(0), e.Smoke.Alpha())

	require.NoError(t, e.Tick(2.25))
	assert.Greater(t, e.Overlay.Alpha(), float32(0))
	assert.Less(t, e.Overlay.Alpha(), float32(1))
	assert.InDelta(t, 1-e.Overlay.Alpha(), e.Smoke.Alpha(), 1e-6)
	assert.Equal(t, e.Smoke.Alpha(), e.Smoke2.Alpha())

	require.NoError(t, e.Tick(2.999))
	assert.Greater(t, e.Overlay.Alpha(), float32(0))
	assert.Equal(t, FadeTransitioning, e.Fade)

	require.NoError(t, e.Tick(3.0))
	assert.Equal(t, float32(0), e.Overlay.Alpha())
	assert.Equal(t, float32(1), e.Smoke.Alpha())
	assert.Equal(t, float32(1), e.Smoke2.Alpha())
	assert.Equal(t, FadeSteady, e.Fade)
}

func TestRevealStartsFromLoadTime(t *testing.T) {
	e, _, m := newTestExperience(t, testAssets(t))

	// frames keep running while nothing has loaded
	require.NoError(t, e.Tick(10))
	require.NoError(t, m.Wait(waitCtx(t)))

	require.NoError(t, e.Tick(10.5))
	assert.Equal(t, FadeLoading, e.Fade)
	require.NoError(t, e.Tick(11))
	assert.Equal(t, FadeTransitioning, e.Fade)
	require.NoError(t, e.Tick(13))
	assert.Equal(t, FadeSteady, e.Fade)
	assert.Equal(t, float32(0), e.Overlay.Alpha())
}

func TestMissingFontFallsBackAndReveals(t *testing.T) {
	assets := testAssets(t)
	delete(assets, "Font/Playwrite CU_Regular.json")
	e, _, m := newTestExperience(t, assets)

	err := m.Wait(waitCtx(t))
	var loadErr *loader.AssetLoadFailedError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "Font/Playwrite CU_Regular.json", loadErr.URL)

	// the bundled font stands in for the missing asset
	assert.Equal(t, Loaded, e.TextState)
	assert.Equal(t, Loaded, e.ModelState)
	require.NotNil(t, e.Text)
	assert.NotZero(t, e.Text.Mesh.Geometry.TriangleCount())
	assert.Equal(t, mgl32.Vec3{-3.5, 4, 0}, e.Text.Transform.Position)

	require.NoError(t, e.Tick(1))
	assert.Equal(t, FadeTransitioning, e.Fade)
	require.NoError(t, e.Tick(3))
	assert.Equal(t, FadeSteady, e.Fade)
	assert.Equal(t, float32(1), e.Smoke.Alpha())
}

func TestModelMissingChildFailsLoad(t *testing.T) {
	assets := testAssets(t)
	assets["Model/coffee.glb"] = &fstest.MapFile{Data: []byte(`{
	"asset": {"version": "2.0"},
	"nodes": [{"name": "Baked"}, {"name": "Smoke"}]
}`)}
	e, _, m := newTestExperience(t, assets)

	err := m.Wait(waitCtx(t))
	var missing *scene.NamedNodeMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, NodeSmoke2, missing.Name)
	var loadErr *loader.AssetLoadFailedError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "Model/coffee.glb", loadErr.URL)

	assert.Equal(t, Failed, e.ModelState)
	assert.Nil(t, e.Model)
	assert.Equal(t, Loaded, e.TextState)

	// the rest of the scene is still revealed
	require.NoError(t, e.Tick(1))
	assert.Equal(t, FadeTransitioning, e.Fade)
	require.NoError(t, e.Tick(3))
	assert.Equal(t, FadeSteady, e.Fade)
}

func TestReplacedNodesReleaseGeometry(t *testing.T) {
	e, r, _ := newTestExperience(t, testAssets(t))

	first := testModelResult(NodeBaked, NodeSmoke, NodeSmoke2)
	require.NoError(t, e.OnModel(first))
	assert.Empty(t, r.released)

	second := testModelResult(NodeBaked, NodeSmoke, NodeSmoke2)
	require.NoError(t, e.OnModel(second))
	require.Len(t, r.released, 3)
	for _, name := range []string{NodeBaked, NodeSmoke, NodeSmoke2} {
		n, err := first.Scene.Child(name)
		require.NoError(t, err)
		assert.Contains(t, r.released, n.Mesh.Geometry)
	}

	f, err := text.ParseTypeface([]byte(testFont))
	require.NoError(t, err)
	require.NoError(t, e.OnFont(f))
	old := e.Text.Mesh.Geometry
	require.NoError(t, e.OnFont(f))
	assert.Same(t, old, r.released[len(r.released)-1])
}

func TestResize(t *testing.T) {
	e, r, _ := newTestExperience(t, testAssets(t))

	e.Resize(800, 600, 3)
	assert.Equal(t, 800, r.width)
	assert.Equal(t, 600, r.height)
	assert.Equal(t, float32(2), r.ratio)
	assert.InDelta(t, 800.0/600.0, e.Camera.AspectRatio, 1e-6)

	e.Resize(1000, 500, 1.5)
	assert.Equal(t, float32(1.5), r.ratio)
	assert.InDelta(t, 2, e.Camera.AspectRatio, 1e-6)
}

func TestOnModelIsIdempotent(t *testing.T) {
	e, _, _ := newTestExperience(t, testAssets(t))
	before := len(e.Scene.Root.Children)

	res := testModelResult(NodeBaked, NodeSmoke, NodeSmoke2)
	require.NoError(t, e.OnModel(res))
	require.NoError(t, e.OnModel(res))

	assert.Len(t, e.Scene.Root.Children, before+1)
	assert.Same(t, res.Scene, e.Model)
	assert.Equal(t, Loaded, e.ModelState)
	assert.InDelta(t, -0.6, e.Model.Transform.Position.Y(), 1e-6)

	for name, want := range map[string]scene.Material{
		NodeBaked:  e.Baked,
		NodeSmoke:  e.Smoke,
		NodeSmoke2: e.Smoke2,
	} {
		n, err := e.Model.Child(name)
		require.NoError(t, err)
		assert.Same(t, want, n.Mesh.Material, name)
	}

	// rotation.y = -0.5 turns +X towards +Z
	x := e.Model.Transform.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, math.Cos(-0.5), x.X(), 1e-5)
	assert.InDelta(t, -math.Sin(-0.5), x.Z(), 1e-5)
}

func TestOnModelMissingChild(t *testing.T) {
	e, _, _ := newTestExperience(t, testAssets(t))
	before := len(e.Scene.Root.Children)

	res := testModelResult(NodeBaked, NodeSmoke)
	err := e.OnModel(res)

	var missing *scene.NamedNodeMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, NodeSmoke2, missing.Name)
	assert.Equal(t, Failed, e.ModelState)
	assert.Nil(t, e.Model)
	assert.Len(t, e.Scene.Root.Children, before)

	baked, _ := res.Scene.Child(NodeBaked)
	assert.Nil(t, baked.Mesh.Material)
}

func TestOnFontBuildsTwoLines(t *testing.T) {
	e, _, _ := newTestExperience(t, testAssets(t))
	f, err := text.ParseTypeface([]byte(testFont))
	require.NoError(t, err)

	require.NoError(t, e.OnFont(f))
	require.NotNil(t, e.Text)
	first := e.Text
	assert.Equal(t, Loaded, e.TextState)
	assert.Equal(t, mgl32.Vec3{-3.5, 4, 0}, e.Text.Transform.Position)
	assert.Same(t, e.Matcap, e.Text.Mesh.Material.(*scene.MatcapMaterial))

	geo := e.Text.Mesh.Geometry
	require.NotZero(t, geo.VertexCount())
	require.Len(t, geo.Normals, geo.VertexCount())
	require.NotNil(t, geo.Indices)

	// line 1 sits at y >= -bevel, line 2 one line height (0.525) lower
	var upper, lower int
	for _, p := range geo.Positions {
		switch {
		case p.Y() > -0.1:
			upper++
			assert.GreaterOrEqual(t, p.Y(), float32(-0.021))
		default:
			lower++
			assert.LessOrEqual(t, p.Y(), float32(-0.154))
		}
	}
	assert.NotZero(t, upper)
	assert.NotZero(t, lower)

	before := len(e.Scene.Root.Children)
	require.NoError(t, e.OnFont(f))
	assert.Len(t, e.Scene.Root.Children, before)
	assert.NotSame(t, first, e.Text)
}

func TestTickReturnsRenderError(t *testing.T) {
	e, r, _ := newTestExperience(t, testAssets(t))
	boom := errors.New("boom")
	r.err = boom
	assert.ErrorIs(t, e.Tick(0), boom)
}

func TestControlsClampEveryTick(t *testing.T) {
	e, _, _ := newTestExperience(t, testAssets(t))
	e.Camera.SetPosition(mgl32.Vec3{0, 30, 0})

	require.NoError(t, e.Tick(0))
	s := e.Controls.Spherical()
	assert.LessOrEqual(t, s.Radius, float32(12)+1e-4)
	assert.GreaterOrEqual(t, s.Phi, float32(math.Pi/4)-1e-4)
}

type fakeWindow struct {
	closeAfter int
	polls      int
	swaps      int
}

func (w *fakeWindow) ShouldClose() bool { return w.closeAfter > 0 && w.swaps >= w.closeAfter }
func (w *fakeWindow) PollEvents()       { w.polls++ }
func (w *fakeWindow) SwapBuffers()      { w.swaps++ }

func steppingClock() *core.Clock {
	now := time.Unix(0, 0)
	return core.NewClockWithSource(func() time.Time {
		now = now.Add(16 * time.Millisecond)
		return now
	})
}

func TestDriverRunsUntilWindowCloses(t *testing.T) {
	e, r, _ := newTestExperience(t, testAssets(t))
	w := &fakeWindow{closeAfter: 3}

	d := NewDriver(e, w, steppingClock())
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 3, r.renders)
	assert.Equal(t, 3, w.polls)
	assert.Greater(t, e.Smoke.Time(), float32(0))
}

func TestDriverStop(t *testing.T) {
	e, r, _ := newTestExperience(t, testAssets(t))
	w := &fakeWindow{}
	d := NewDriver(e, w, steppingClock())

	r.onRender = func() {
		if r.renders == 5 {
			d.Stop()
		}
	}
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 5, r.renders)

	d.Stop()
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 5, r.renders)
}

func TestDriverHonoursContext(t *testing.T) {
	e, r, _ := newTestExperience(t, testAssets(t))
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDriver(e, &fakeWindow{}, steppingClock())

	r.onRender = func() {
		if r.renders == 2 {
			cancel()
		}
	}
	assert.ErrorIs(t, d.Run(ctx), context.Canceled)
	assert.Equal(t, 2, r.renders)
}

func TestDriverStopsOnRenderError(t *testing.T) {
	e, r, _ := newTestExperience(t, testAssets(t))
	r.err = errors.New("lost context")
	w := &fakeWindow{}

	err := NewDriver(e, w, steppingClock()).Run(context.Background())
	assert.ErrorIs(t, err, r.err)
	assert.Equal(t, 0, w.swaps)
}

type keyDevice struct {
	keys map[int]bool
}

func (d *keyDevice) GetCursorPos() (float64, float64)       { return 0, 0 }
func (d *keyDevice) IsMouseButtonPressed(int) bool          { return false }
func (d *keyDevice) IsKeyPressed(k int) bool                { return d.keys[k] }
func (d *keyDevice) SetScrollCallback(core.ScrollCallback) {}

func TestDriverQuitsOnEscape(t *testing.T) {
	m := loader.NewManager(testAssets(t), loader.WithLogger(quietLogger()))
	t.Cleanup(m.Close)
	dev := &keyDevice{keys: map[int]bool{}}
	r := &fakeRenderer{}
	e, err := New(Options{
		Config:   config.Default(),
		Renderer: r,
		Loader:   m,
		Input:    input.NewManager(dev),
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	r.onRender = func() {
		if r.renders == 2 {
			dev.keys[core.KeyEscape] = true
		}
	}
	require.NoError(t, NewDriver(e, &fakeWindow{}, steppingClock()).Run(context.Background()))
	assert.Equal(t, 3, r.renders)
}
