// Package renderer draws a scene graph through the OpenGL backend: opaque
// meshes first, then transparent ones back to front, tone mapped and
// encoded to sRGB, into a drawing buffer scaled by a capped pixel ratio.
package renderer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"coffee-scene/core"
	"coffee-scene/internal/opengl"
	"coffee-scene/scene"
)

// ToneMapping selects the curve applied to lit materials.
type ToneMapping int32

const (
	ToneMappingNone   = ToneMapping(opengl.ToneMappingNone)
	ToneMappingCineon = ToneMapping(opengl.ToneMappingCineon)
)

// ParseToneMapping accepts "none" (or empty) and "cineon", case-insensitive.
func ParseToneMapping(s string) (ToneMapping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ToneMappingNone, nil
	case "cineon":
		return ToneMappingCineon, nil
	}
	return ToneMappingNone, fmt.Errorf("unknown tone mapping %q", s)
}

type Options struct {
	ToneMapping   ToneMapping
	Exposure      float32
	MaxPixelRatio float32
	// Samples is the MSAA sample count of the scene target; 0 disables it.
	Samples int
	// Shaders overrides the embedded program sources.
	Shaders fs.FS
	Logger  *slog.Logger
}

// DefaultOptions match the coffee scene: Cineon at exposure 0.9, 4x MSAA.
func DefaultOptions() Options {
	return Options{
		ToneMapping:   ToneMappingCineon,
		Exposure:      0.9,
		MaxPixelRatio: 2,
		Samples:       4,
	}
}

// RenderEngine is the high-level renderer that drives the OpenGL backend.
type RenderEngine struct {
	gl       *opengl.Renderer
	window   *core.Window
	viewport Viewport
	opts     Options
	logger   *slog.Logger

	shaders fs.FS
	watcher *ShaderWatcher

	// last frame's draw counts; changes are logged
	stats drawStats
}

type drawStats struct {
	objects, vertices, triangles int
}

// NewRenderEngine compiles every program and sizes the drawing buffer from
// the window. The window's GL context must be current.
func NewRenderEngine(window *core.Window, opts Options) (*RenderEngine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	glRenderer, err := opengl.NewRenderer(opts.Samples, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenGL renderer: %w", err)
	}
	glRenderer.SetToneMapping(int32(opts.ToneMapping), opts.Exposure)

	shaders := opts.Shaders
	if shaders == nil {
		shaders = EmbeddedShaders()
	}
	srcs, err := LoadShaders(shaders)
	if err != nil {
		glRenderer.Destroy()
		return nil, fmt.Errorf("load shaders: %w", err)
	}
	for _, name := range Programs {
		if err := glRenderer.SetProgram(name, srcs[name].Vertex, srcs[name].Fragment); err != nil {
			glRenderer.Destroy()
			return nil, err
		}
	}

	re := &RenderEngine{
		gl:       glRenderer,
		window:   window,
		viewport: NewViewport(window.Width, window.Height, opts.MaxPixelRatio),
		opts:     opts,
		logger:   logger,
		shaders:  shaders,
	}
	re.viewport.SetPixelRatio(window.PixelRatio())

	logger.Info("render engine initialized",
		"backend", "opengl",
		"tone_mapping", opts.ToneMapping,
		"exposure", opts.Exposure,
		"samples", opts.Samples)
	return re, nil
}

func (t ToneMapping) String() string {
	switch t {
	case ToneMappingCineon:
		return "cineon"
	case ToneMappingNone:
		return "none"
	}
	return fmt.Sprintf("ToneMapping(%d)", int32(t))
}

// WatchShaders recompiles programs whenever their sources in dir change.
// Sources are read from dir from then on.
func (re *RenderEngine) WatchShaders(dir string) error {
	w, err := NewShaderWatcher(dir, re.logger)
	if err != nil {
		return err
	}
	if re.watcher != nil {
		re.watcher.Close()
	}
	re.watcher = w
	re.shaders = os.DirFS(dir)
	return nil
}

// reloadShaders applies pending source changes. A program that fails to
// build keeps its previous version.
func (re *RenderEngine) reloadShaders() {
	if re.watcher == nil {
		return
	}
	for _, name := range re.watcher.Changed() {
		src, err := LoadShader(re.shaders, name)
		if err == nil {
			err = re.gl.SetProgram(name, src.Vertex, src.Fragment)
		}
		if err != nil {
			re.logger.Error("shader reload failed", "program", name, "err", err)
			continue
		}
		re.logger.Info("shader reloaded", "program", name)
	}
}

// SetSize sets the logical canvas size.
func (re *RenderEngine) SetSize(width, height int) {
	re.viewport.SetSize(width, height)
}

// SetPixelRatio sets the device pixel ratio, capped at Options.MaxPixelRatio.
func (re *RenderEngine) SetPixelRatio(ratio float32) {
	re.viewport.SetPixelRatio(ratio)
}

func (re *RenderEngine) PixelRatio() float32 { return re.viewport.PixelRatio() }

// DrawingBufferSize is the size in device pixels the scene renders at.
func (re *RenderEngine) DrawingBufferSize() (int, int) {
	return re.viewport.DrawingBufferSize()
}

// Render draws s from camera: opaque meshes front to back, then transparent
// meshes back to front. Every mesh is attempted; draw failures are joined.
func (re *RenderEngine) Render(s *scene.Scene, camera *scene.Camera) error {
	if s == nil || camera == nil {
		return fmt.Errorf("no scene or camera")
	}
	re.reloadShaders()

	bufW, bufH := re.viewport.DrawingBufferSize()
	if bufW == 0 || bufH == 0 {
		return nil
	}
	if err := re.gl.BeginFrame(bufW, bufH, s.Background); err != nil {
		return fmt.Errorf("begin frame %dx%d: %w", bufW, bufH, err)
	}

	view := camera.GetViewMatrix()
	proj := camera.GetProjectionMatrix()
	opaque, transparent := s.RenderList(camera)

	var st drawStats
	var errs []error
	for _, pass := range [][]scene.RenderItem{opaque, transparent} {
		for _, item := range pass {
			err := re.gl.Draw(opengl.DrawCall{
				Geometry:   item.Mesh.Geometry,
				Material:   item.Mesh.Material,
				Model:      item.World,
				View:       view,
				Projection: proj,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("draw %q: %w", item.Node.Name, err))
				continue
			}
			st.objects++
			st.vertices += item.Mesh.Geometry.VertexCount()
			st.triangles += item.Mesh.Geometry.TriangleCount()
		}
	}

	if st != re.stats {
		re.logger.Debug("draw list changed",
			"objects", st.objects, "vertices", st.vertices, "triangles", st.triangles)
		re.stats = st
	}

	fbW, fbH := re.window.GetFramebufferSize()
	re.gl.EndFrame(fbW, fbH)
	return errors.Join(errs...)
}

// Release frees the GPU copy of a geometry that left the scene.
func (re *RenderEngine) Release(g *scene.Geometry) {
	re.gl.ReleaseGeometry(g)
}

func (re *RenderEngine) Destroy() {
	if re.watcher != nil {
		if err := re.watcher.Close(); err != nil {
			re.logger.Warn("shader watcher close", "err", err)
		}
		re.watcher = nil
	}
	re.gl.Destroy()
}
