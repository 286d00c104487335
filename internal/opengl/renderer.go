package opengl

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"coffee-scene/core"
	"coffee-scene/scene"
)

// Tone mapping modes understood by the common shader chunk.
const (
	ToneMappingNone   int32 = 0
	ToneMappingCineon int32 = 1
)

// GPUGeometry holds the OpenGL handles for one uploaded scene.Geometry.
type GPUGeometry struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	Count      int32
	HasIndices bool
	Version    uint32
}

// program is a linked GPU program with lazily resolved uniform locations.
type program struct {
	id   uint32
	locs map[string]int32
}

func (p *program) loc(name string) int32 {
	if l, ok := p.locs[name]; ok {
		return l
	}
	l := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locs[name] = l
	return l
}

// DrawCall is one mesh draw with its matrices.
type DrawCall struct {
	Geometry   *scene.Geometry
	Material   scene.Material
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// Renderer is the OpenGL 4.1 backend. All methods must be called from the
// goroutine that owns the GL context.
type Renderer struct {
	programs   map[string]*program
	geometries map[*scene.Geometry]*GPUGeometry
	textures   map[*scene.Texture]struct{}

	target *RenderTarget

	toneMapping int32
	exposure    float32

	viewportW, viewportH int32

	logger *slog.Logger
}

// NewRenderer initialises OpenGL.
// Must be called after the GLFW window context is made current.
func NewRenderer(samples int, logger *slog.Logger) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("OpenGL initialized",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)

	return &Renderer{
		programs:   make(map[string]*program),
		geometries: make(map[*scene.Geometry]*GPUGeometry),
		textures:   make(map[*scene.Texture]struct{}),
		target:     newRenderTarget(samples),
		exposure:   1,
		logger:     logger,
	}, nil
}

// SetProgram compiles and links a program under name. On failure the
// previous program of that name stays in use.
func (r *Renderer) SetProgram(name, vertSrc, fragSrc string) error {
	id, err := newProgram(vertSrc, fragSrc)
	if err != nil {
		return fmt.Errorf("program %q: %w", name, err)
	}
	if old, ok := r.programs[name]; ok {
		gl.DeleteProgram(old.id)
	}
	r.programs[name] = &program{id: id, locs: make(map[string]int32)}
	return nil
}

// SetToneMapping selects the tone curve and exposure applied by lit programs.
func (r *Renderer) SetToneMapping(mode int32, exposure float32) {
	r.toneMapping = mode
	r.exposure = exposure
}

// ── Frame ─────────────────────────────────────────────────────────────────────

// BeginFrame binds the off-screen target at drawing-buffer size and clears
// it. Nothing is bound when the driver rejected the target.
func (r *Renderer) BeginFrame(width, height int, clear core.Color) error {
	r.target.Ensure(width, height)
	if err := r.target.Err(); err != nil {
		return err
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.target.FBO)
	r.viewportW = int32(width)
	r.viewportH = int32(height)
	gl.Viewport(0, 0, r.viewportW, r.viewportH)

	gl.DepthMask(true)
	gl.ClearColor(clear.R, clear.G, clear.B, clear.A)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return nil
}

// EndFrame resolves the target onto the window framebuffer of the given size.
func (r *Renderer) EndFrame(framebufferW, framebufferH int) {
	r.target.Resolve(int32(framebufferW), int32(framebufferH))
}

// ── Draw ──────────────────────────────────────────────────────────────────────

// ProgramFor names the program a material is drawn with.
func ProgramFor(mat scene.Material) (string, error) {
	switch m := mat.(type) {
	case *scene.BasicMaterial:
		return "basic", nil
	case *scene.MatcapMaterial:
		return "matcap", nil
	case *scene.ShaderMaterial:
		return m.Program, nil
	case nil:
		return "", fmt.Errorf("nil material")
	default:
		return "", fmt.Errorf("unsupported material %T", mat)
	}
}

// Draw renders one mesh with its material's program and pipeline state.
func (r *Renderer) Draw(d DrawCall) error {
	name, err := ProgramFor(d.Material)
	if err != nil {
		return err
	}
	p, ok := r.programs[name]
	if !ok {
		return fmt.Errorf("program %q is not loaded", name)
	}
	gpu := r.ensureUploaded(d.Geometry)
	if gpu == nil {
		return nil
	}

	gl.UseProgram(p.id)
	setMat4(p.loc("modelMatrix"), d.Model)
	setMat4(p.loc("viewMatrix"), d.View)
	setMat4(p.loc("projectionMatrix"), d.Projection)
	normal := d.View.Mul4(d.Model).Mat3().Inv().Transpose()
	gl.UniformMatrix3fv(p.loc("normalMatrix"), 1, false, &normal[0])
	gl.Uniform1i(p.loc("toneMapping"), r.toneMapping)
	gl.Uniform1f(p.loc("toneMappingExposure"), r.exposure)

	applyState(d.Material.Base())
	if err := r.applyMaterial(p, d.Material); err != nil {
		return fmt.Errorf("material %q: %w", d.Material.Base().Name, err)
	}

	gl.BindVertexArray(gpu.VAO)
	if gpu.HasIndices {
		gl.DrawElements(gl.TRIANGLES, gpu.Count, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, gpu.Count)
	}
	gl.BindVertexArray(0)
	return nil
}

// applyState sets blending, depth and culling for a material.
func applyState(b *scene.MaterialBase) {
	if b.Transparent {
		gl.Enable(gl.BLEND)
		gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}

	if b.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(b.DepthWrite)

	switch b.Side {
	case scene.DoubleSide:
		gl.Disable(gl.CULL_FACE)
	case scene.BackSide:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
}

// applyMaterial uploads material uniforms and binds textures to consecutive
// units starting at 0.
func (r *Renderer) applyMaterial(p *program, mat scene.Material) error {
	switch m := mat.(type) {
	case *scene.BasicMaterial:
		gl.Uniform3f(p.loc("uColor"), m.Color.R, m.Color.G, m.Color.B)
		gl.Uniform1i(p.loc("uHasMap"), boolToInt32(r.bindTexture(0, m.Map)))
		gl.Uniform1i(p.loc("uMap"), 0)
	case *scene.MatcapMaterial:
		gl.Uniform3f(p.loc("uColor"), m.Color.R, m.Color.G, m.Color.B)
		gl.Uniform1i(p.loc("uHasMatcap"), boolToInt32(r.bindTexture(0, m.Matcap)))
		gl.Uniform1i(p.loc("uMatcap"), 0)
	case *scene.ShaderMaterial:
		names := make([]string, 0, len(m.Uniforms))
		for n := range m.Uniforms {
			names = append(names, n)
		}
		slices.Sort(names)

		var unit uint32
		for _, n := range names {
			switch v := m.Uniforms[n].Get().(type) {
			case float32:
				gl.Uniform1f(p.loc(n), v)
			case *scene.Texture:
				r.bindTexture(unit, v)
				gl.Uniform1i(p.loc(n), int32(unit))
				unit++
			default:
				return fmt.Errorf("uniform %q: unsupported type %T", n, v)
			}
		}
	}
	return nil
}

// bindTexture uploads tex when its pixels changed and binds it to unit. It
// reports false and binds nothing when tex has no pixels yet.
func (r *Renderer) bindTexture(unit uint32, tex *scene.Texture) bool {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	if tex == nil || !tex.Ready() {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		return false
	}
	if tex.GLID == 0 || tex.UploadedVersion != tex.Version {
		if err := UploadTexture(tex); err != nil {
			r.logger.Error("texture upload", "texture", tex.Name, "err", err)
			gl.ActiveTexture(gl.TEXTURE0 + unit)
			gl.BindTexture(gl.TEXTURE_2D, 0)
			return false
		}
		r.textures[tex] = struct{}{}
		gl.ActiveTexture(gl.TEXTURE0 + unit)
	}
	gl.BindTexture(gl.TEXTURE_2D, tex.GLID)
	return true
}

// ── Resource management ───────────────────────────────────────────────────────

// ReleaseGeometry frees the GPU buffers of g, if any.
func (r *Renderer) ReleaseGeometry(g *scene.Geometry) {
	gpu, ok := r.geometries[g]
	if !ok {
		return
	}
	deleteGPUGeometry(gpu)
	delete(r.geometries, g)
}

// Destroy frees every GPU resource owned by the renderer.
func (r *Renderer) Destroy() {
	for g, gpu := range r.geometries {
		deleteGPUGeometry(gpu)
		delete(r.geometries, g)
	}
	for tex := range r.textures {
		DeleteTexture(tex)
		delete(r.textures, tex)
	}
	for name, p := range r.programs {
		gl.DeleteProgram(p.id)
		delete(r.programs, name)
	}
	r.target.Destroy()
}

// ── Internal helpers ──────────────────────────────────────────────────────────

// ensureUploaded uploads vertex and index data when g is new or its Version
// moved on since the last upload.
func (r *Renderer) ensureUploaded(g *scene.Geometry) *GPUGeometry {
	if g == nil || len(g.Positions) == 0 {
		return nil
	}
	gpu, ok := r.geometries[g]
	if ok && gpu.Version == g.Version {
		return gpu
	}
	if ok {
		deleteGPUGeometry(gpu)
	}

	verts := g.Interleave()
	stride := int32(unsafe.Sizeof(core.Vertex{}))

	gpu = &GPUGeometry{
		HasIndices: g.Indices != nil,
		Version:    g.Version,
		Count:      int32(len(verts)),
	}
	if gpu.HasIndices {
		gpu.Count = int32(len(g.Indices))
	}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*int(stride), gl.Ptr(verts), gl.STATIC_DRAW)

	var v core.Vertex
	posOff := int(unsafe.Offsetof(v.Position))
	normOff := int(unsafe.Offsetof(v.Normal))
	uvOff := int(unsafe.Offsetof(v.UV))

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(posOff))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(normOff))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(uvOff))

	if gpu.HasIndices && len(g.Indices) > 0 {
		gl.GenBuffers(1, &gpu.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	r.geometries[g] = gpu
	return gpu
}

func deleteGPUGeometry(gpu *GPUGeometry) {
	if gpu.EBO != 0 {
		gl.DeleteBuffers(1, &gpu.EBO)
	}
	gl.DeleteBuffers(1, &gpu.VBO)
	gl.DeleteVertexArrays(1, &gpu.VAO)
}

func setMat4(loc int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// ── Shader helpers ────────────────────────────────────────────────────────────

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, fmt.Errorf("fragment: %w", err)
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", strings.TrimRight(log, "\x00"))
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
