package scene

import (
	"fmt"

	"coffee-scene/core"
)

// Side selects which triangle faces are rasterized.
type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

// MaterialBase carries the pipeline state shared by every material.
type MaterialBase struct {
	Name        string
	Side        Side
	Transparent bool
	DepthWrite  bool
	DepthTest   bool
}

func newBase(name string) MaterialBase {
	return MaterialBase{Name: name, DepthWrite: true, DepthTest: true}
}

// Material describes how a mesh is shaded. Each concrete type maps to one
// GPU program in the renderer.
type Material interface {
	Base() *MaterialBase
}

func (b *MaterialBase) Base() *MaterialBase { return b }

// BasicMaterial is unlit: color times the optional map.
type BasicMaterial struct {
	MaterialBase
	Color core.Color
	Map   *Texture
}

func NewBasicMaterial(name string, m *Texture) *BasicMaterial {
	return &BasicMaterial{
		MaterialBase: newBase(name),
		Color:        core.ColorWhite,
		Map:          m,
	}
}

// MatcapMaterial looks the view-space normal up in a matcap texture.
type MatcapMaterial struct {
	MaterialBase
	Color  core.Color
	Matcap *Texture
}

func NewMatcapMaterial(name string, matcap *Texture) *MatcapMaterial {
	return &MatcapMaterial{
		MaterialBase: newBase(name),
		Color:        core.ColorWhite,
		Matcap:       matcap,
	}
}

// Uniform names used by the scene programs.
const (
	UniformTime          = "uTime"
	UniformAlpha         = "uAlpha"
	UniformPerlinTexture = "uPerlinTexture"
)

// Uniform is one named shader input: a float32 or a *Texture.
type Uniform struct {
	value any
}

func NewUniform(v any) *Uniform {
	return &Uniform{value: v}
}

func (u *Uniform) Get() any { return u.value }

// Float returns the value as float32, or 0 when it holds something else.
func (u *Uniform) Float() float32 {
	f, _ := u.value.(float32)
	return f
}

func (u *Uniform) SetFloat(v float32) { u.value = v }

func (u *Uniform) Texture() *Texture {
	t, _ := u.value.(*Texture)
	return t
}

// ShaderMaterial binds a named renderer program to a bag of uniforms.
type ShaderMaterial struct {
	MaterialBase
	Program  string
	Uniforms map[string]*Uniform
}

// NewShaderMaterial builds a material for program; values must be float32
// or *Texture.
func NewShaderMaterial(name, program string, values map[string]any) *ShaderMaterial {
	m := &ShaderMaterial{
		MaterialBase: newBase(name),
		Program:      program,
		Uniforms:     make(map[string]*Uniform, len(values)),
	}
	for k, v := range values {
		switch v.(type) {
		case float32, *Texture:
		default:
			panic(fmt.Sprintf("shader material %q: uniform %q has unsupported type %T", name, k, v))
		}
		m.Uniforms[k] = NewUniform(v)
	}
	return m
}

// Uniform returns the named uniform or nil.
func (m *ShaderMaterial) Uniform(name string) *Uniform {
	return m.Uniforms[name]
}

// SetTime writes uTime. Time never runs backwards: smaller values are ignored.
func (m *ShaderMaterial) SetTime(t float32) {
	u := m.Uniforms[UniformTime]
	if u == nil || t < u.Float() {
		return
	}
	u.SetFloat(t)
}

func (m *ShaderMaterial) Time() float32 {
	if u := m.Uniforms[UniformTime]; u != nil {
		return u.Float()
	}
	return 0
}

// SetAlpha writes uAlpha clamped to [0, 1].
func (m *ShaderMaterial) SetAlpha(a float32) {
	u := m.Uniforms[UniformAlpha]
	if u == nil {
		return
	}
	u.SetFloat(min(max(a, 0), 1))
}

func (m *ShaderMaterial) Alpha() float32 {
	if u := m.Uniforms[UniformAlpha]; u != nil {
		return u.Float()
	}
	return 0
}
