// Package input polls pointer and keyboard state once per frame and turns
// it into orbit camera input.
package input

import (
	"coffee-scene/core"
	"coffee-scene/scene"
)

// Device is the part of a window the manager polls.
type Device interface {
	GetCursorPos() (float64, float64)
	IsMouseButtonPressed(button int) bool
	IsKeyPressed(key int) bool
	SetScrollCallback(cb core.ScrollCallback)
}

// Manager tracks mouse and keyboard state across frames
type Manager struct {
	// Mouse state
	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	lastMouseX, lastMouseY   float64
	ScrollDelta              float64

	// Button states
	mouseButtons     [3]bool
	mouseButtonsPrev [3]bool

	keys     map[int]bool
	keysPrev map[int]bool

	device     Device
	firstFrame bool
}

// Keys polled every frame.
var watchedKeys = []int{core.KeyEscape, core.KeyQ}

// NewManager creates a manager and hooks the device's scroll callback.
func NewManager(device Device) *Manager {
	m := &Manager{
		device:     device,
		firstFrame: true,
		keys:       make(map[int]bool, len(watchedKeys)),
		keysPrev:   make(map[int]bool, len(watchedKeys)),
	}

	device.SetScrollCallback(func(xoff, yoff float64) {
		m.ScrollDelta += yoff
	})

	return m
}

// Update should be called once per frame, after events were polled.
func (m *Manager) Update() {
	x, y := m.device.GetCursorPos()
	if m.firstFrame {
		m.lastMouseX = x
		m.lastMouseY = y
		m.firstFrame = false
	}
	m.MouseDeltaX = x - m.lastMouseX
	m.MouseDeltaY = y - m.lastMouseY
	m.lastMouseX = x
	m.lastMouseY = y
	m.MouseX = x
	m.MouseY = y

	m.mouseButtonsPrev = m.mouseButtons
	for _, k := range watchedKeys {
		m.keysPrev[k] = m.keys[k]
	}

	m.mouseButtons[core.MouseLeft] = m.device.IsMouseButtonPressed(core.MouseLeft)
	m.mouseButtons[core.MouseRight] = m.device.IsMouseButtonPressed(core.MouseRight)
	m.mouseButtons[core.MouseMiddle] = m.device.IsMouseButtonPressed(core.MouseMiddle)

	for _, k := range watchedKeys {
		m.keys[k] = m.device.IsKeyPressed(k)
	}
}

// EndFrame clears per-frame state
func (m *Manager) EndFrame() {
	m.ScrollDelta = 0
}

func (m *Manager) IsMouseDown(button int) bool {
	if button < 0 || button >= len(m.mouseButtons) {
		return false
	}
	return m.mouseButtons[button]
}

func (m *Manager) IsMousePressed(button int) bool {
	if button < 0 || button >= len(m.mouseButtons) {
		return false
	}
	return m.mouseButtons[button] && !m.mouseButtonsPrev[button]
}

func (m *Manager) IsMouseReleased(button int) bool {
	if button < 0 || button >= len(m.mouseButtons) {
		return false
	}
	return !m.mouseButtons[button] && m.mouseButtonsPrev[button]
}

func (m *Manager) IsKeyDown(key int) bool {
	return m.keys[key]
}

func (m *Manager) IsKeyPressed(key int) bool {
	return m.keys[key] && !m.keysPrev[key]
}

// Drive feeds this frame's left-button drag and wheel into controls. The
// drag starts counting on the frame after the button went down.
func (m *Manager) Drive(controls *scene.OrbitControls, viewportHeight float32) {
	if m.IsMouseDown(core.MouseLeft) && !m.IsMousePressed(core.MouseLeft) {
		controls.Drag(float32(m.MouseDeltaX), float32(m.MouseDeltaY), viewportHeight)
	}
	if m.ScrollDelta != 0 {
		controls.Scroll(float32(m.ScrollDelta))
	}
}
