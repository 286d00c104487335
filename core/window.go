package core

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string

	resize resizeFanout
}

type WindowConfig struct {
	Width      int
	Height     int
	Title      string
	Resizable  bool
	VSync      bool
	Fullscreen bool
	// Samples is the MSAA sample count of the default framebuffer; 0 disables antialiasing.
	Samples int
}

// ResizeCallback receives the new window size in screen coordinates and the
// current device pixel ratio.
type ResizeCallback func(width, height int, pixelRatio float32)

// resizeFanout forwards size and pixel ratio reports that differ from the
// last one delivered.
type resizeFanout struct {
	width, height int
	ratio         float32
	callbacks     []ResizeCallback
}

func (f *resizeFanout) update(width, height int, ratio float32) {
	if width == f.width && height == f.height && ratio == f.ratio {
		return
	}
	f.width, f.height, f.ratio = width, height, ratio
	for _, cb := range f.callbacks {
		cb(width, height, ratio)
	}
}

// NewWindow creates a window with a current OpenGL 4.1 core context.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))
	glfw.WindowHint(glfw.Samples, config.Samples)

	monitor := (*glfw.Monitor)(nil)
	if config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	window := &Window{
		Handle: handle,
		Width:  config.Width,
		Height: config.Height,
		Title:  config.Title,
	}

	window.resize = resizeFanout{width: window.Width, height: window.Height, ratio: window.PixelRatio()}

	handle.SetSizeCallback(func(w *glfw.Window, width, height int) {
		window.Width = width
		window.Height = height
		window.resize.update(width, height, window.PixelRatio())
	})
	// a move to a monitor with another scale changes only the pixel ratio
	handle.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		window.resize.update(window.Width, window.Height, window.PixelRatio())
	})

	return window, nil
}

// OnResize registers a callback run synchronously from PollEvents whenever
// the window size or its pixel ratio changes.
func (w *Window) OnResize(cb ResizeCallback) {
	w.resize.callbacks = append(w.resize.callbacks, cb)
}

// PixelRatio is the framebuffer-to-window scale, the desktop analogue of
// devicePixelRatio.
func (w *Window) PixelRatio() float32 {
	fbw, _ := w.Handle.GetFramebufferSize()
	if w.Width > 0 && fbw > 0 {
		return float32(fbw) / float32(w.Width)
	}
	sx, _ := w.Handle.GetContentScale()
	if sx <= 0 {
		return 1
	}
	return sx
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) IsKeyPressed(key int) bool {
	return w.Handle.GetKey(glfw.Key(key)) == glfw.Press
}

func (w *Window) IsMouseButtonPressed(button int) bool {
	return w.Handle.GetMouseButton(glfw.MouseButton(button)) == glfw.Press
}

func (w *Window) GetCursorPos() (float64, float64) {
	return w.Handle.GetCursorPos()
}

// ScrollCallback is the type for scroll event handlers
type ScrollCallback func(xoff, yoff float64)

func (w *Window) SetScrollCallback(cb ScrollCallback) {
	w.Handle.SetScrollCallback(func(win *glfw.Window, xoff, yoff float64) {
		cb(xoff, yoff)
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const (
	KeyEscape = int(glfw.KeyEscape)
	KeyQ      = int(glfw.KeyQ)

	MouseLeft   = int(glfw.MouseButtonLeft)
	MouseRight  = int(glfw.MouseButtonRight)
	MouseMiddle = int(glfw.MouseButtonMiddle)
)
