package experience

import (
	"context"
	"sync"

	"coffee-scene/core"
)

// Window is the host surface a Driver loops on.
type Window interface {
	ShouldClose() bool
	PollEvents()
	SwapBuffers()
}

// Driver calls Experience.Tick once per display refresh until the window
// closes, the context ends, Stop is called or a frame fails.
type Driver struct {
	exp    *Experience
	window Window
	clock  *core.Clock

	stop     chan struct{}
	stopOnce sync.Once
}

func NewDriver(exp *Experience, window Window, clock *core.Clock) *Driver {
	if clock == nil {
		clock = core.NewClock()
	}
	return &Driver{
		exp:    exp,
		window: window,
		clock:  clock,
		stop:   make(chan struct{}),
	}
}

// Run loops on the calling goroutine, which must own the GL context. It
// returns nil after Stop or a window close, ctx.Err() on cancellation and
// the frame error otherwise.
func (d *Driver) Run(ctx context.Context) error {
	d.clock.Start()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stop:
			return nil
		default:
		}
		if d.window.ShouldClose() {
			return nil
		}

		d.window.PollEvents()
		if err := d.exp.Tick(d.clock.ElapsedTime()); err != nil {
			return err
		}
		d.window.SwapBuffers()

		if in := d.exp.Input(); in != nil && (in.IsKeyPressed(core.KeyEscape) || in.IsKeyPressed(core.KeyQ)) {
			d.Stop()
		}
	}
}

// Stop ends Run after the current frame. It is safe to call more than once
// and from any goroutine.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}
