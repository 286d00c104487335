// Package tween schedules delayed calls and eased value animations against
// an externally advanced clock.
package tween

import (
	"slices"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Power1Out decelerates quadratically; it is the default ease.
var Power1Out ease.TweenFunc = ease.OutQuad

// Property is a scalar a tween can drive.
type Property interface {
	Float() float32
	SetFloat(v float32)
}

// Tween is a scheduled item. It is owned by its Timeline.
type Tween struct {
	start    float64
	duration float64

	call func()

	prop  Property
	to    float32
	ease  ease.TweenFunc
	curve *gween.Tween

	onComplete func()
	done       bool
}

// Start is the timeline time the tween or call begins at.
func (t *Tween) Start() float64 { return t.start }

func (t *Tween) Done() bool { return t.done }

// WithEase replaces the ease; it must be called before the tween starts.
func (t *Tween) WithEase(e ease.TweenFunc) *Tween {
	t.ease = e
	return t
}

// OnComplete registers fn to run once the target value was written.
func (t *Tween) OnComplete(fn func()) *Tween {
	t.onComplete = fn
	return t
}

// Timeline runs its items as Advance moves time forward. Delays are
// measured from the timeline time at which an item is added; inside a
// callback that time is the callback's own scheduled time, not the frame
// time that triggered it.
type Timeline struct {
	now   float64
	items []*Tween
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// Now is the time of the last Advance, or the scheduled time of the
// callback currently running.
func (tl *Timeline) Now() float64 { return tl.now }

// Len counts unfinished items.
func (tl *Timeline) Len() int { return len(tl.items) }

// DelayedCall runs fn once delay seconds from now.
func (tl *Timeline) DelayedCall(delay float64, fn func()) *Tween {
	t := &Tween{start: tl.now + max(delay, 0), call: fn}
	tl.items = append(tl.items, t)
	return t
}

// To animates p from its value at the tween's start to target over
// duration seconds, after delay. The target is written exactly on
// completion.
func (tl *Timeline) To(p Property, target float32, duration, delay float64) *Tween {
	t := &Tween{
		start:    tl.now + max(delay, 0),
		duration: max(duration, 0),
		prop:     p,
		to:       target,
		ease:     Power1Out,
	}
	tl.items = append(tl.items, t)
	return t
}

// Advance moves the timeline to now. Time never goes backwards: smaller
// values are treated as the current time. Due calls fire in start order,
// and tweens are rendered at each call's time before it runs.
func (tl *Timeline) Advance(now float64) {
	now = max(now, tl.now)
	for {
		c := tl.nextCall(now)
		if c == nil {
			break
		}
		tl.render(c.start)
		tl.now = c.start
		c.done = true
		c.call()
	}
	tl.render(now)
	tl.now = now

	tl.items = slices.DeleteFunc(tl.items, func(t *Tween) bool { return t.done })
}

func (tl *Timeline) nextCall(now float64) *Tween {
	var next *Tween
	for _, t := range tl.items {
		if t.call == nil || t.done || t.start > now {
			continue
		}
		if next == nil || t.start < next.start {
			next = t
		}
	}
	return next
}

func (tl *Timeline) render(at float64) {
	for i := 0; i < len(tl.items); i++ {
		t := tl.items[i]
		if t.call != nil || t.done || t.start > at {
			continue
		}
		if t.curve == nil {
			t.curve = gween.New(t.prop.Float(), t.to, float32(t.duration), t.ease)
		}
		if t.duration == 0 || at >= t.start+t.duration {
			t.prop.SetFloat(t.to)
			t.done = true
			if t.onComplete != nil {
				t.onComplete()
			}
			continue
		}
		v, _ := t.curve.Set(float32(at - t.start))
		t.prop.SetFloat(v)
	}
}
