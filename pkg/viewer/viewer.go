package viewer

import (
	"sync"
	"time"

	"github.com/insightslm/insightslm/pkg/types"
)

type State int

const (
	StateIdle State = iota
	StateViewing
)

func (s State) String() string {
	if s == StateViewing {
		return "viewing"
	}
	return "idle"
}

// DefaultScrollDelay lets the client lay out the highlighted text before the
// scroll target is measured.
const DefaultScrollDelay = 300 * time.Millisecond

// Timer is the part of *time.Timer the viewer needs.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn after d. time.AfterFunc satisfies it.
type Scheduler func(d time.Duration, fn func()) Timer

func afterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// ScrollRequest asks the client to center Line of SourceID. Seq grows with
// every selection so stale requests can be dropped.
type ScrollRequest struct {
	Seq        uint64 `json:"seq"`
	SourceID   string `json:"source_id"`
	CitationID int    `json:"citation_id"`
	Line       int    `json:"line"`
}

// Snapshot is a copy of the viewer state.
type Snapshot struct {
	State     State     `json:"-"`
	StateName string    `json:"state"`
	GuideOpen bool      `json:"guide_open"`
	Selection Selection `json:"-"`
	View      View      `json:"view"`
	Seq       uint64    `json:"seq"`
}

type Option func(*Viewer)

func WithScheduler(s Scheduler) Option {
	return func(v *Viewer) {
		v.schedule = s
	}
}

func WithScrollDelay(d time.Duration) Option {
	return func(v *Viewer) {
		v.delay = d
	}
}

// Viewer is the per-session state machine. Idle shows the source list,
// Viewing shows one source with an optional highlight.
type Viewer struct {
	mu        sync.Mutex
	state     State
	guideOpen bool
	selection Selection
	view      View
	seq       uint64
	pending   Timer

	delay    time.Duration
	schedule Scheduler
	onScroll func(ScrollRequest)
}

func New(onScroll func(ScrollRequest), opts ...Option) *Viewer {
	v := &Viewer{
		delay:    DefaultScrollDelay,
		schedule: afterFunc,
		onScroll: onScroll,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Select opens src for sel. A real citation closes the guide, highlights its
// lines and schedules a scroll, even when the same citation is selected
// again. A soft selection shows the source untouched and keeps the guide as
// it was.
func (v *Viewer) Select(sel Selection, src *types.Source) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelPending()
	v.seq++
	v.state = StateViewing
	v.selection = sel

	var text string
	if src != nil {
		text = src.Content
	}
	v.view = Highlight(text, sel)

	if cs, ok := sel.(CitationSelection); ok {
		v.guideOpen = false
		if v.view.FirstHighlighted > 0 {
			v.scheduleScroll(ScrollRequest{
				Seq:        v.seq,
				SourceID:   cs.Citation.SourceID,
				CitationID: cs.Citation.CitationID,
				Line:       v.view.FirstHighlighted,
			})
		}
	}
	return v.snapshot()
}

// ToggleGuide opens or closes the source guide while viewing.
func (v *Viewer) ToggleGuide() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateViewing {
		v.guideOpen = !v.guideOpen
	}
	return v.snapshot()
}

// Close returns to the source list and drops any pending scroll.
func (v *Viewer) Close() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelPending()
	v.seq++
	v.state = StateIdle
	v.selection = nil
	v.view = View{}
	v.guideOpen = false
	return v.snapshot()
}

func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot()
}

func (v *Viewer) snapshot() Snapshot {
	view := v.view
	view.Lines = append([]Line(nil), v.view.Lines...)
	return Snapshot{
		State:     v.state,
		StateName: v.state.String(),
		GuideOpen: v.guideOpen,
		Selection: v.selection,
		View:      view,
		Seq:       v.seq,
	}
}

func (v *Viewer) cancelPending() {
	if v.pending != nil {
		v.pending.Stop()
		v.pending = nil
	}
}

func (v *Viewer) scheduleScroll(req ScrollRequest) {
	if v.onScroll == nil {
		return
	}
	v.pending = v.schedule(v.delay, func() {
		v.mu.Lock()
		current := v.seq == req.Seq && v.state == StateViewing
		if current {
			v.pending = nil
		}
		v.mu.Unlock()

		if current {
			v.onScroll(req)
		}
	})
}
