package server

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cptaffe/acme-paint/cell"
	"github.com/cptaffe/acme-paint/history"
	"github.com/cptaffe/acme-paint/logger"
	"github.com/cptaffe/acme-paint/paint"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// callTimeout is the maximum time call() will wait for the canvas goroutine
// to process a closure.
var callTimeout = 5 * time.Second

// Canvas is the actor for one paint session.
//
// The fields ID, Session, ctx, cancel, cmdCh and srv are set once at
// construction and may be read from any goroutine without a lock.
//
// All remaining fields are owned exclusively by the run() goroutine and must
// not be accessed from any other goroutine.
type Canvas struct {
	ID      int
	Session uuid.UUID
	ctx     context.Context
	cancel  context.CancelFunc
	cmdCh   chan func(*Canvas)
	srv     *Server

	// Owned by run(); do not access from other goroutines.
	style     paint.Style
	grid      *paint.Grid
	undo      *history.UndoTracker
	replay    *history.ReplayTracker
	started   time.Time
	dirty     paint.Rect
	replaying bool
	ticker    *time.Ticker
}

func newCanvas(ctx context.Context, cancel context.CancelFunc, s *Server, id int, session uuid.UUID) *Canvas {
	c := &Canvas{
		ID:      id,
		Session: session,
		ctx:     ctx,
		cancel:  cancel,
		cmdCh:   make(chan func(*Canvas), 64),
		srv:     s,
	}
	c.reset(s.cfg.Style)
	return c
}

// submit enqueues fn to run in the canvas goroutine.  Drops fn silently if
// ctx is already cancelled.
func (c *Canvas) submit(fn func(*Canvas)) {
	select {
	case c.cmdCh <- fn:
	case <-c.ctx.Done():
	}
}

// call enqueues fn and blocks until it has run, ctx is cancelled, or
// callTimeout elapses.  It returns ErrCanvasGone once the canvas is deleted
// and ErrCanvasBusy if the canvas goroutine did not get to fn in time.
func (c *Canvas) call(fn func(*Canvas)) error {
	if c.ctx.Err() != nil {
		return ErrCanvasGone
	}
	timer := time.NewTimer(callTimeout)
	defer timer.Stop()
	done := make(chan struct{})
	wrapped := func(c *Canvas) {
		fn(c)
		close(done)
	}
	select {
	case c.cmdCh <- wrapped:
	case <-c.ctx.Done():
		return ErrCanvasGone
	case <-timer.C:
		logger.L(c.ctx).Warn("call timed out; canvas queue full")
		return ErrCanvasBusy
	}
	select {
	case <-done:
		return nil
	case <-c.ctx.Done():
		return ErrCanvasGone
	case <-timer.C:
		logger.L(c.ctx).Warn("call timed out; canvas goroutine unresponsive")
		return ErrCanvasBusy
	}
}

// run is the canvas goroutine.  It owns all mutable Canvas fields.
func (c *Canvas) run() {
	defer c.srv.wg.Done()
	log := logger.L(c.ctx)

	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C
		}
		select {
		case fn := <-c.cmdCh:
			fn(c)

		case <-tick:
			c.replayStep()

		case <-c.ctx.Done():
			c.stopReplay()
			log.Info("canvas closed")
			return
		}
	}
}

// ---- internal goroutine-owned helpers ----

// reset starts a new session in style s: a fresh grid and empty histories.
func (c *Canvas) reset(s paint.Style) {
	c.stopReplay()
	c.style = s
	c.grid = paint.NewGrid(s, c.srv.cfg.Width, c.srv.cfg.Height, c.srv.cfg.Catalog)
	c.undo = history.NewUndoTracker()
	c.replay = history.NewReplayTracker()
	c.started = time.Now()
	c.dirty = c.grid.Bounds()
}

func (c *Canvas) elapsed() time.Duration {
	return time.Since(c.started)
}

// record feeds a newly applied action to both trackers.
func (c *Canvas) record(a *paint.Action) {
	c.undo.Add(a)
	c.replay.Add(a, false)
	c.markDirty(a)
}

func (c *Canvas) markDirty(a *paint.Action) {
	if a == nil {
		return
	}
	c.dirty = union(c.dirty, a.Bounds(c.grid))
}

func (c *Canvas) paintCell(l *paint.Layer, x, y int) error {
	if !c.grid.In(x, y) {
		return fmt.Errorf("%w: (%d, %d)", ErrOutOfBounds, x, y)
	}
	c.record(c.grid.Paint(l, x, y))
	return nil
}

func (c *Canvas) replayStep() {
	if c.replay.PlayNext(c.grid) {
		c.stopReplay()
		logger.L(c.ctx).Info("replay finished")
		return
	}
	c.dirty = c.grid.Bounds()
}

func (c *Canvas) stopReplay() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.replaying = false
}

// mutate runs fn in the canvas goroutine unless a replay is in progress.
func (c *Canvas) mutate(fn func(*Canvas) error) error {
	var err error
	if callErr := c.call(func(c *Canvas) {
		if c.replaying {
			err = ErrReplaying
			return
		}
		err = fn(c)
	}); callErr != nil {
		return callErr
	}
	return err
}

// ---- public API for 9P handlers (safe to call from any goroutine) ----

// Paint paints layer l with the brush centred on (x, y).
func (c *Canvas) Paint(l *paint.Layer, x, y int) error {
	return c.mutate(func(c *Canvas) error {
		return c.paintCell(l, x, y)
	})
}

// Stroke paints l along the segment from (x0, y0) to (x1, y1), sampling
// every half cell of Manhattan distance.  Each distinct cell visited is its
// own action, so undo removes a stroke one dab at a time.  Both endpoints
// must lie on the canvas.
func (c *Canvas) Stroke(l *paint.Layer, x0, y0, x1, y1 int) error {
	return c.mutate(func(c *Canvas) error {
		for _, p := range [][2]int{{x0, y0}, {x1, y1}} {
			if !c.grid.In(p[0], p[1]) {
				return fmt.Errorf("%w: (%d, %d)", ErrOutOfBounds, p[0], p[1])
			}
		}
		for _, p := range strokeCells(x0, y0, x1, y1) {
			c.record(c.grid.Paint(l, p[0], p[1]))
		}
		return nil
	})
}

// strokeCells returns the cells visited from (x0, y0) to (x1, y1), without
// consecutive repeats.
func strokeCells(x0, y0, x1, y1 int) [][2]int {
	cells := [][2]int{{x0, y0}}
	dx, dy := x1-x0, y1-y0
	dist := abs(dx) + abs(dy)
	for d := 1; d <= 2*dist; d++ {
		f := float64(d) / float64(2*dist)
		p := [2]int{
			x0 + int(math.Round(f*float64(dx))),
			y0 + int(math.Round(f*float64(dy))),
		}
		if p != cells[len(cells)-1] {
			cells = append(cells, p)
		}
	}
	return cells
}

// Special applies the style's special effect to the whole canvas.
func (c *Canvas) Special() error {
	return c.mutate(func(c *Canvas) error {
		c.record(c.grid.Special())
		return nil
	})
}

// Undo reverses the most recent action.  It reports whether there was one.
func (c *Canvas) Undo() (bool, error) {
	var ok bool
	err := c.mutate(func(c *Canvas) error {
		a := c.undo.Undo(c.grid)
		c.replay.Add(a, true)
		c.markDirty(a)
		ok = a != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Redo reapplies the most recently undone action.  It reports whether there
// was one.
func (c *Canvas) Redo() (bool, error) {
	var ok bool
	err := c.mutate(func(c *Canvas) error {
		a := c.undo.Redo(c.grid)
		c.replay.Add(a, false)
		c.markDirty(a)
		ok = a != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// BrushUp grows the brush by one, up to paint.MaxBrush.
func (c *Canvas) BrushUp() error {
	return c.mutate(func(c *Canvas) error {
		c.grid.IncreaseBrushSize()
		return nil
	})
}

// BrushDown shrinks the brush by one, down to paint.MinBrush.
func (c *Canvas) BrushDown() error {
	return c.mutate(func(c *Canvas) error {
		c.grid.DecreaseBrushSize()
		return nil
	})
}

// SetStyle switches the canvas to style s.  Switching discards the grid and
// both histories.  Allowed during a replay, which it cancels.
func (c *Canvas) SetStyle(s paint.Style) error {
	return c.call(func(c *Canvas) {
		c.reset(s)
		logger.L(c.ctx).Info("style changed", zap.Stringer("style", s))
	})
}

// CycleStyle switches to the next style in set, additive, sequence order.
func (c *Canvas) CycleStyle() error {
	st, err := c.Style()
	if err != nil {
		return err
	}
	return c.SetStyle(st.Next())
}

// StartReplay swaps in a fresh grid and replays the whole session onto it,
// one action per replay interval.  Mutating calls fail with ErrReplaying
// until the replay finishes.
func (c *Canvas) StartReplay() error {
	return c.mutate(func(c *Canvas) error {
		c.replay.Rewind()
		c.grid = paint.NewGrid(c.style, c.srv.cfg.Width, c.srv.cfg.Height, c.srv.cfg.Catalog)
		c.dirty = c.grid.Bounds()
		c.replaying = true
		c.ticker = time.NewTicker(c.srv.cfg.ReplayInterval)
		logger.L(c.ctx).Info("replay started", zap.Int("actions", c.replay.Len()))
		return nil
	})
}

// Style returns the canvas style.
func (c *Canvas) Style() (paint.Style, error) {
	var style paint.Style
	if err := c.call(func(c *Canvas) { style = c.style }); err != nil {
		return 0, err
	}
	return style, nil
}

// ColorsText returns the composed colors of every cell in r, clipped to the
// canvas, at the current session time.
func (c *Canvas) ColorsText(r paint.Rect) string {
	var result string
	if err := c.call(func(c *Canvas) {
		result = cell.Format(colorsIn(c.grid, r, c.elapsed()))
	}); err != nil {
		return ""
	}
	return result
}

// Bounds returns the whole-canvas rectangle.
func (c *Canvas) Bounds() paint.Rect {
	return paint.Rect{X1: c.srv.cfg.Width, Y1: c.srv.cfg.Height}
}

// DirtyText returns the rectangle changed since the last call, and clears
// it.
func (c *Canvas) DirtyText() string {
	var result string
	if err := c.call(func(c *Canvas) {
		result = cell.FormatRect(c.dirty)
		c.dirty = paint.Rect{}
	}); err != nil {
		return ""
	}
	return result
}

// StatusText returns the content of the status file.
func (c *Canvas) StatusText() string {
	var result string
	if err := c.call(func(c *Canvas) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "id %d\n", c.ID)
		fmt.Fprintf(&sb, "session %s\n", c.Session)
		fmt.Fprintf(&sb, "style %s\n", c.style)
		fmt.Fprintf(&sb, "size %d %d\n", c.grid.Width(), c.grid.Height())
		fmt.Fprintf(&sb, "brush %d\n", c.grid.BrushSize())
		fmt.Fprintf(&sb, "undo %d\n", c.undo.Len())
		fmt.Fprintf(&sb, "redo %d\n", c.undo.RedoLen())
		fmt.Fprintf(&sb, "recorded %d\n", c.replay.Recorded())
		fmt.Fprintf(&sb, "replay %d\n", c.replay.Len())
		fmt.Fprintf(&sb, "replaying %t\n", c.replaying)
		fmt.Fprintf(&sb, "elapsed %s\n", c.elapsed().Round(time.Millisecond))
		result = sb.String()
	}); err != nil {
		return ""
	}
	return result
}
