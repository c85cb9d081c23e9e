package server

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cptaffe/acme-paint/cell"
	"github.com/cptaffe/acme-paint/logger"
	"github.com/cptaffe/acme-paint/paint"
	"go.uber.org/zap/zaptest"
)

var red = paint.Color{R: 255}

func testCatalog() paint.Catalog {
	return paint.NewCatalog(
		paint.Layer{Name: "black", Fn: paint.Black},
		paint.Layer{Name: "invert", Fn: paint.Invert},
		paint.Layer{Name: "red", Fn: func(paint.Color, time.Duration, int, int) paint.Color { return red }},
	)
}

func testServer(t *testing.T, replay time.Duration) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.NewContext(ctx, zaptest.NewLogger(t))
	s, err := NewServer(ctx, Config{
		Catalog:        testCatalog(),
		Style:          paint.StyleSet,
		Width:          8,
		Height:         6,
		ReplayInterval: replay,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		s.Wait()
	})
	return s
}

func newTestCanvas(t *testing.T, s *Server) *Canvas {
	t.Helper()
	c, err := s.NewCanvas()
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// colors returns the composed canvas as a map keyed by cell.
func colors(t *testing.T, c *Canvas) map[[2]int]paint.Color {
	t.Helper()
	entries, err := cell.Parse(c.ColorsText(c.Bounds()))
	if err != nil {
		t.Fatal(err)
	}
	m := make(map[[2]int]paint.Color, len(entries))
	for _, e := range entries {
		m[[2]int{e.X, e.Y}] = e.Color
	}
	return m
}

func TestNewServerValidates(t *testing.T) {
	ctx := context.Background()
	if _, err := NewServer(ctx, Config{Width: 4, Height: 4}); err == nil {
		t.Error("empty catalog accepted")
	}
	if _, err := NewServer(ctx, Config{Catalog: testCatalog(), Width: 0, Height: 4}); err == nil {
		t.Error("zero width accepted")
	}
}

func TestPaintAndColors(t *testing.T) {
	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)

	if err := c.Paint(s.Catalog().Find("red"), 3, 3); err != nil {
		t.Fatal(err)
	}
	m := colors(t, c)
	if len(m) != 8*6 {
		t.Fatalf("got %d cells, want 48", len(m))
	}
	for _, p := range [][2]int{{3, 3}, {3, 5}, {1, 3}, {4, 4}} {
		if m[p] != red {
			t.Errorf("cell %v = %v, want red", p, m[p])
		}
	}
	for _, p := range [][2]int{{0, 0}, {1, 1}, {6, 3}} {
		if m[p] != background {
			t.Errorf("cell %v = %v, want background", p, m[p])
		}
	}

	if ok, err := c.Undo(); err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if m := colors(t, c); m[[2]int{3, 3}] != background {
		t.Fatalf("undo left %v", m[[2]int{3, 3}])
	}
	if ok, _ := c.Undo(); ok {
		t.Fatal("second undo reported an action")
	}
	if ok, err := c.Redo(); err != nil || !ok {
		t.Fatalf("Redo = %v, %v", ok, err)
	}
	if m := colors(t, c); m[[2]int{3, 3}] != red {
		t.Fatalf("redo left %v", m[[2]int{3, 3}])
	}
}

func TestPaintOutOfBounds(t *testing.T) {
	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)
	if err := c.Paint(s.Catalog().Layer(0), 8, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestStrokeOutOfBounds(t *testing.T) {
	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)
	l := s.Catalog().Layer(2)
	done := make(chan error, 1)
	go func() { done <- c.Stroke(l, 0, 0, 200000000, 0) }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("far stroke: err = %v, want ErrOutOfBounds", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("far stroke did not return")
	}
	if err := c.Stroke(l, -1, 0, 3, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("negative start: err = %v, want ErrOutOfBounds", err)
	}
	// A rejected stroke paints nothing.
	for p, col := range colors(t, c) {
		if col == red {
			t.Fatalf("cell %v painted by a rejected stroke", p)
		}
	}
	if ok, err := c.Undo(); err != nil || ok {
		t.Fatalf("undo after rejected strokes = %v, %v; want false, nil", ok, err)
	}
}

func TestCallTimeout(t *testing.T) {
	saved := callTimeout
	callTimeout = 50 * time.Millisecond
	t.Cleanup(func() { callTimeout = saved })

	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)
	release := make(chan struct{})
	c.submit(func(*Canvas) { <-release })
	err := c.Special()
	if !errors.Is(err, ErrCanvasBusy) {
		close(release)
		t.Fatalf("err = %v, want ErrCanvasBusy", err)
	}
	if errors.Is(err, ErrCanvasGone) {
		close(release)
		t.Fatal("busy canvas reported as gone")
	}
	// With the queue full the call gives up before it is enqueued.
	for len(c.cmdCh) < cap(c.cmdCh) {
		c.submit(func(*Canvas) {})
	}
	if _, err := c.Undo(); !errors.Is(err, ErrCanvasBusy) {
		close(release)
		t.Fatalf("full queue: err = %v, want ErrCanvasBusy", err)
	}
	close(release)
	if err := c.Paint(s.Catalog().Layer(0), 1, 1); err != nil {
		t.Fatalf("paint after release: %v", err)
	}
}

func TestColorsAddrClipped(t *testing.T) {
	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)
	got := c.ColorsText(paint.Rect{X0: 6, Y0: 5, X1: 20, Y1: 20})
	if want := "6 5 #ffffff\n7 5 #ffffff\n"; got != want {
		t.Fatalf("ColorsText = %q, want %q", got, want)
	}
}

func TestDirty(t *testing.T) {
	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)
	if got := c.DirtyText(); got != "0 0 8 6\n" {
		t.Fatalf("initial dirty = %q", got)
	}
	if got := c.DirtyText(); got != "" {
		t.Fatalf("dirty not cleared: %q", got)
	}
	if err := c.Paint(s.Catalog().Layer(0), 3, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.BrushDown(); err != nil {
		t.Fatal(err)
	}
	if err := c.Paint(s.Catalog().Layer(1), 7, 0); err != nil {
		t.Fatal(err)
	}
	if got := c.DirtyText(); got != "1 0 8 6\n" {
		t.Fatalf("dirty = %q", got)
	}
}

func TestSetStyleResets(t *testing.T) {
	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)
	if err := c.Paint(s.Catalog().Layer(0), 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.CycleStyle(); err != nil {
		t.Fatal(err)
	}
	if st, _ := c.Style(); st != paint.StyleAdditive {
		t.Fatalf("style = %v, want additive", st)
	}
	if m := colors(t, c); m[[2]int{1, 1}] != background {
		t.Fatal("style switch kept the old grid")
	}
	if !strings.Contains(c.StatusText(), "undo 0\n") {
		t.Fatalf("style switch kept the history:\n%s", c.StatusText())
	}
}

func waitReplay(t *testing.T, c *Canvas) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for strings.Contains(c.StatusText(), "replaying true") {
		if time.Now().After(deadline) {
			t.Fatal("replay did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReplay(t *testing.T) {
	for _, st := range []paint.Style{paint.StyleSet, paint.StyleAdditive, paint.StyleSequence} {
		s := testServer(t, 20*time.Millisecond)
		c := newTestCanvas(t, s)
		if err := c.SetStyle(st); err != nil {
			t.Fatal(err)
		}
		cat := s.Catalog()
		steps := []func() error{
			func() error { return c.Paint(cat[2], 2, 2) },
			func() error { return c.Paint(cat[1], 4, 3) },
			c.Special,
			func() error { return c.Stroke(cat[0], 0, 5, 7, 5) },
			func() error { _, err := c.Undo(); return err },
			func() error { _, err := c.Undo(); return err },
			func() error { _, err := c.Redo(); return err },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				t.Fatal(err)
			}
		}
		live := colors(t, c)

		if err := c.StartReplay(); err != nil {
			t.Fatal(err)
		}
		if err := c.Paint(cat[0], 0, 0); !errors.Is(err, ErrReplaying) {
			t.Fatalf("%v: paint during replay: err = %v", st, err)
		}
		waitReplay(t, c)
		if got := colors(t, c); !reflect.DeepEqual(got, live) {
			t.Fatalf("%v: replayed canvas differs from live canvas", st)
		}
		if err := c.Paint(cat[0], 0, 0); err != nil {
			t.Fatalf("%v: paint after replay: %v", st, err)
		}
	}
}

func TestReplayTwice(t *testing.T) {
	s := testServer(t, 5*time.Millisecond)
	c := newTestCanvas(t, s)
	if err := c.Paint(s.Catalog().Layer(2), 2, 2); err != nil {
		t.Fatal(err)
	}
	live := colors(t, c)
	for round := 1; round <= 2; round++ {
		if err := c.StartReplay(); err != nil {
			t.Fatalf("replay %d: %v", round, err)
		}
		waitReplay(t, c)
		if st := c.StatusText(); !strings.Contains(st, "recorded 1\n") || !strings.Contains(st, "replay 0\n") {
			t.Fatalf("replay %d: status =\n%s", round, st)
		}
		got := colors(t, c)
		if got[[2]int{2, 2}] != red {
			t.Fatalf("replay %d: cell (2, 2) = %v, want red", round, got[[2]int{2, 2}])
		}
		if !reflect.DeepEqual(got, live) {
			t.Fatalf("replay %d: replayed canvas differs from live canvas", round)
		}
	}
}

func TestDeletedCanvas(t *testing.T) {
	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)
	s.DelCanvas(c.ID)
	if s.GetCanvas(c.ID) != nil {
		t.Fatal("canvas still registered")
	}
	if err := c.Special(); !errors.Is(err, ErrCanvasGone) {
		t.Fatalf("err = %v, want ErrCanvasGone", err)
	}
}

func TestStrokeCells(t *testing.T) {
	tests := []struct {
		x0, y0, x1, y1 int
		want           [][2]int
	}{
		{0, 0, 0, 0, [][2]int{{0, 0}}},
		{0, 0, 2, 0, [][2]int{{0, 0}, {1, 0}, {2, 0}}},
		{2, 0, 0, 0, [][2]int{{2, 0}, {1, 0}, {0, 0}}},
		{0, 0, 1, 1, [][2]int{{0, 0}, {1, 1}}},
	}
	for _, tt := range tests {
		if got := strokeCells(tt.x0, tt.y0, tt.x1, tt.y1); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("strokeCells(%d,%d,%d,%d) = %v, want %v", tt.x0, tt.y0, tt.x1, tt.y1, got, tt.want)
		}
	}
}

func TestCtl(t *testing.T) {
	s := testServer(t, time.Millisecond)
	c := newTestCanvas(t, s)

	for _, cmd := range []string{
		"paint red 1 1",
		"paint 0 4 4",
		"stroke invert 0 0 3 0",
		"brush+",
		"brush-",
		"special",
		"undo",
		"redo",
		"style",
		"style sequence",
		"",
	} {
		if err := s.ctl(c, cmd); err != nil {
			t.Errorf("%q: %v", cmd, err)
		}
	}
	if st, _ := c.Style(); st != paint.StyleSequence {
		t.Errorf("style = %v, want sequence", st)
	}

	if err := s.ctl(c, "paint nope 1 1"); !errors.Is(err, ErrUnknownLayer) {
		t.Errorf("unknown layer: err = %v", err)
	}
	if err := s.ctl(c, "paint 9 1 1"); !errors.Is(err, ErrUnknownLayer) {
		t.Errorf("bad index: err = %v", err)
	}
	for _, cmd := range []string{"paint red 1", "paint red x 1", "undo now", "style sideways", "frobnicate"} {
		if err := s.ctl(c, cmd); err == nil {
			t.Errorf("%q succeeded", cmd)
		}
	}

	if err := s.ctl(c, "delete"); err != nil {
		t.Fatal(err)
	}
	if s.GetCanvas(c.ID) != nil {
		t.Fatal("delete left the canvas registered")
	}
}

func TestIndexAndLayersText(t *testing.T) {
	s := testServer(t, time.Millisecond)
	newTestCanvas(t, s)
	c := newTestCanvas(t, s)
	if err := c.SetStyle(paint.StyleAdditive); err != nil {
		t.Fatal(err)
	}
	if got, want := s.IndexText(), "1 set 8x6\n2 additive 8x6\n"; got != want {
		t.Errorf("IndexText = %q, want %q", got, want)
	}
	if got, want := s.LayersText(), "0 black\n1 invert\n2 red\n"; got != want {
		t.Errorf("LayersText = %q, want %q", got, want)
	}
}
