// Package paintfs provides a client-side library for working with the
// acme-paint daemon.
//
// The daemon is a 9P file server that keeps a set of paint canvases, each
// a grid of layer stores with its own undo history and replay recording.
//
// Typical usage for a drawing tool:
//
//	cv, err := paintfs.Open()
//	if err != nil { ... }
//	defer cv.Delete()               // clean up on exit
//	cv.Paint("red", 4, 7)           // dab the brush
//	entries, err := cv.Colors()     // read the composed canvas
package paintfs

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"9fans.net/go/plan9"
	"9fans.net/go/plan9/client"
	"github.com/cptaffe/acme-paint/cell"
)

// Service is the name the daemon posts in the namespace directory.
const Service = "acme-paint"

// Canvas is a client handle for one canvas.  A single 9P connection is
// shared across all Canvas operations in the process and re-established on
// first use after any error.
type Canvas struct {
	ID int
}

// ---- connection management ----

var (
	connMu sync.Mutex
	fsys   *client.Fsys
)

// currentFsys returns the cached connection to acme-paint, connecting on
// first use or after a previous connection error has been reset.
func currentFsys() (*client.Fsys, error) {
	connMu.Lock()
	defer connMu.Unlock()
	if fsys != nil {
		return fsys, nil
	}
	fs, err := client.MountService(Service)
	if err != nil {
		return nil, err
	}
	fsys = fs
	return fs, nil
}

// resetFsys clears the cached connection so the next call to currentFsys
// will reconnect.
func resetFsys() {
	connMu.Lock()
	fsys = nil
	connMu.Unlock()
}

// ---- Canvas API ----

// Open allocates a new canvas in the daemon.
func Open() (*Canvas, error) {
	fs, err := currentFsys()
	if err != nil {
		return nil, err
	}
	id, err := NewCanvas(fs)
	if err != nil {
		resetFsys()
		return nil, err
	}
	return &Canvas{ID: id}, nil
}

// Paint dabs the brush with layer (a catalog name or index) at (x, y).
func (cv *Canvas) Paint(layer string, x, y int) error {
	return cv.ctl(fmt.Sprintf("paint %s %d %d\n", layer, x, y))
}

// Stroke paints layer along the segment from (x0, y0) to (x1, y1).
func (cv *Canvas) Stroke(layer string, x0, y0, x1, y1 int) error {
	return cv.ctl(fmt.Sprintf("stroke %s %d %d %d %d\n", layer, x0, y0, x1, y1))
}

// Special applies the canvas style's special effect.
func (cv *Canvas) Special() error { return cv.ctl("special\n") }

// Undo reverses the most recent action.  Undoing with an empty history is
// not an error.
func (cv *Canvas) Undo() error { return cv.ctl("undo\n") }

// Redo reapplies the most recently undone action.
func (cv *Canvas) Redo() error { return cv.ctl("redo\n") }

func (cv *Canvas) BrushUp() error   { return cv.ctl("brush+\n") }
func (cv *Canvas) BrushDown() error { return cv.ctl("brush-\n") }

// SetStyle switches the canvas to style ("set", "additive" or "sequence"),
// discarding its contents and history.  An empty style cycles to the next.
func (cv *Canvas) SetStyle(style string) error {
	return cv.ctl(strings.TrimSpace("style "+style) + "\n")
}

// Replay restarts the canvas from blank and replays its history.
func (cv *Canvas) Replay() error { return cv.ctl("replay\n") }

// Delete removes the canvas from the daemon.  Best-effort: errors are
// ignored.
func (cv *Canvas) Delete() {
	if cv == nil {
		return
	}
	cv.ctl("delete\n") //nolint:errcheck
}

// Colors returns the composed color of every cell.
func (cv *Canvas) Colors() ([]cell.Entry, error) {
	return cv.ColorsIn(cell.Rect{})
}

// ColorsIn returns the composed colors of the cells in r.  An empty r means
// the whole canvas.
func (cv *Canvas) ColorsIn(r cell.Rect) ([]cell.Entry, error) {
	fs, err := currentFsys()
	if err != nil {
		return nil, err
	}
	entries, err := ReadColors(fs, cv.ID, r)
	if err != nil {
		resetFsys()
	}
	return entries, err
}

// Status returns the canvas status as key/value pairs.
func (cv *Canvas) Status() (map[string]string, error) {
	fs, err := currentFsys()
	if err != nil {
		return nil, err
	}
	st, err := ReadStatus(fs, cv.ID)
	if err != nil {
		resetFsys()
	}
	return st, err
}

// ctl writes cmd to the canvas ctl file.
func (cv *Canvas) ctl(cmd string) error {
	fs, err := currentFsys()
	if err != nil {
		return err
	}
	return Ctl(fs, cv.ID, cmd)
}

// ---- functional helpers (for callers that manage their own fs connection) ----

// NewCanvas allocates a canvas and returns its ID.
func NewCanvas(fs *client.Fsys) (int, error) {
	data, err := readAll(fs, "new")
	if err != nil {
		return 0, fmt.Errorf("read new: %w", err)
	}
	id, err := strconv.Atoi(strings.TrimSpace(data))
	if err != nil {
		return 0, fmt.Errorf("parse canvas id %q: %w", data, err)
	}
	return id, nil
}

// Ctl writes one or more newline-terminated commands to canvas id.
// Daemon-side failures, such as an unknown layer or a replay in
// progress, come back as errors.
func Ctl(fs *client.Fsys, id int, cmd string) error {
	fid, err := fs.Open(fmt.Sprintf("%d/ctl", id), plan9.OWRITE)
	if err != nil {
		return err
	}
	defer fid.Close()
	_, err = fid.Write([]byte(cmd))
	return err
}

// ReadColors reads the composed colors of canvas id within r.  An empty r
// reads the whole canvas.  The address is pending per connection, so fs must
// not be shared with another goroutine addressing the same canvas.
func ReadColors(fs *client.Fsys, id int, r cell.Rect) ([]cell.Entry, error) {
	if !r.Empty() {
		addr, err := fs.Open(fmt.Sprintf("%d/addr", id), plan9.OWRITE)
		if err != nil {
			return nil, fmt.Errorf("open addr: %w", err)
		}
		_, err = addr.Write([]byte(cell.FormatRect(r)))
		addr.Close()
		if err != nil {
			return nil, fmt.Errorf("write addr: %w", err)
		}
	}
	data, err := readAll(fs, fmt.Sprintf("%d/colors", id))
	if err != nil {
		return nil, err
	}
	return cell.Parse(data)
}

// ReadStatus reads the status file of canvas id.
func ReadStatus(fs *client.Fsys, id int) (map[string]string, error) {
	data, err := readAll(fs, fmt.Sprintf("%d/status", id))
	if err != nil {
		return nil, err
	}
	st := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		k, v, ok := strings.Cut(line, " ")
		if ok {
			st[k] = v
		}
	}
	return st, nil
}

// Layers returns the daemon's layer catalog in index order.
func Layers(fs *client.Fsys) ([]string, error) {
	data, err := readAll(fs, "layers")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(data, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			names = append(names, fields[1])
		}
	}
	return names, nil
}

// FindLayer looks up a layer by name in the catalog.  Returns its index and
// true if found, 0 and false otherwise.
func FindLayer(fs *client.Fsys, name string) (int, bool) {
	names, err := Layers(fs)
	if err != nil {
		return 0, false
	}
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func readAll(fs *client.Fsys, name string) (string, error) {
	fid, err := fs.Open(name, plan9.OREAD)
	if err != nil {
		return "", err
	}
	defer fid.Close()
	data, err := io.ReadAll(fid)
	return string(data), err
}
