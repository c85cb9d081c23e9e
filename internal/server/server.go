package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cptaffe/acme-paint/logger"
	"github.com/cptaffe/acme-paint/paint"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sentinel errors.  Their text is what 9P clients see in Rerror.
var (
	ErrNoFile       = errors.New("no such file")
	ErrNotDir       = errors.New("not a directory")
	ErrCanvasGone   = errors.New("canvas gone")
	ErrCanvasBusy   = errors.New("canvas busy")
	ErrReplaying    = errors.New("canvas is replaying")
	ErrUnknownLayer = errors.New("unknown layer")
	ErrOutOfBounds  = errors.New("cell out of bounds")
)

// Server is the global service state.
//
// cfg is read-only after NewServer returns and may be accessed from any
// goroutine without holding mu.
//
// mu protects only the canvases map and nextID; it is never held while
// calling into a canvas.
type Server struct {
	cfg      Config
	mu       sync.Mutex
	canvases map[int]*Canvas
	nextID   int
	ctx      context.Context // root context; cancelled on shutdown
	wg       sync.WaitGroup  // tracks live canvas goroutines
}

// NewServer constructs a Server from cfg and the root context.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		canvases: make(map[int]*Canvas),
		nextID:   1,
		ctx:      ctx,
	}, nil
}

// Ctx returns the root context of the server.
func (s *Server) Ctx() context.Context {
	return s.ctx
}

// Wait blocks until all canvas goroutines have exited.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Catalog returns the layer catalog shared by every canvas.
func (s *Server) Catalog() paint.Catalog {
	return s.cfg.Catalog
}

// NewCanvas allocates a canvas with the configured style and size and
// starts its goroutine.
func (s *Server) NewCanvas() (*Canvas, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	session := uuid.New()
	ctx, cancel := context.WithCancel(s.ctx)
	ctx = logger.NewContext(ctx, logger.L(s.ctx).With(
		zap.Int("canvas", id),
		zap.String("session", session.String())))

	c := newCanvas(ctx, cancel, s, id, session)

	s.mu.Lock()
	s.canvases[id] = c
	s.mu.Unlock()

	s.wg.Add(1)
	go c.run()
	logger.L(ctx).Info("new canvas",
		zap.Stringer("style", s.cfg.Style),
		zap.Int("width", s.cfg.Width),
		zap.Int("height", s.cfg.Height))
	return c, nil
}

// DelCanvas removes the canvas from the registry and cancels its goroutine.
func (s *Server) DelCanvas(id int) {
	s.mu.Lock()
	c := s.canvases[id]
	delete(s.canvases, id)
	s.mu.Unlock()
	if c != nil {
		c.cancel()
	}
}

// GetCanvas returns the canvas with the given ID, or nil if not found.
func (s *Server) GetCanvas(id int) *Canvas {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvases[id]
}

// CanvasIDs returns all live canvas IDs in ascending order.
func (s *Server) CanvasIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.canvases))
	for id := range s.canvases {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// LayersText returns the content of the layers file: one "index name" line
// per catalog layer.
func (s *Server) LayersText() string {
	var sb strings.Builder
	for _, l := range s.cfg.Catalog {
		fmt.Fprintf(&sb, "%d %s\n", l.Index, l.Name)
	}
	return sb.String()
}

// IndexText returns the content of the index file: one "id style WxH" line
// per live canvas.
func (s *Server) IndexText() string {
	var sb strings.Builder
	for _, id := range s.CanvasIDs() {
		c := s.GetCanvas(id)
		if c == nil {
			continue
		}
		st, err := c.Style()
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "%d %s %dx%d\n", id, st, s.cfg.Width, s.cfg.Height)
	}
	return sb.String()
}

// ResolveLayer looks a layer up by catalog index or by name.
func (s *Server) ResolveLayer(ref string) (*paint.Layer, error) {
	if i, err := strconv.Atoi(ref); err == nil {
		if l := s.cfg.Catalog.Layer(i); l != nil {
			return l, nil
		}
		return nil, fmt.Errorf("%w: %d", ErrUnknownLayer, i)
	}
	if l := s.cfg.Catalog.Find(ref); l != nil {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, ref)
}
