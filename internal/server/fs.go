package server

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"9fans.net/go/plan9"
	"github.com/cptaffe/acme-paint/cell"
	"github.com/cptaffe/acme-paint/logger"
	"github.com/cptaffe/acme-paint/paint"
	"go.uber.org/zap"
)

// File-type constants; encode directly into Qid.Path.
const (
	ftRoot      = 0
	ftLayers    = 1
	ftNew       = 2
	ftIndex     = 3
	ftCanvasDir = 4
	ftCtl       = 5
	ftColors    = 6
	ftAddr      = 7
	ftStatus    = 8
	ftDirty     = 9
)

// slowDispatch is the latency above which a request is logged.
const slowDispatch = 100 * time.Millisecond

func isDir(ft int) bool {
	return ft == ftRoot || ft == ftCanvasDir
}

// Qid path encoding: [ft:16][canvasID:48]
func makePath(ft, id int) uint64 {
	return (uint64(ft) << 48) | uint64(id)
}

func makeQID(ft, id int) plan9.Qid {
	qt := uint8(plan9.QTFILE)
	if isDir(ft) {
		qt = plan9.QTDIR
	}
	return plan9.Qid{Type: qt, Path: makePath(ft, id)}
}

// canvasFiles lists the files of a canvas directory in readDir order.
var canvasFiles = []struct {
	ft   int
	name string
	mode plan9.Perm
}{
	{ftCtl, "ctl", 0222},
	{ftColors, "colors", 0444},
	{ftAddr, "addr", 0222},
	{ftStatus, "status", 0444},
	{ftDirty, "dirty", 0444},
}

func makeDir(ft, id int) plan9.Dir {
	now := uint32(time.Now().Unix())
	var name string
	var mode plan9.Perm
	if isDir(ft) {
		mode = plan9.DMDIR | 0555
	}
	switch ft {
	case ftRoot:
		name = "/"
	case ftCanvasDir:
		name = strconv.Itoa(id)
	case ftLayers:
		name, mode = "layers", 0444
	case ftNew:
		name, mode = "new", 0444
	case ftIndex:
		name, mode = "index", 0444
	default:
		for _, f := range canvasFiles {
			if f.ft == ft {
				name, mode = f.name, f.mode
			}
		}
	}
	return plan9.Dir{
		Qid:   makeQID(ft, id),
		Mode:  mode,
		Atime: now, Mtime: now,
		Name: name,
		Uid:  "none", Gid: "none", Muid: "none",
	}
}

// walkStep advances one path component from (ft, id).
func (s *Server) walkStep(ft, id int, name string) (int, int, error) {
	if name == ".." {
		switch ft {
		case ftRoot, ftCanvasDir:
			return ftRoot, 0, nil
		default:
			return 0, 0, ErrNotDir
		}
	}
	switch ft {
	case ftRoot:
		switch name {
		case "layers":
			return ftLayers, 0, nil
		case "new":
			return ftNew, 0, nil
		case "index":
			return ftIndex, 0, nil
		}
		n, err := strconv.Atoi(name)
		if err != nil || s.GetCanvas(n) == nil {
			return 0, 0, ErrNoFile
		}
		return ftCanvasDir, n, nil
	case ftCanvasDir:
		for _, f := range canvasFiles {
			if f.name == name {
				return f.ft, id, nil
			}
		}
		return 0, 0, ErrNoFile
	default:
		return 0, 0, ErrNotDir
	}
}

// readDir returns marshalled plan9.Dir entries for the children of ft.
func (s *Server) readDir(ft, id int) []byte {
	var dirs []plan9.Dir
	switch ft {
	case ftRoot:
		dirs = append(dirs, makeDir(ftLayers, 0), makeDir(ftNew, 0), makeDir(ftIndex, 0))
		for _, cid := range s.CanvasIDs() {
			dirs = append(dirs, makeDir(ftCanvasDir, cid))
		}
	case ftCanvasDir:
		for _, f := range canvasFiles {
			dirs = append(dirs, makeDir(f.ft, id))
		}
	}
	var buf []byte
	for _, d := range dirs {
		if b, err := d.Bytes(); err == nil {
			buf = append(buf, b...)
		}
	}
	return buf
}

// ---- per-connection state ----

type fid struct {
	ft   int
	id   int
	open bool
	mode uint8
	buf  []byte // buffered read content (set at Topen)
	wbuf []byte // accumulated ctl bytes awaiting a newline
}

type conn struct {
	srv   *Server
	fids  map[uint32]*fid
	msize uint32
	// pendingAddr is set by an addr write and consumed by the next colors
	// open of the same canvas.
	pendingAddr map[int]paint.Rect
}

// ServeConn serves the paint file tree over one 9P connection until it
// fails or is closed.
func (s *Server) ServeConn(c io.ReadWriteCloser) {
	defer c.Close()
	log := logger.L(s.ctx)
	cn := &conn{
		srv:         s,
		fids:        make(map[uint32]*fid),
		msize:       8192 + plan9.IOHDRSZ,
		pendingAddr: make(map[int]paint.Rect),
	}
	for {
		fc, err := plan9.ReadFcall(c)
		if err != nil {
			return
		}
		start := time.Now()
		resp := cn.dispatch(fc)
		if elapsed := time.Since(start); elapsed > slowDispatch {
			log.Warn("slow dispatch",
				zap.String("type", fcallTypeName(fc.Type)),
				zap.Duration("elapsed", elapsed))
		}
		if err := plan9.WriteFcall(c, resp); err != nil {
			return
		}
	}
}

func rerr(tag uint16, msg string) *plan9.Fcall {
	return &plan9.Fcall{Type: plan9.Rerror, Tag: tag, Ename: msg}
}

func (cn *conn) dispatch(fc *plan9.Fcall) *plan9.Fcall {
	switch fc.Type {
	case plan9.Tversion:
		return cn.doVersion(fc)
	case plan9.Tauth:
		return rerr(fc.Tag, "no authentication required")
	case plan9.Tattach:
		return cn.doAttach(fc)
	case plan9.Tflush:
		return &plan9.Fcall{Type: plan9.Rflush, Tag: fc.Tag}
	case plan9.Twalk:
		return cn.doWalk(fc)
	case plan9.Topen:
		return cn.doOpen(fc)
	case plan9.Tcreate:
		return rerr(fc.Tag, "create not supported")
	case plan9.Tread:
		return cn.doRead(fc)
	case plan9.Twrite:
		return cn.doWrite(fc)
	case plan9.Tclunk:
		return cn.doClunk(fc)
	case plan9.Tremove:
		return rerr(fc.Tag, "remove not supported")
	case plan9.Tstat:
		return cn.doStat(fc)
	case plan9.Twstat:
		return rerr(fc.Tag, "wstat not supported")
	default:
		return rerr(fc.Tag, "unknown message type")
	}
}

func (cn *conn) doVersion(fc *plan9.Fcall) *plan9.Fcall {
	msize := min(fc.Msize, cn.msize)
	cn.msize = msize
	cn.fids = make(map[uint32]*fid)
	ver := "9P2000"
	if !strings.HasPrefix(fc.Version, "9P2000") {
		ver = "unknown"
	}
	return &plan9.Fcall{Type: plan9.Rversion, Tag: fc.Tag, Msize: msize, Version: ver}
}

func (cn *conn) doAttach(fc *plan9.Fcall) *plan9.Fcall {
	cn.fids[fc.Fid] = &fid{ft: ftRoot}
	return &plan9.Fcall{Type: plan9.Rattach, Tag: fc.Tag, Qid: makeQID(ftRoot, 0)}
}

func (cn *conn) doWalk(fc *plan9.Fcall) *plan9.Fcall {
	f := cn.fids[fc.Fid]
	if f == nil {
		return rerr(fc.Tag, "fid unknown")
	}
	if f.open {
		return rerr(fc.Tag, "fid is open")
	}

	curFt, curID := f.ft, f.id
	wqids := make([]plan9.Qid, 0, len(fc.Wname))
	for i, name := range fc.Wname {
		nft, nid, err := cn.srv.walkStep(curFt, curID, name)
		if err != nil {
			if i == 0 {
				return rerr(fc.Tag, err.Error())
			}
			break
		}
		wqids = append(wqids, makeQID(nft, nid))
		curFt, curID = nft, nid
	}

	if len(wqids) == len(fc.Wname) {
		cn.fids[fc.Newfid] = &fid{ft: curFt, id: curID}
	}
	return &plan9.Fcall{Type: plan9.Rwalk, Tag: fc.Tag, Wqid: wqids}
}

func (cn *conn) doOpen(fc *plan9.Fcall) *plan9.Fcall {
	f := cn.fids[fc.Fid]
	if f == nil {
		return rerr(fc.Tag, "fid unknown")
	}
	if f.open {
		return rerr(fc.Tag, "already open")
	}
	s := cn.srv
	mode := fc.Mode & 3

	switch f.ft {
	case ftRoot, ftCanvasDir:
		if mode != plan9.OREAD {
			return rerr(fc.Tag, "is a directory")
		}
		f.buf = s.readDir(f.ft, f.id)

	case ftLayers:
		if mode != plan9.OREAD {
			return rerr(fc.Tag, "permission denied")
		}
		f.buf = []byte(s.LayersText())

	case ftNew:
		if mode != plan9.OREAD {
			return rerr(fc.Tag, "permission denied")
		}
		c, err := s.NewCanvas()
		if err != nil {
			return rerr(fc.Tag, err.Error())
		}
		f.id = c.ID
		f.buf = []byte(strconv.Itoa(c.ID) + "\n")

	case ftIndex:
		if mode != plan9.OREAD {
			return rerr(fc.Tag, "permission denied")
		}
		f.buf = []byte(s.IndexText())

	case ftColors, ftStatus, ftDirty:
		if mode != plan9.OREAD {
			return rerr(fc.Tag, "permission denied")
		}
		c := s.GetCanvas(f.id)
		if c == nil {
			return rerr(fc.Tag, ErrCanvasGone.Error())
		}
		switch f.ft {
		case ftColors:
			r, ok := cn.pendingAddr[f.id]
			if ok {
				delete(cn.pendingAddr, f.id)
			} else {
				r = c.Bounds()
			}
			f.buf = []byte(c.ColorsText(r))
		case ftStatus:
			f.buf = []byte(c.StatusText())
		case ftDirty:
			f.buf = []byte(c.DirtyText())
		}

	case ftCtl, ftAddr:
		if mode != plan9.OWRITE {
			return rerr(fc.Tag, "permission denied")
		}
	}

	f.open = true
	f.mode = fc.Mode
	return &plan9.Fcall{
		Type:   plan9.Ropen,
		Tag:    fc.Tag,
		Qid:    makeQID(f.ft, f.id),
		Iounit: cn.msize - plan9.IOHDRSZ,
	}
}

func (cn *conn) doRead(fc *plan9.Fcall) *plan9.Fcall {
	f := cn.fids[fc.Fid]
	if f == nil {
		return rerr(fc.Tag, "fid unknown")
	}
	if !f.open {
		return rerr(fc.Tag, "not open")
	}
	off := fc.Offset
	if off >= uint64(len(f.buf)) {
		return &plan9.Fcall{Type: plan9.Rread, Tag: fc.Tag}
	}
	end := min(off+uint64(fc.Count), uint64(len(f.buf)))
	return &plan9.Fcall{Type: plan9.Rread, Tag: fc.Tag, Data: f.buf[off:end]}
}

func (cn *conn) doWrite(fc *plan9.Fcall) *plan9.Fcall {
	f := cn.fids[fc.Fid]
	if f == nil {
		return rerr(fc.Tag, "fid unknown")
	}
	if !f.open {
		return rerr(fc.Tag, "not open")
	}
	s := cn.srv
	n := len(fc.Data)

	switch f.ft {
	case ftCtl:
		f.wbuf = append(f.wbuf, fc.Data...)
		for {
			nl := bytes.IndexByte(f.wbuf, '\n')
			if nl < 0 {
				break
			}
			cmd := strings.TrimSpace(string(f.wbuf[:nl]))
			f.wbuf = f.wbuf[nl+1:]
			if cmd == "" {
				continue
			}
			c := s.GetCanvas(f.id)
			if c == nil {
				return rerr(fc.Tag, ErrCanvasGone.Error())
			}
			if err := s.ctl(c, cmd); err != nil {
				logger.L(c.ctx).Debug("ctl failed", zap.String("cmd", cmd), zap.Error(err))
				return rerr(fc.Tag, err.Error())
			}
		}

	case ftAddr:
		r, err := cell.ParseRect(string(fc.Data))
		if err != nil {
			return rerr(fc.Tag, err.Error())
		}
		cn.pendingAddr[f.id] = r

	default:
		return rerr(fc.Tag, "not writable")
	}
	return &plan9.Fcall{Type: plan9.Rwrite, Tag: fc.Tag, Count: uint32(n)}
}

func (cn *conn) doClunk(fc *plan9.Fcall) *plan9.Fcall {
	delete(cn.fids, fc.Fid)
	return &plan9.Fcall{Type: plan9.Rclunk, Tag: fc.Tag}
}

func (cn *conn) doStat(fc *plan9.Fcall) *plan9.Fcall {
	f := cn.fids[fc.Fid]
	if f == nil {
		return rerr(fc.Tag, "fid unknown")
	}
	d := makeDir(f.ft, f.id)
	stat, err := d.Bytes()
	if err != nil {
		return rerr(fc.Tag, err.Error())
	}
	return &plan9.Fcall{Type: plan9.Rstat, Tag: fc.Tag, Stat: stat}
}

func fcallTypeName(t uint8) string {
	switch t {
	case plan9.Tversion:
		return "Tversion"
	case plan9.Tauth:
		return "Tauth"
	case plan9.Tattach:
		return "Tattach"
	case plan9.Tflush:
		return "Tflush"
	case plan9.Twalk:
		return "Twalk"
	case plan9.Topen:
		return "Topen"
	case plan9.Tcreate:
		return "Tcreate"
	case plan9.Tread:
		return "Tread"
	case plan9.Twrite:
		return "Twrite"
	case plan9.Tclunk:
		return "Tclunk"
	case plan9.Tremove:
		return "Tremove"
	case plan9.Tstat:
		return "Tstat"
	case plan9.Twstat:
		return "Twstat"
	default:
		return fmt.Sprintf("T%d", t)
	}
}
