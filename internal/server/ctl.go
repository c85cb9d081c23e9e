package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cptaffe/acme-paint/paint"
)

// ctl executes one command written to a canvas ctl file.
//
//	paint <layer> <x> <y>
//	stroke <layer> <x0> <y0> <x1> <y1>
//	special
//	undo
//	redo
//	brush+ | brush-
//	style [set|additive|sequence]
//	replay
//	delete
//
// A layer is named by catalog index or name.  "style" without an argument
// cycles to the next style.
func (s *Server) ctl(c *Canvas, cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	verb, args := fields[0], fields[1:]
	switch verb {
	case "paint":
		if len(args) != 3 {
			return fmt.Errorf("usage: paint <layer> <x> <y>")
		}
		l, err := s.ResolveLayer(args[0])
		if err != nil {
			return err
		}
		xy, err := ints(args[1:])
		if err != nil {
			return err
		}
		return c.Paint(l, xy[0], xy[1])
	case "stroke":
		if len(args) != 5 {
			return fmt.Errorf("usage: stroke <layer> <x0> <y0> <x1> <y1>")
		}
		l, err := s.ResolveLayer(args[0])
		if err != nil {
			return err
		}
		p, err := ints(args[1:])
		if err != nil {
			return err
		}
		return c.Stroke(l, p[0], p[1], p[2], p[3])
	case "special":
		return noArgs(verb, args, c.Special)
	case "undo":
		return noArgs(verb, args, func() error {
			_, err := c.Undo()
			return err
		})
	case "redo":
		return noArgs(verb, args, func() error {
			_, err := c.Redo()
			return err
		})
	case "brush+":
		return noArgs(verb, args, c.BrushUp)
	case "brush-":
		return noArgs(verb, args, c.BrushDown)
	case "style":
		switch len(args) {
		case 0:
			return c.CycleStyle()
		case 1:
			st, err := paint.ParseStyle(args[0])
			if err != nil {
				return err
			}
			return c.SetStyle(st)
		}
		return fmt.Errorf("usage: style [set|additive|sequence]")
	case "replay":
		return noArgs(verb, args, c.StartReplay)
	case "delete":
		return noArgs(verb, args, func() error {
			s.DelCanvas(c.ID)
			return nil
		})
	}
	return fmt.Errorf("unknown ctl command: %s", verb)
}

func noArgs(verb string, args []string, fn func() error) error {
	if len(args) != 0 {
		return fmt.Errorf("%s takes no arguments", verb)
	}
	return fn()
}

func ints(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out[i] = n
	}
	return out, nil
}
