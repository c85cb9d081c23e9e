//go:build plan9

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"9fans.net/go/plan9/srv9p"
)

// shutdownSignals are the OS signals that trigger a clean exit.
var shutdownSignals = []os.Signal{os.Interrupt}

// listen posts the paint service in /srv under the base name of srvPath
// and returns the server end of the posted pipe.
func listen(srvPath string) (io.ReadWriteCloser, func(), error) {
	name := filepath.Base(srvPath)
	rw, err := srv9p.Post(name)
	if err != nil {
		return nil, nil, fmt.Errorf("post /srv/%s: %w", name, err)
	}
	return rw, func() { rw.Close() }, nil
}
