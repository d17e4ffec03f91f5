// Package gl implements the spritz device interfaces on top of OpenGL 3.3
// core profile.
//
// All functions and methods in this package must be called from the goroutine
// that owns the GL context, after Init.
//
package gl

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/pkg/errors"
)

// Init loads OpenGL function pointers. It must be called after a GL context
// has been made current.
//
func Init() error {
	if err := gl.Init(); err != nil {
		return errors.Wrap(err, "init OpenGL")
	}
	return nil
}

// Version returns the vendor, renderer and version strings of the current
// context.
//
func Version() string {
	return fmt.Sprintf("%s %s - %s", gl.GoStr(gl.GetString(gl.VENDOR)), gl.GoStr(gl.GetString(gl.RENDERER)), gl.GoStr(gl.GetString(gl.VERSION)))
}

var errNames = map[uint32]string{
	gl.INVALID_ENUM:                  "invalid enum",
	gl.INVALID_VALUE:                 "invalid value",
	gl.INVALID_OPERATION:             "invalid operation",
	gl.INVALID_FRAMEBUFFER_OPERATION: "invalid framebuffer operation",
	gl.OUT_OF_MEMORY:                 "out of memory",
}

// checkError returns the first pending GL error, if any, and drains the error
// queue.
//
func checkError(op string) error {
	var first uint32
	for e := gl.GetError(); e != gl.NO_ERROR; e = gl.GetError() {
		if first == 0 {
			first = e
		}
	}
	if first == 0 {
		return nil
	}
	name, ok := errNames[first]
	if !ok {
		name = fmt.Sprintf("error 0x%04x", first)
	}
	return errors.Errorf("%s: %s", op, name)
}
