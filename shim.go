package gatt

import (
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// A Shim provides mediated access to BLE. It speaks the line protocol
// served by Server.Serve on its standard streams.
type Shim interface {
	io.ReadWriteCloser
	Signal(os.Signal) error
	Wait() error
}

// cshim provides access to BLE via an external c executable.
type cshim struct {
	cmd *exec.Cmd
	io.Reader
	io.Writer
}

// NewCShim starts the shim named file using the provided args.
func NewCShim(file string, arg ...string) (Shim, error) {
	c := new(cshim)
	var err error
	if file, err = exec.LookPath(file); err != nil {
		return nil, errors.Wrapf(err, "cannot find shim %s", file)
	}
	c.cmd = exec.Command(file, arg...)
	c.cmd.Stderr = os.Stderr
	if c.Writer, err = c.cmd.StdinPipe(); err != nil {
		return nil, err
	}
	if c.Reader, err = c.cmd.StdoutPipe(); err != nil {
		return nil, err
	}
	if err = c.cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "cannot start shim %s", file)
	}
	return c, nil
}

func (c *cshim) Wait() error                { return c.cmd.Wait() }
func (c *cshim) Close() error               { return c.cmd.Process.Kill() }
func (c *cshim) Signal(sig os.Signal) error { return c.cmd.Process.Signal(sig) }
