package gatt

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Serve runs the server over rw, which speaks the shim line protocol:
//
//	accept <addr>       a central connected
//	disconnect <addr>   the central disconnected
//	data <hex>          an ATT PDU from the central
//
// Responses and notifications are written back to rw as one hex encoded
// PDU per line. The shim carries a single connection at a time. Serve
// returns nil when rw reaches EOF, after disconnecting the current
// central; other lines are ignored. The server must be started.
func (s *Server) Serve(rw io.ReadWriter) error {
	if !s.started {
		return errors.New("server not started")
	}
	return newL2cap(rw, s).eventloop()
}

func newL2cap(rw io.ReadWriter, server *Server) *l2cap {
	return &l2cap{
		rw:      rw,
		readbuf: bufio.NewReader(rw),
		server:  server,
	}
}

type l2cap struct {
	rw      io.ReadWriter
	readbuf *bufio.Reader
	sendmu  sync.Mutex // serializes writes to the shim
	server  *Server
	conn    *l2capConn // current connection, owned by eventloop
}

func (c *l2cap) send(b []byte) error {
	c.sendmu.Lock()
	defer c.sendmu.Unlock()
	_, err := fmt.Fprintf(c.rw, "%x\n", b)
	return err
}

func (c *l2cap) eventloop() error {
	defer c.disconnected()

	for {
		s, err := c.readbuf.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "cannot read from shim")
		}
		f := strings.Fields(s)
		if len(f) < 2 {
			continue
		}

		switch f[0] {
		case "accept":
			hw, err := net.ParseMAC(f[1])
			if err != nil {
				return errors.Wrapf(err, "failed to parse accepted addr %s", f[1])
			}
			c.disconnected()
			c.conn = &l2capConn{l2c: c, addr: BDAddr{hw}}
			c.server.Connected(c.conn)
		case "disconnect":
			if _, err := net.ParseMAC(f[1]); err != nil {
				return errors.Wrapf(err, "failed to parse disconnected addr %s", f[1])
			}
			c.disconnected()
		case "data":
			req, err := hex.DecodeString(f[1])
			if err != nil {
				return errors.Wrapf(err, "failed to decode data %s", f[1])
			}
			if c.conn == nil {
				log.Debugf("Dropping request [% X]: not connected", req)
				continue
			}
			if resp := c.server.HandleATT(c.conn, req); resp != nil {
				if err := c.send(resp); err != nil {
					return errors.Wrap(err, "cannot write to shim")
				}
			}
		default:
			log.Debugf("Ignoring shim event %q", f[0])
		}
	}
}

func (c *l2cap) disconnected() {
	if c.conn == nil {
		return
	}
	c.server.Disconnected(c.conn)
	c.conn = nil
}

// l2capConn is the Conn of the central currently carried by the shim.
type l2capConn struct {
	l2c  *l2cap
	addr BDAddr
}

func (c *l2capConn) RemoteAddr() BDAddr { return c.addr }

func (c *l2capConn) Write(b []byte) (int, error) {
	if err := c.l2c.send(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close asks the shim to drop the connection. Only a Shim can do that.
func (c *l2capConn) Close() error {
	sh, ok := c.l2c.rw.(Shim)
	if !ok {
		return errors.New("transport cannot disconnect")
	}
	return sh.Signal(syscall.SIGHUP)
}
