package gatt

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
)

type notifier struct {
	conn   Conn
	char   *Characteristic
	maxlen int
	donemu sync.RWMutex
	done   bool
}

func newNotifier(c Conn, cc *Characteristic, maxlen int) *notifier {
	return &notifier{conn: c, char: cc, maxlen: maxlen}
}

func (n *notifier) Write(data []byte) (int, error) {
	if n.Done() {
		return 0, errors.New("central stopped notifications")
	}
	if len(data) > n.maxlen {
		return 0, errors.Errorf("notification of %d bytes exceeds cap %d", len(data), n.maxlen)
	}
	b := make([]byte, 3+len(data))
	b[0] = attOpHandleNotify
	binary.LittleEndian.PutUint16(b[1:], n.char.valuen)
	copy(b[3:], data)
	if _, err := n.conn.Write(b); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (n *notifier) Cap() int {
	return n.maxlen
}

func (n *notifier) Done() bool {
	n.donemu.RLock()
	done := n.done
	n.donemu.RUnlock()
	return done
}

func (n *notifier) stop() {
	n.donemu.Lock()
	n.done = true
	n.donemu.Unlock()
}
