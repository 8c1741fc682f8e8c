package gatt

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// A Server is a GATT server. It owns the attribute table and answers ATT
// requests that the BLE stack hands to it with HandleATT; the stack reports
// connection events with Connected and Disconnected.
//
// Subscriptions are kept per peer address through each characteristic's
// CCCD: when a peer reconnects, notifications it had enabled resume without
// the peer writing the CCCD again.
type Server struct {
	name       string
	connect    func(c Conn)
	disconnect func(c Conn)
	store      *PeerStore
	maxMTU     uint16

	services []*Service
	handles  *handleRange
	started  bool

	connmu sync.RWMutex
	conns  map[Conn]*connState
}

// connState is the per-connection state of the server.
type connState struct {
	mu        sync.Mutex
	mtu       uint16
	notifiers map[*Characteristic]*notifier
}

// stopAll stops every notifier of the connection.
func (st *connState) stopAll() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for char, n := range st.notifiers {
		n.stop()
		delete(st.notifiers, char)
	}
}

func (st *connState) getMTU() uint16 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.mtu
}

// NewServer creates a Server with the specified options.
// See also Server.Option.
func NewServer(opts ...option) *Server {
	s := &Server{
		maxMTU: attMaxMTU,
		conns:  map[Conn]*connState{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddService registers svc with the server and returns it.
// All services must be added before starting the server;
// AddService returns nil once the server has started.
func (s *Server) AddService(svc *Service) *Service {
	if s.started {
		return nil
	}
	s.services = append(s.services, svc)
	return svc
}

// Start builds the attribute table. CCCDs created without a PeerStore are
// bound to the server's store (see Store), or to the process-wide store
// if the server has none. Start fails if a CCCD is left without a store.
func (s *Server) Start() error {
	if s.started {
		return errors.New("a server is already running")
	}

	ps := s.store
	if ps == nil {
		ps = Default()
	}
	for _, svc := range s.services {
		for _, c := range svc.chars {
			for _, d := range c.descs {
				if !d.Persisted() || d.store != nil {
					continue
				}
				if ps == nil {
					return errors.Errorf("CCCD of characteristic %s has no "+
						"peer store", c.uuid)
				}
				d.store = ps
			}
		}
	}

	s.handles = generateHandles(s.name, s.services, uint16(1)) // ble handles start at 1
	s.started = true
	log.Debugf("Server started with %d attributes", len(s.handles.hh))
	return nil
}

// Connected registers a new connection. It must be called before any
// request of c is passed to HandleATT.
func (s *Server) Connected(c Conn) {
	st := &connState{
		mtu:       attDefaultMTU,
		notifiers: map[*Characteristic]*notifier{},
	}

	s.connmu.Lock()
	prev := s.conns[c]
	s.conns[c] = st
	s.connmu.Unlock()

	if prev != nil {
		log.Warnf("Connected: %s was already connected", c.RemoteAddr())
		prev.stopAll()
	}

	log.Debugf("Connected: %s", c.RemoteAddr())
	if s.connect != nil {
		s.connect(c)
	}
	s.resumeNotifications(c, st)
}

// Disconnected forgets c and stops its notifiers. Persisted CCCD values are
// kept for the next connection of the same peer.
func (s *Server) Disconnected(c Conn) {
	s.connmu.Lock()
	st := s.conns[c]
	delete(s.conns, c)
	s.connmu.Unlock()

	if st == nil {
		return
	}

	st.stopAll()

	log.Debugf("Disconnected: %s", c.RemoteAddr())
	if s.disconnect != nil {
		s.disconnect(c)
	}
}

// Close disconnects every known connection.
func (s *Server) Close() error {
	s.connmu.RLock()
	conns := make([]Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connmu.RUnlock()

	for _, c := range conns {
		s.Disconnected(c)
	}
	return nil
}

func (s *Server) conn(c Conn) *connState {
	s.connmu.RLock()
	defer s.connmu.RUnlock()
	return s.conns[c]
}

// resumeNotifications starts the notifiers of every characteristic that
// the peer of c subscribed to during an earlier connection.
func (s *Server) resumeNotifications(c Conn, st *connState) {
	for _, svc := range s.services {
		for _, char := range svc.chars {
			if char.nhandler == nil || char.cccd == nil {
				continue
			}
			cfg, err := char.cccd.clientConfig(c)
			if err != nil {
				log.Warnf("Cannot restore subscription of %s to %s: %s",
					c.RemoteAddr(), char.uuid, err)
				continue
			}
			if cfg.Notify() {
				log.Debugf("Resuming notifications of %s to %s",
					char.uuid, c.RemoteAddr())
				s.startNotify(c, st, char)
			}
		}
	}
}

// startNotify starts the notifier of char on c, unless one is running or
// st is no longer the live state of c.
func (s *Server) startNotify(c Conn, st *connState, char *Characteristic) {
	s.connmu.RLock()
	if s.conns[c] != st {
		s.connmu.RUnlock()
		log.Debugf("Not notifying %s: connection is gone", c.RemoteAddr())
		return
	}
	st.mu.Lock()
	if _, ok := st.notifiers[char]; ok {
		st.mu.Unlock()
		s.connmu.RUnlock()
		return
	}
	n := newNotifier(c, char, int(st.mtu)-3)
	st.notifiers[char] = n
	st.mu.Unlock()
	s.connmu.RUnlock()

	char.nhandler.ServeNotify(Request{
		Conn:           c,
		Service:        char.service,
		Characteristic: char,
	}, n)
}

func (s *Server) stopNotify(st *connState, char *Characteristic) {
	st.mu.Lock()
	n := st.notifiers[char]
	delete(st.notifiers, char)
	st.mu.Unlock()

	if n != nil {
		n.stop()
	}
}

type option func(*Server) option

// Option sets the options specified.
// It returns an option to restore the last arg's previous value.
// Some options can only be set while the server is not running;
// they are best used with NewServer instead of Option.
func (s *Server) Option(opts ...option) (prev option) {
	for _, opt := range opts {
		prev = opt(s)
	}
	return prev
}

// Name sets the device name, exposed via the Generic Access Service (0x1800).
// Name cannot be changed once the server has started.
func Name(n string) option {
	return func(s *Server) option {
		prev := s.name
		s.name = n
		return Name(prev)
	}
}

// Connect sets a function to be called when a device connects to the server.
func Connect(f func(c Conn)) option {
	return func(s *Server) option {
		prev := s.connect
		s.connect = f
		return Connect(prev)
	}
}

// Disconnect sets a function to be called when a device disconnects from the server.
func Disconnect(f func(c Conn)) option {
	return func(s *Server) option {
		prev := s.disconnect
		s.disconnect = f
		return Disconnect(prev)
	}
}

// Store sets the PeerStore used by CCCDs that were created without one.
// Store cannot be changed once the server has started.
func Store(ps *PeerStore) option {
	return func(s *Server) option {
		if s.started {
			panic("cannot set Store while server is running")
		}
		prev := s.store
		s.store = ps
		return Store(prev)
	}
}

// MaxMTU sets the largest ATT_MTU the server accepts in an MTU exchange.
// Values below the ATT default of 23 are raised to 23.
func MaxMTU(n uint16) option {
	return func(s *Server) option {
		prev := s.maxMTU
		if n < attDefaultMTU {
			n = attDefaultMTU
		}
		s.maxMTU = n
		return MaxMTU(prev)
	}
}
