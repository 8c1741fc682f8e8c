package gatt

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/XC-/gattdesc/kvstore"
)

func TestStartBindsStore(t *testing.T) {
	svc := NewService(UUID16(0x180F))
	cccd := svc.AddCharacteristic(UUID16(0x2A19)).AddCCCD(nil)

	s := NewServer()
	s.AddService(svc)
	if err := s.Start(); err == nil {
		t.Fatalf("Start without a store: got nil error")
	}

	ps := NewPeerStore(kvstore.NewMem())
	s.Option(Store(ps))
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if cccd.store != ps {
		t.Errorf("CCCD store: got %p want %p", cccd.store, ps)
	}
	if err := s.Start(); err == nil {
		t.Errorf("second Start: got nil error")
	}
	if s.AddService(NewService(UUID16(0x1810))) != nil {
		t.Errorf("AddService after Start: got non-nil service")
	}
}

func TestStartKeepsExplicitStore(t *testing.T) {
	own := NewPeerStore(kvstore.NewMem())
	svc := NewService(UUID16(0x180F))
	cccd := svc.AddCharacteristic(UUID16(0x2A19)).AddCCCD(own)

	s := NewServer(Store(NewPeerStore(kvstore.NewMem())))
	s.AddService(svc)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if cccd.store != own {
		t.Errorf("CCCD store was replaced")
	}
}

func TestOptions(t *testing.T) {
	s := NewServer(Name("gattdesc"), MaxMTU(10))
	if s.maxMTU != attDefaultMTU {
		t.Errorf("MaxMTU(10): got %d want %d", s.maxMTU, attDefaultMTU)
	}

	prev := s.Option(Name("other"))
	if s.name != "other" {
		t.Errorf("Name: got %q want %q", s.name, "other")
	}
	s.Option(prev)
	if s.name != "gattdesc" {
		t.Errorf("restored Name: got %q want %q", s.name, "gattdesc")
	}

	s.Start()
	mustPanic(t, "Store while running", func() { s.Option(Store(nil)) })
}

func TestHandleATT(t *testing.T) {
	var events []string
	s := NewServer(
		Store(NewPeerStore(kvstore.NewMem())),
		MaxMTU(100),
		Connect(func(c Conn) { events = append(events, "connect "+c.RemoteAddr().String()) }),
		Disconnect(func(c Conn) { events = append(events, "disconnect "+c.RemoteAddr().String()) }),
	)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	a := peer("DE:AD:BE:EF:00:01")
	if got := s.HandleATT(a, []byte{attOpMtuReq, 0x17, 0x00}); !bytes.Equal(got, []byte{0x01, 0x02, 0x00, 0x00, 0x0e}) {
		t.Errorf("request before Connected: got [% X]", got)
	}

	s.Connected(a)

	cases := []struct {
		name string
		req  []byte
		want []byte
	}{
		{name: "empty", req: nil, want: nil},
		{name: "mtu above max", req: []byte{0x02, 0x00, 0x02}, want: []byte{0x03, 0x64, 0x00}},
		{name: "mtu below default", req: []byte{0x02, 0x05, 0x00}, want: []byte{0x03, 0x17, 0x00}},
		{name: "mtu short", req: []byte{0x02, 0x17}, want: []byte{0x01, 0x02, 0x00, 0x00, 0x04}},
		{name: "find info start 0", req: []byte{0x04, 0x00, 0x00, 0xff, 0xff}, want: []byte{0x01, 0x04, 0x00, 0x00, 0x01}},
		{name: "find info start > end", req: []byte{0x04, 0x05, 0x00, 0x01, 0x00}, want: []byte{0x01, 0x04, 0x05, 0x00, 0x01}},
		{name: "find info past end", req: []byte{0x04, 0x20, 0x00, 0xff, 0xff}, want: []byte{0x01, 0x04, 0x20, 0x00, 0x0a}},
		{name: "read invalid handle", req: []byte{0x0a, 0x20, 0x00}, want: []byte{0x01, 0x0a, 0x20, 0x00, 0x01}},
		{name: "read service", req: []byte{0x0a, 0x01, 0x00}, want: []byte{0x0b, 0x00, 0x18}},
		{name: "read blob offset 1", req: []byte{0x0c, 0x05, 0x00, 0x01, 0x00}, want: []byte{0x0d, 0x80}},
		{name: "read blob bad offset", req: []byte{0x0c, 0x05, 0x00, 0x03, 0x00}, want: []byte{0x01, 0x0c, 0x05, 0x00, 0x07}},
		{name: "write read-only", req: []byte{0x12, 0x03, 0x00, 0x41}, want: []byte{0x01, 0x12, 0x03, 0x00, 0x03}},
		{name: "write cmd read-only", req: []byte{0x52, 0x03, 0x00, 0x41}, want: nil},
		{name: "secondary services", req: []byte{0x10, 0x01, 0x00, 0xff, 0xff, 0x01, 0x28}, want: []byte{0x01, 0x10, 0x01, 0x00, 0x0a}},
	}

	for _, tt := range cases {
		if got := s.HandleATT(a, tt.req); !bytes.Equal(got, tt.want) {
			t.Errorf("%s: sent [% X] got [% X] want [% X]", tt.name, tt.req, got, tt.want)
		}
	}

	s.Close()
	if got := fmt.Sprint(events); got != "[connect de:ad:be:ef:00:01 disconnect de:ad:be:ef:00:01]" {
		t.Errorf("events: got %s", got)
	}
	if s.conn(a) != nil {
		t.Errorf("connection still registered after Close")
	}
}

func TestNotifyOnlyResumesNotifications(t *testing.T) {
	ps := NewPeerStore(kvstore.NewMem())
	started := 0
	svc := NewService(UUID16(0x180F))
	c := svc.AddCharacteristic(UUID16(0x2A19))
	c.HandleNotifyFunc(func(r Request, n Notifier) { started++ })
	c.AddCCCD(ps)

	s := NewServer(Store(ps))
	s.AddService(svc)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	a := peer("DE:AD:BE:EF:00:01")
	ps.SetClientConfig(a.addr, ClientConfigIndicate)
	s.Connected(a)
	if started != 0 {
		t.Errorf("indicate-only peer: notify handler started %d times", started)
	}
	s.Disconnected(a)

	ps.SetClientConfig(a.addr, ClientConfigNotify|ClientConfigIndicate)
	s.Connected(a)
	if started != 1 {
		t.Errorf("notifying peer: notify handler started %d times, want 1", started)
	}
}

func TestSubscriptionFollowsSharedRecord(t *testing.T) {
	shared := NewPeerStore(kvstore.NewMem())
	own := NewPeerStore(kvstore.NewMem())
	notifiers := map[string]Notifier{}

	svc := NewService(UUID16(0x180F))
	for _, ch := range []struct {
		name string
		uuid uint16
		ps   *PeerStore
	}{
		{name: "level", uuid: 0x2A19, ps: shared}, // 8 decl, 9 value, 10 cccd
		{name: "count", uuid: 0x2A1A, ps: shared}, // 11 decl, 12 value, 13 cccd
		{name: "other", uuid: 0x2A1B, ps: own},    // 14 decl, 15 value, 16 cccd
	} {
		name := ch.name
		c := svc.AddCharacteristic(UUID16(ch.uuid))
		c.HandleNotifyFunc(func(r Request, n Notifier) { notifiers[name] = n })
		c.AddCCCD(ch.ps)
	}

	s := NewServer()
	s.AddService(svc)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	a := peer("DE:AD:BE:EF:00:01")
	s.Connected(a)

	if got := s.HandleATT(a, []byte{0x12, 0x0a, 0x00, 0x01, 0x00}); !bytes.Equal(got, []byte{0x13}) {
		t.Fatalf("subscribe through level CCCD: got [% X]", got)
	}
	for _, name := range []string{"level", "count"} {
		if n := notifiers[name]; n == nil || n.Done() {
			t.Errorf("%s: notifier not running after subscribe", name)
		}
	}
	if notifiers["other"] != nil {
		t.Errorf("other: started although its CCCD uses another store")
	}

	if got := s.HandleATT(a, []byte{0x12, 0x0d, 0x00, 0x00, 0x00}); !bytes.Equal(got, []byte{0x13}) {
		t.Fatalf("unsubscribe through count CCCD: got [% X]", got)
	}
	for _, name := range []string{"level", "count"} {
		if !notifiers[name].Done() {
			t.Errorf("%s: notifier still running after the shared record was cleared", name)
		}
	}
	if cfg, _, _ := shared.ClientConfig(a.addr); cfg != 0 {
		t.Errorf("stored config: got %v want 0", cfg)
	}
}

func TestReconnectStopsStaleNotifiers(t *testing.T) {
	ps := NewPeerStore(kvstore.NewMem())
	var started []Notifier
	svc := NewService(UUID16(0x180F))
	c := svc.AddCharacteristic(UUID16(0x2A19))
	c.HandleNotifyFunc(func(r Request, n Notifier) { started = append(started, n) })
	c.AddCCCD(ps)

	s := NewServer(Store(ps))
	s.AddService(svc)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	a := peer("DE:AD:BE:EF:00:01")
	ps.SetClientConfig(a.addr, ClientConfigNotify)

	s.Connected(a)
	s.Connected(a)
	if len(started) != 2 {
		t.Fatalf("notify handler started %d times, want 2", len(started))
	}
	if !started[0].Done() {
		t.Errorf("notifier of the replaced connection state is still running")
	}
	if started[1].Done() {
		t.Errorf("notifier of the live connection state is done")
	}

	// A subscription landing after Disconnected must not start a notifier.
	st := s.conn(a)
	s.Disconnected(a)
	if !started[1].Done() {
		t.Errorf("notifier still running after Disconnected")
	}
	s.startNotify(a, st, c)
	if len(started) != 2 {
		t.Errorf("notifier started on a disconnected connection")
	}
	if len(st.notifiers) != 0 {
		t.Errorf("disconnected state holds %d notifiers", len(st.notifiers))
	}
}
