package gatt

import "net"

// A BDAddr (Bluetooth Device Address) is a hardware-addressed-based net.Addr.
type BDAddr struct{ net.HardwareAddr }

func (a BDAddr) Network() string { return "BLE" }

// A Conn is a connection to a peer (central), as handed to the Server by
// the BLE stack. Conns are compared by identity; the stack must pass the
// same value for every event of one connection.
type Conn interface {
	// RemoteAddr returns the address of the connected peer. It is stable
	// across reconnects of the same device.
	RemoteAddr() BDAddr

	// Write sends a server-initiated ATT PDU, such as a notification.
	Write(b []byte) (int, error)

	// Close disconnects the connection.
	Close() error
}
