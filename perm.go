package gatt

import "strings"

// AttributePermissions is the set of ATT operations a peer may perform
// on an attribute.
type AttributePermissions uint8

const (
	Readable AttributePermissions = 1 << iota
	Writable
)

// PermRead returns {Readable}.
func PermRead() AttributePermissions { return Readable }

// PermReadWrite returns {Readable, Writable}.
func PermReadWrite() AttributePermissions { return Readable | Writable }

func (p AttributePermissions) CanRead() bool  { return p&Readable != 0 }
func (p AttributePermissions) CanWrite() bool { return p&Writable != 0 }

func (p AttributePermissions) String() string {
	var s []string
	if p.CanRead() {
		s = append(s, "read")
	}
	if p.CanWrite() {
		s = append(s, "write")
	}
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, "|")
}
