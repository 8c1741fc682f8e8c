package gatt

import (
	"bytes"
	"encoding/binary"
)

// attWriter builds an ATT response that must not exceed the connection MTU.
// Repeated entries (e.g. the handle/UUID pairs of a Find Information
// response) are written as chunks: a chunk is kept only if all of it fits.
type attWriter struct {
	mtu     int
	b       bytes.Buffer
	chunk   []byte
	chunked bool
}

func newATTWriter(mtu uint16) *attWriter {
	return &attWriter{mtu: int(mtu)}
}

// Chunk starts a new chunk. Chunk panics if a chunk is already open.
func (w *attWriter) Chunk() {
	if w.chunked {
		panic("attWriter: chunk called twice without committing")
	}
	w.chunked = true
	w.chunk = w.chunk[:0]
}

// Commit appends the open chunk if it fits and reports whether it did.
// Commit panics if no chunk is open.
func (w *attWriter) Commit() bool {
	if !w.chunked {
		panic("attWriter: commit without starting a chunk")
	}
	w.chunked = false
	if w.b.Len()+len(w.chunk) > w.mtu {
		return false
	}
	w.b.Write(w.chunk)
	return true
}

// Writeable returns how many bytes of b fit, keeping pad bytes spare.
func (w *attWriter) Writeable(pad int, b []byte) int {
	if w.chunked {
		return len(b)
	}
	avail := w.mtu - w.b.Len() - pad
	if avail < 0 {
		return 0
	}
	if avail > len(b) {
		return len(b)
	}
	return avail
}

// WriteFit writes b if it fits entirely, and reports whether it did.
// Inside a chunk the check is deferred to Commit.
func (w *attWriter) WriteFit(b []byte) bool {
	if w.chunked {
		w.chunk = append(w.chunk, b...)
		return true
	}
	if w.Writeable(0, b) < len(b) {
		return false
	}
	w.b.Write(b)
	return true
}

func (w *attWriter) WriteByteFit(b byte) bool {
	return w.WriteFit([]byte{b})
}

func (w *attWriter) WriteUint16Fit(n uint16) bool {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, n)
	return w.WriteFit(b)
}

func (w *attWriter) WriteUUIDFit(u UUID) bool {
	return w.WriteFit(u.b)
}

// WriteTruncated writes as much of b as fits.
func (w *attWriter) WriteTruncated(b []byte) {
	w.WriteFit(b[:w.Writeable(0, b)])
}

func (w *attWriter) Bytes() []byte {
	return w.b.Bytes()
}
