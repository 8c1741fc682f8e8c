package gatt

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"
)

// HandleATT serves one ATT request from c and returns the response PDU,
// or nil if the request does not take a response (Write Command).
// Requests of different connections may be served concurrently.
func (s *Server) HandleATT(c Conn, req []byte) []byte {
	if len(req) == 0 {
		return nil
	}
	op := req[0]

	st := s.conn(c)
	if st == nil || !s.started {
		log.Warnf("ATT request 0x%02X on unknown connection", op)
		return attErrorResp(op, 0, attEcodeUnlikely)
	}

	switch op {
	case attOpMtuReq:
		return s.handleMTU(st, req)
	case attOpFindInfoReq:
		return s.handleFindInfo(st, req)
	case attOpFindByTypeReq:
		return s.handleFindByType(st, req)
	case attOpReadByGroupReq:
		return s.handleReadByGroup(st, req)
	case attOpReadByTypeReq:
		return s.handleReadByType(c, st, req)
	case attOpReadReq:
		return s.handleRead(c, st, req)
	case attOpReadBlobReq:
		return s.handleReadBlob(c, st, req)
	case attOpWriteReq, attOpWriteCmd:
		return s.handleWrite(c, st, req)
	}

	log.Debugf("Unsupported ATT request 0x%02X", op)
	return attErrorResp(op, 0, attEcodeReqNotSupp)
}

func (s *Server) handleMTU(st *connState, req []byte) []byte {
	if len(req) != 3 {
		return attErrorResp(req[0], 0, attEcodeInvalidPDU)
	}
	mtu := binary.LittleEndian.Uint16(req[1:3])
	if mtu < attDefaultMTU {
		mtu = attDefaultMTU
	}
	if mtu > s.maxMTU {
		mtu = s.maxMTU
	}

	st.mu.Lock()
	st.mtu = mtu
	st.mu.Unlock()

	return []byte{attOpMtuResp, byte(mtu), byte(mtu >> 8)}
}

// handleRangeOf parses and validates the starting and ending handles that
// lead most discovery requests.
func handleRangeOf(req []byte) (start, end uint16, ok bool) {
	start = binary.LittleEndian.Uint16(req[1:3])
	end = binary.LittleEndian.Uint16(req[3:5])
	return start, end, start != 0 && start <= end
}

func (s *Server) handleFindInfo(st *connState, req []byte) []byte {
	if len(req) != 5 {
		return attErrorResp(req[0], 0, attEcodeInvalidPDU)
	}
	start, end, ok := handleRangeOf(req)
	if !ok {
		return attErrorResp(req[0], start, attEcodeInvalidHandle)
	}

	w := newATTWriter(st.getMTU())
	w.WriteByteFit(attOpFindInfoResp)

	uuidLen := -1
	for _, h := range s.handles.Subrange(start, end) {
		if uuidLen == -1 {
			uuidLen = h.uuid.Len()
			if uuidLen == 2 {
				w.WriteByteFit(0x01) // 16-bit UUIDs
			} else {
				w.WriteByteFit(0x02) // 128-bit UUIDs
			}
		}
		if h.uuid.Len() != uuidLen {
			break
		}
		w.Chunk()
		w.WriteUint16Fit(h.n)
		w.WriteUUIDFit(h.uuid)
		if !w.Commit() {
			break
		}
	}

	if uuidLen == -1 {
		return attErrorResp(req[0], start, attEcodeAttrNotFound)
	}
	return w.Bytes()
}

func (s *Server) handleFindByType(st *connState, req []byte) []byte {
	if len(req) < 7 {
		return attErrorResp(req[0], 0, attEcodeInvalidPDU)
	}
	start, end, ok := handleRangeOf(req)
	if !ok {
		return attErrorResp(req[0], start, attEcodeInvalidHandle)
	}
	// Only primary services can be searched by value.
	if !(UUID{req[5:7]}).Equal(gattAttrPrimaryServiceUUID) {
		return attErrorResp(req[0], start, attEcodeAttrNotFound)
	}
	svcUUID := UUID{req[7:]}

	w := newATTWriter(st.getMTU())
	w.WriteByteFit(attOpFindByTypeResp)

	found := false
	for _, h := range s.handles.Subrange(start, end) {
		if !h.isPrimaryService(svcUUID) {
			continue
		}
		w.Chunk()
		w.WriteUint16Fit(h.startn)
		w.WriteUint16Fit(h.endn)
		if !w.Commit() {
			break
		}
		found = true
	}

	if !found {
		return attErrorResp(req[0], start, attEcodeAttrNotFound)
	}
	return w.Bytes()
}

func (s *Server) handleReadByGroup(st *connState, req []byte) []byte {
	if len(req) != 7 && len(req) != 21 {
		return attErrorResp(req[0], 0, attEcodeInvalidPDU)
	}
	start, end, ok := handleRangeOf(req)
	if !ok {
		return attErrorResp(req[0], start, attEcodeInvalidHandle)
	}
	typ := UUID{req[5:]}
	switch {
	case typ.Equal(gattAttrPrimaryServiceUUID):
	case typ.Equal(gattAttrSecondaryServiceUUID):
		// There are no secondary services.
		return attErrorResp(req[0], start, attEcodeAttrNotFound)
	default:
		return attErrorResp(req[0], start, attEcodeUnsuppGrpType)
	}

	w := newATTWriter(st.getMTU())
	w.WriteByteFit(attOpReadByGroupResp)

	uuidLen := -1
	for _, h := range s.handles.Subrange(start, end) {
		if h.typ != typService {
			continue
		}
		if uuidLen == -1 {
			uuidLen = len(h.value)
			w.WriteByteFit(byte(uuidLen + 4))
		}
		if len(h.value) != uuidLen {
			break
		}
		w.Chunk()
		w.WriteUint16Fit(h.startn)
		w.WriteUint16Fit(h.endn)
		w.WriteFit(h.value)
		if !w.Commit() {
			break
		}
	}

	if uuidLen == -1 {
		return attErrorResp(req[0], start, attEcodeAttrNotFound)
	}
	return w.Bytes()
}

func (s *Server) handleReadByType(c Conn, st *connState, req []byte) []byte {
	if len(req) != 7 && len(req) != 21 {
		return attErrorResp(req[0], 0, attEcodeInvalidPDU)
	}
	start, end, ok := handleRangeOf(req)
	if !ok {
		return attErrorResp(req[0], start, attEcodeInvalidHandle)
	}
	typ := UUID{req[5:]}
	mtu := st.getMTU()

	w := newATTWriter(mtu)
	w.WriteByteFit(attOpReadByTypeResp)

	if typ.Equal(gattAttrCharacteristicUUID) {
		declLen := -1
		for _, h := range s.handles.Subrange(start, end) {
			if h.typ != typCharacteristic {
				continue
			}
			decl := h.declaration()
			if declLen == -1 {
				declLen = len(decl)
				w.WriteByteFit(byte(declLen + 2))
			}
			if len(decl) != declLen {
				break
			}
			w.Chunk()
			w.WriteUint16Fit(h.n)
			w.WriteFit(decl)
			if !w.Commit() {
				break
			}
		}
		if declLen == -1 {
			return attErrorResp(req[0], start, attEcodeAttrNotFound)
		}
		return w.Bytes()
	}

	// Any other type: the value of the first matching attribute.
	for _, h := range s.handles.Subrange(start, end) {
		if h.typ == typService || h.typ == typCharacteristic || !h.uuid.Equal(typ) {
			continue
		}
		v, status := s.readAttr(c, h, 0, int(mtu)-4)
		if status != StatusSuccess {
			return attErrorResp(req[0], h.n, status)
		}
		if limit := int(mtu) - 4; len(v) > limit {
			v = v[:limit]
		}
		if len(v) > 253 {
			v = v[:253]
		}
		w.WriteByteFit(byte(len(v) + 2))
		w.WriteUint16Fit(h.n)
		w.WriteFit(v)
		return w.Bytes()
	}
	return attErrorResp(req[0], start, attEcodeAttrNotFound)
}

func (s *Server) handleRead(c Conn, st *connState, req []byte) []byte {
	if len(req) != 3 {
		return attErrorResp(req[0], 0, attEcodeInvalidPDU)
	}
	return s.read(c, st, req[0], attOpReadResp, binary.LittleEndian.Uint16(req[1:3]), 0)
}

func (s *Server) handleReadBlob(c Conn, st *connState, req []byte) []byte {
	if len(req) != 5 {
		return attErrorResp(req[0], 0, attEcodeInvalidPDU)
	}
	n := binary.LittleEndian.Uint16(req[1:3])
	offset := binary.LittleEndian.Uint16(req[3:5])
	return s.read(c, st, req[0], attOpReadBlobResp, n, int(offset))
}

func (s *Server) read(c Conn, st *connState, reqOp, respOp byte, n uint16, offset int) []byte {
	h, ok := s.handles.At(n)
	if !ok {
		return attErrorResp(reqOp, n, attEcodeInvalidHandle)
	}

	mtu := st.getMTU()
	v, status := s.readAttr(c, h, offset, int(mtu)-1)
	if status != StatusSuccess {
		return attErrorResp(reqOp, n, status)
	}

	w := newATTWriter(mtu)
	w.WriteByteFit(respOp)
	w.WriteTruncated(v)
	return w.Bytes()
}

// readAttr returns the value of h as seen by c, starting at offset.
func (s *Server) readAttr(c Conn, h handle, offset int, maxlen int) ([]byte, byte) {
	var v []byte

	switch h.typ {
	case typService:
		v = h.value

	case typCharacteristic:
		v = h.declaration()

	case typCharacteristicValue:
		char := h.attr.(*Characteristic)
		if char.props&charRead == 0 {
			return nil, StatusReadNotPermitted
		}
		if char.rhandler != nil {
			// The handler applies the offset itself.
			resp := newReadResponseWriter(maxlen)
			char.rhandler.ServeRead(resp, &ReadRequest{
				Request: Request{Conn: c, Service: char.service, Characteristic: char},
				Cap:     maxlen,
				Offset:  offset,
			})
			return resp.bytes(), resp.status
		}
		v = char.value

	case typDescriptor:
		d := h.attr.(*Descriptor)
		var status byte
		v, status = d.ServeRead(&ReadRequest{
			Request: Request{Conn: c, Service: d.char.service, Characteristic: d.char},
			Cap:     maxlen,
			Offset:  offset,
		})
		if status != StatusSuccess {
			return nil, status
		}
	}

	if offset > len(v) {
		return nil, StatusInvalidOffset
	}
	return v[offset:], StatusSuccess
}

func (s *Server) handleWrite(c Conn, st *connState, req []byte) []byte {
	noRsp := req[0] == attOpWriteCmd
	if len(req) < 3 {
		if noRsp {
			return nil
		}
		return attErrorResp(req[0], 0, attEcodeInvalidPDU)
	}
	n := binary.LittleEndian.Uint16(req[1:3])
	data := req[3:]

	status := byte(StatusWriteNotPermitted)
	h, ok := s.handles.At(n)
	switch {
	case !ok:
		status = attEcodeInvalidHandle

	case h.typ == typCharacteristicValue:
		char := h.attr.(*Characteristic)
		if char.props&charWrite != 0 && char.whandler != nil {
			status = char.whandler.ServeWrite(Request{
				Conn:           c,
				Service:        char.service,
				Characteristic: char,
			}, data)
		}

	case h.typ == typDescriptor:
		d := h.attr.(*Descriptor)
		status = d.ServeWrite(Request{
			Conn:           c,
			Service:        d.char.service,
			Characteristic: d.char,
		}, data)
		if status == StatusSuccess && d.Persisted() {
			s.updateSubscription(c, st, d, data)
		}
	}

	if noRsp {
		return nil
	}
	if status != StatusSuccess {
		return attErrorResp(attOpWriteReq, n, status)
	}
	return []byte{attOpWriteResp}
}

// updateSubscription applies the CCCD value the peer wrote through d.
// CCCDs on the same store share the peer's record, so every notifiable
// characteristic whose CCCD uses that store follows the new value.
func (s *Server) updateSubscription(c Conn, st *connState, d *Descriptor, data []byte) {
	cfg, err := ParseClientConfig(data)
	if err != nil {
		return
	}
	for _, svc := range s.services {
		for _, char := range svc.chars {
			if char.nhandler == nil || char.cccd == nil || char.cccd.store != d.store {
				continue
			}
			if cfg.Notify() {
				s.startNotify(c, st, char)
			} else {
				s.stopNotify(st, char)
			}
		}
	}
}
