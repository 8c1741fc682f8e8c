package gatt

import "encoding/binary"

type handleType int

const (
	typService handleType = iota
	typCharacteristic
	typDescriptor
	typCharacteristicValue
)

func (t handleType) String() string {
	switch t {
	case typService:
		return "service"
	case typCharacteristic:
		return "characteristic"
	case typDescriptor:
		return "descriptor"
	case typCharacteristicValue:
		return "characteristicValue"
	}
	return "unknown"
}

// handle is an entry of the attribute table. It is not exported;
// managing handles is an implementation detail.
type handle struct {
	n      uint16 // gatt handle number
	startn uint16
	valuen uint16
	endn   uint16
	typ    handleType
	uuid   UUID        // attribute type
	attr   interface{} // *Service, *Characteristic or *Descriptor
	props  uint
	value  []byte // static value
}

// isPrimaryService reports whether this handle is
// the primary service with uuid uuid.
func (h handle) isPrimaryService(uuid UUID) bool {
	return h.typ == typService && uuidEqual(uuid, h.attr.(*Service).uuid)
}

// declaration returns the value of a characteristic declaration:
// properties, value handle and characteristic UUID.
func (h handle) declaration() []byte {
	c := h.attr.(*Characteristic)
	b := make([]byte, 3, 3+len(c.uuid.b))
	b[0] = byte(h.props)
	binary.LittleEndian.PutUint16(b[1:], h.valuen)
	return append(b, c.uuid.b...)
}

func generateHandles(name string, svcs []*Service, base uint16) *handleRange {
	svcs = append(defaultServices(name), svcs...)
	var handles []handle
	n := base

	for _, svc := range svcs {
		var hh []handle
		n, hh = svc.generateHandles(n)
		handles = append(handles, hh...)
	}

	return &handleRange{hh: handles, base: base}
}

func defaultServices(name string) []*Service {
	gapService := &Service{uuid: gatAttrGAPUUID}
	gapService.AddCharacteristic(gattAttrDeviceNameUUID).SetValue([]byte(name))
	gapService.AddCharacteristic(gattAttrAppearanceUUID).SetValue(gapCharAppearanceGenericComputer)

	gattService := &Service{uuid: gatAttrGATTUUID}
	return []*Service{gapService, gattService}
}

// A handleRange is a contiguous range of handles.
type handleRange struct {
	hh   []handle
	base uint16 // handle number for first handle in hh
}

const (
	tooSmall = -1
	tooLarge = -2
)

// idx returns the index into hh corresponding to handle n.
// If n is too small, idx returns tooSmall (-1).
// If n is too large, idx returns tooLarge (-2).
func (r *handleRange) idx(n int) int {
	if n < int(r.base) {
		return tooSmall
	}
	if int(n) >= int(r.base)+len(r.hh) {
		return tooLarge
	}
	return n - int(r.base)
}

// At returns handle n.
func (r *handleRange) At(n uint16) (h handle, ok bool) {
	i := r.idx(int(n))
	if i < 0 {
		return handle{}, false
	}
	return r.hh[i], true
}

// Subrange returns handles in range [start, end]; it may
// return an empty slice. Subrange does not panic for
// out-of-range start or end.
func (r *handleRange) Subrange(start, end uint16) []handle {
	startidx := r.idx(int(start))
	switch startidx {
	case tooSmall:
		startidx = 0
	case tooLarge:
		return []handle{}
	}

	endidx := r.idx(int(end) + 1) // [start, end] includes its upper bound!
	switch endidx {
	case tooSmall:
		return []handle{}
	case tooLarge:
		endidx = len(r.hh)
	}
	if endidx < startidx {
		return []handle{}
	}
	return r.hh[startidx:endidx]
}
