package gatt

import (
	"bytes"
	"testing"
)

func TestUUID16(t *testing.T) {
	if want, got := (UUID{[]byte{0x00, 0x18}}), UUID16(0x1800); !got.Equal(want) {
		t.Errorf("UUID16: got %x, want %x", got, want)
	}
}

func TestParseUUID(t *testing.T) {
	cases := []struct {
		s    string
		want UUID
		str  string
	}{
		{s: "2902", want: UUID16(0x2902), str: "2902"},
		{s: "2a19", want: UUID16(0x2A19), str: "2A19"},
		{
			s: "09fc95c0-c111-11e3-9904-0002a5d5c51b",
			want: UUID{[]byte{
				0x1b, 0xc5, 0xd5, 0xa5, 0x02, 0x00, 0x04, 0x99,
				0xe3, 0x11, 0x11, 0xc1, 0xc0, 0x95, 0xfc, 0x09,
			}},
			str: "09FC95C0-C111-11E3-9904-0002A5D5C51B",
		},
	}

	for _, tt := range cases {
		got, err := ParseUUID(tt.s)
		if err != nil {
			t.Errorf("ParseUUID(%q): unexpected error %v", tt.s, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseUUID(%q): got %x want %x", tt.s, got.b, tt.want.b)
		}
		if got.String() != tt.str {
			t.Errorf("ParseUUID(%q).String(): got %q want %q", tt.s, got.String(), tt.str)
		}
	}

	for _, s := range []string{"", "29", "zzzz", "09fc95c0-c111-11e3-9904"} {
		if _, err := ParseUUID(s); err == nil {
			t.Errorf("ParseUUID(%q): expected error", s)
		}
	}
}

func TestReverse(t *testing.T) {
	cases := []struct {
		fwd  []byte
		back []byte
	}{
		{fwd: []byte{}, back: []byte{}},
		{fwd: []byte{0, 1}, back: []byte{1, 0}},
		{fwd: []byte{0, 1, 2}, back: []byte{2, 1, 0}},
		{fwd: []byte{0, 1, 2, 3}, back: []byte{3, 2, 1, 0}},
		{
			fwd:  []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
			back: []byte{15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
		},
	}

	for _, tt := range cases {
		got := reverse(tt.fwd)
		if !bytes.Equal(got, tt.back) {
			t.Errorf("reverse(%x): got %x want %x", tt.fwd, got, tt.back)
		}
	}
}

func BenchmarkReverseBytes16(b *testing.B) {
	u := UUID{make([]byte, 2)}
	for i := 0; i < b.N; i++ {
		reverse(u.b)
	}
}

func BenchmarkReverseBytes128(b *testing.B) {
	u := UUID{make([]byte, 16)}
	for i := 0; i < b.N; i++ {
		reverse(u.b)
	}
}
