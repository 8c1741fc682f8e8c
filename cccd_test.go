package gatt

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestParseClientConfig(t *testing.T) {
	cases := []struct {
		in       []byte
		want     ClientConfig
		notify   bool
		indicate bool
		str      string
	}{
		{in: []byte{0x00, 0x00}, want: 0, str: "notify=false indicate=false"},
		{in: []byte{0x01, 0x00}, want: ClientConfigNotify, notify: true, str: "notify=true indicate=false"},
		{in: []byte{0x02, 0x00}, want: ClientConfigIndicate, indicate: true, str: "notify=false indicate=true"},
		{in: []byte{0x03, 0x00}, want: 3, notify: true, indicate: true, str: "notify=true indicate=true"},
		{in: []byte{0x00, 0x80}, want: 0x8000, str: "notify=false indicate=false"},
	}

	for _, tt := range cases {
		got, err := ParseClientConfig(tt.in)
		if err != nil {
			t.Errorf("ParseClientConfig(% X): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClientConfig(% X): got %v want %v", tt.in, got, tt.want)
		}
		if got.Notify() != tt.notify || got.Indicate() != tt.indicate {
			t.Errorf("%v: got notify %t indicate %t want %t %t",
				got, got.Notify(), got.Indicate(), tt.notify, tt.indicate)
		}
		if !bytes.Equal(got.Bytes(), tt.in) {
			t.Errorf("%v.Bytes(): got % X want % X", got, got.Bytes(), tt.in)
		}
		if s := got.String(); s != tt.str {
			t.Errorf("%#v.String(): got %q want %q", uint16(got), s, tt.str)
		}
	}
}

func TestParseClientConfigBadLength(t *testing.T) {
	for _, in := range [][]byte{nil, {0x01}, {0x01, 0x00, 0x00}} {
		if _, err := ParseClientConfig(in); errors.Cause(err) != ErrBadClientConfigLen {
			t.Errorf("ParseClientConfig(% X): got %v want %v", in, err, ErrBadClientConfigLen)
		}
	}
}
