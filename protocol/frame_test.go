// Copyright © 2019 Erin Shepherd
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	f := NewBridgeFramer()
	body := []byte{0xC1, 0, 0, 0, 0x10, 0x20}

	fr, err := f.Frame(5, body)
	if err != nil {
		t.Fatal(err)
	}
	if len(fr.Bytes()) != 64 {
		t.Fatalf("frame is %d bytes", len(fr.Bytes()))
	}

	got, err := f.Unframe(fr.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.SequenceNumber() != 5 {
		t.Errorf("sequence number %d", got.SequenceNumber())
	}
	if !bytes.Equal(got.Body(), body) {
		t.Errorf("body %x, want %x", got.Body(), body)
	}
	if cmd, err := got.Command(); err != nil || cmd != 0xC1 {
		t.Errorf("Command() = %#x, %v", cmd, err)
	}
}

func TestUnframeRejects(t *testing.T) {
	f := NewBridgeFramer()
	good, _ := f.Frame(1, []byte{1, 2, 3, 4})

	corrupt := func(fn func(b []byte)) []byte {
		b := append([]byte(nil), good.Bytes()...)
		fn(b)
		return b
	}

	tests := []struct {
		name string
		pkg  []byte
		err  error
	}{
		{"short", good.Bytes()[:63], ErrFrameLengthIncorrect},
		{"sync", corrupt(func(b []byte) { b[0] = 0xA5 }), ErrBadSync},
		{"length", corrupt(func(b []byte) { b[2] = 61 }), ErrBodyLengthTooLong},
		{"checksum", corrupt(func(b []byte) { b[10] ^= 0x01 }), ErrBadChecksum},
	}

	for _, tt := range tests {
		if _, err := f.Unframe(tt.pkg); err != tt.err {
			t.Errorf("%s: Unframe = %v, want %v", tt.name, err, tt.err)
		}
	}
}

func TestFrameBodyTooLong(t *testing.T) {
	if _, err := NewBridgeFramer().Frame(0, make([]byte, 61)); err != ErrBodyLengthTooLong {
		t.Errorf("Frame = %v, want ErrBodyLengthTooLong", err)
	}
}

func TestCommandTooShort(t *testing.T) {
	fr, _ := NewBridgeFramer().Frame(0, []byte{1, 2})
	if _, err := fr.Command(); err != ErrTooShortForCommand {
		t.Errorf("Command() = %v", err)
	}
}
