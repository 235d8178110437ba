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

package rom

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func testImage() *Image {
	img := &Image{
		Inst: make([]uint32, 40),
		AC:   make([]uint32, 7),
	}
	for i := range img.Inst {
		img.Inst[i] = 0x01000000*uint32(i) | uint32(i)
	}
	for i := range img.AC {
		img.AC[i] = 0xA0000000 | uint32(i)
	}
	return img
}

func TestHexRoundTrip(t *testing.T) {
	img := testImage()

	var buf bytes.Buffer
	if err := img.WriteHex(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(strings.TrimSpace(buf.String()), ":00000001FF") {
		t.Errorf("image does not end with an EOF record:\n%s", buf.String())
	}

	got, err := ReadHex(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, img) {
		t.Errorf("read back %+v, want %+v", got, img)
	}
}

// failingWriter accepts n bytes, then fails.
type failingWriter struct {
	n int
}

var errDiskFull = errors.New("disk full")

func (f *failingWriter) Write(p []byte) (int, error) {
	if len(p) > f.n {
		n := f.n
		f.n = 0
		return n, errDiskFull
	}
	f.n -= len(p)
	return len(p), nil
}

func TestWriteHexReportsWriteErrors(t *testing.T) {
	for _, n := range []int{0, 20, 200} {
		err := testImage().WriteHex(&failingWriter{n: n})
		if !errors.Is(err, errDiskFull) {
			t.Errorf("failing after %d bytes: WriteHex = %v, want %v", n, err, errDiskFull)
		}
	}
}

func TestReadHex(t *testing.T) {
	// Two instruction words, then one AC word at ACBase
	const hex = ":0800000078563412EFBEADDEAC\n" +
		":020000040001F9\n" +
		":0400000004030201F2\n" +
		":00000001FF\n"

	img, err := ReadHex(strings.NewReader(hex))
	if err != nil {
		t.Fatal(err)
	}
	want := &Image{
		Inst: []uint32{0x12345678, 0xDEADBEEF},
		AC:   []uint32{0x01020304},
	}
	if !reflect.DeepEqual(img, want) {
		t.Errorf("ReadHex = %+v, want %+v", img, want)
	}
}

func TestReadHexOutOfRange(t *testing.T) {
	const hex = ":020000040002F8\n" +
		":0400000001020304F2\n" +
		":00000001FF\n"

	if _, err := ReadHex(strings.NewReader(hex)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("ReadHex = %v, want ErrOutOfRange", err)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	img := testImage()

	var buf bytes.Buffer
	if err := img.WriteBinary(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != instBytes+4*len(img.AC) {
		t.Errorf("image is %d bytes", buf.Len())
	}

	got, err := ReadBinary(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Inst[:len(img.Inst)], img.Inst) || !reflect.DeepEqual(got.AC, img.AC) {
		t.Errorf("read back %+v", got)
	}
	for _, w := range got.Inst[len(img.Inst):] {
		if w != 0 {
			t.Fatalf("padding word %#x", w)
		}
	}
}

func TestReadBinaryRejects(t *testing.T) {
	tests := []struct {
		n   int
		err error
	}{
		{6, ErrUnaligned},
		{instBytes + acBytes + 4, ErrTooLarge},
	}

	for _, tt := range tests {
		if _, err := ReadBinary(bytes.NewReader(make([]byte, tt.n))); !errors.Is(err, tt.err) {
			t.Errorf("%d bytes: %v, want %v", tt.n, err, tt.err)
		}
	}
}

func TestWriteTooLarge(t *testing.T) {
	img := &Image{Inst: make([]uint32, instBytes/4+1)}
	if err := img.WriteHex(&bytes.Buffer{}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("WriteHex = %v, want ErrTooLarge", err)
	}
}
