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

// Package rom reads and writes sequencer micro-code images.
//
// An image holds the instruction ROM and the address/command ROM of the
// read/write manager. In Intel HEX the instruction words start at address
// 0 and the address/command words at ACBase, both little endian. Raw
// binary images hold a full instruction ROM followed by the
// address/command words.
package rom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"

	"github.com/barebox/barebox-sub005/regs"
)

// ACBase is the address of the address/command ROM in HEX images.
const ACBase = 0x10000

const (
	instBytes = regs.RWMgrInstROMWords * 4
	acBytes   = regs.RWMgrACROMWords * 4
)

var (
	ErrOutOfRange = errors.New("Data outside both ROMs")
	ErrUnaligned  = errors.New("Image length is not a whole number of words")
	ErrTooLarge   = errors.New("Image too large for the ROMs")
)

type Image struct {
	Inst []uint32
	AC   []uint32
}

func words(b []byte) []uint32 {
	w := make([]uint32, len(b)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return w
}

func wordBytes(w []uint32) []byte {
	b := make([]byte, 4*len(w))
	for i, v := range w {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return b
}

func roundUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// ReadHex parses an Intel HEX image. Gaps read as zero.
func ReadHex(r io.Reader) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}

	var instEnd, acEnd uint32
	for _, seg := range mem.GetDataSegments() {
		end := seg.Address + uint32(len(seg.Data))
		switch {
		case end <= instBytes:
			instEnd = max(instEnd, end)
		case seg.Address >= ACBase && end <= ACBase+acBytes:
			acEnd = max(acEnd, end-ACBase)
		default:
			return nil, fmt.Errorf("%w: 0x%08x+%d", ErrOutOfRange, seg.Address, len(seg.Data))
		}
	}

	img := &Image{}
	if instEnd > 0 {
		img.Inst = words(mem.ToBinary(0, roundUp4(instEnd), 0))
	}
	if acEnd > 0 {
		img.AC = words(mem.ToBinary(ACBase, roundUp4(acEnd), 0))
	}
	return img, nil
}

// WriteHex writes img as Intel HEX.
func (img *Image) WriteHex(w io.Writer) error {
	if err := img.check(); err != nil {
		return err
	}

	mem := gohex.NewMemory()
	if len(img.Inst) > 0 {
		if err := mem.AddBinary(0, wordBytes(img.Inst)); err != nil {
			return err
		}
	}
	if len(img.AC) > 0 {
		if err := mem.AddBinary(ACBase, wordBytes(img.AC)); err != nil {
			return err
		}
	}

	ew := &errWriter{w: w}
	mem.DumpIntelHex(ew, 16)
	return ew.err
}

// errWriter keeps the first write error; DumpIntelHex drops them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// ReadBinary parses a raw image.
func ReadBinary(r io.Reader) (*Image, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(buf)%4 != 0 {
		return nil, ErrUnaligned
	}
	if len(buf) > instBytes+acBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(buf))
	}

	if len(buf) <= instBytes {
		return &Image{Inst: words(buf)}, nil
	}
	return &Image{Inst: words(buf[:instBytes]), AC: words(buf[instBytes:])}, nil
}

// WriteBinary writes img as a raw image. The instruction ROM is padded
// to full size when address/command words follow.
func (img *Image) WriteBinary(w io.Writer) error {
	if err := img.check(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(wordBytes(img.Inst))
	if len(img.AC) > 0 {
		buf.Write(make([]byte, instBytes-buf.Len()))
		buf.Write(wordBytes(img.AC))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (img *Image) check() error {
	if len(img.Inst) > regs.RWMgrInstROMWords || len(img.AC) > regs.RWMgrACROMWords {
		return fmt.Errorf("%w: %d instruction and %d AC words", ErrTooLarge, len(img.Inst), len(img.AC))
	}
	return nil
}
