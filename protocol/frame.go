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
	"encoding/binary"
	"errors"
)

var ErrFrameLengthIncorrect = errors.New("Frame length incorrect")
var ErrBodyLengthTooLong = errors.New("Body length too long")
var ErrTooShortForCommand = errors.New("Frame too short to contain command")
var ErrBadSync = errors.New("Frame does not start with the sync byte")
var ErrBadChecksum = errors.New("Frame checksum incorrect")

const frameSync = 0x5A

// Frame is a bridge frame: sync byte, sequence number, body length, body
// padded with zeroes, and a checksum making the frame sum to zero.
type Frame []byte

func (f Frame) SequenceNumber() byte {
	return f[1]
}

func (f Frame) BodyLength() int {
	return int(f[2])
}

func (f Frame) Body() []byte {
	return f[3 : 3+f.BodyLength()]
}

func (f Frame) Command() (uint32, error) {
	body := f.Body()
	if len(body) < 4 {
		return 0, ErrTooShortForCommand
	}

	return binary.LittleEndian.Uint32(body), nil
}

func (f Frame) Bytes() []byte {
	return []byte(f)
}

func checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return -sum
}

type Framer interface {
	FrameLength() int
	MaxBodyLength() int
	Frame(seqno byte, body []byte) (Frame, error)
	Unframe(pkg []byte) (Frame, error)
}

// BridgeFramer frames requests for the register bridge firmware. Frames
// are always 64 bytes, the size of one full speed bulk packet.
type BridgeFramer struct{}

func (f BridgeFramer) FrameLength() int {
	return 64
}

func (f BridgeFramer) MaxBodyLength() int {
	return 60
}

func (f BridgeFramer) Frame(seqno byte, body []byte) (Frame, error) {
	if len(body) > f.MaxBodyLength() {
		return nil, ErrBodyLengthTooLong
	}

	buf := make([]byte, f.FrameLength())
	buf[0] = frameSync
	buf[1] = seqno
	buf[2] = byte(len(body))
	copy(buf[3:], body)
	buf[len(buf)-1] = checksum(buf[:len(buf)-1])

	return Frame(buf), nil
}

func (f BridgeFramer) Unframe(pkg []byte) (Frame, error) {
	if len(pkg) != f.FrameLength() {
		return nil, ErrFrameLengthIncorrect
	}

	if pkg[0] != frameSync {
		return nil, ErrBadSync
	}

	if int(pkg[2]) > f.MaxBodyLength() {
		return nil, ErrBodyLengthTooLong
	}

	if checksum(pkg) != 0 {
		return nil, ErrBadChecksum
	}

	return Frame(pkg), nil
}

func NewBridgeFramer() Framer {
	return new(BridgeFramer)
}
