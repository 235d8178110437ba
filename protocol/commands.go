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
	"encoding/binary"
	"errors"
	"fmt"

	"k8s.io/klog/v2"
)

// Bridge commands
const (
	CmdGetVersion uint32 = 0xC0
	CmdReadWord   uint32 = 0xC1
	CmdWriteWord  uint32 = 0xC2
	CmdWriteBlock uint32 = 0xC3
)

var ErrShortResponse = errors.New("Response too short")

func unmarshal(buf []byte, dst interface{}) error {
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, dst)
}

func marshalCommand(cmd uint32, body ...interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, cmd); err != nil {
		return nil, err
	}
	for _, b := range body {
		if err := binary.Write(buf, binary.LittleEndian, b); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Status is the completion code of a bridge command.
type Status uint32

const (
	StatusOK Status = iota
	// The interconnect answered the access with an error response
	StatusBusError
	// No response from the interconnect
	StatusBusTimeout
	StatusBadCommand
	StatusBadLength
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBusError:
		return "bus error"
	case StatusBusTimeout:
		return "bus timeout"
	case StatusBadCommand:
		return "bad command"
	case StatusBadLength:
		return "bad length"
	default:
		return fmt.Sprintf("0x%08x", uint32(s))
	}
}

// StatusError is a command the bridge executed and failed.
type StatusError struct {
	Cmd    uint32
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Command %02x failed: %s", e.Cmd, e.Status)
}

type respHeader struct {
	Cmd    uint32
	Status Status
}

const respHeaderLen = 8

// checkResp validates the response header and returns the payload after it.
func checkResp(cmd uint32, buf []byte) ([]byte, error) {
	var hdr respHeader
	if err := unmarshal(buf, &hdr); err != nil {
		return nil, ErrShortResponse
	}

	if hdr.Cmd != cmd {
		return nil, fmt.Errorf("Invalid response command %08x, expected %08x", hdr.Cmd, cmd)
	}

	if hdr.Status != StatusOK {
		return nil, &StatusError{Cmd: cmd, Status: hdr.Status}
	}

	return buf[respHeaderLen:], nil
}

func (d *Device) command(cmd uint32, body ...interface{}) ([]byte, error) {
	cmdBuf, err := marshalCommand(cmd, body...)
	if err != nil {
		return nil, err
	}

	resp, err := d.Request(cmdBuf)
	if err != nil {
		return nil, err
	}

	return checkResp(cmd, resp)
}

type FirmwareVersion uint32

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", v>>16, v&0xffff)
}

type VersionInfo struct {
	FirmwareVersion FirmwareVersion
	// Base of the window the bridge can reach
	WindowBase uint32
	// Size of the window, in bytes
	WindowSize uint32
}

func (vi VersionInfo) String() string {
	return fmt.Sprintf("Firmware Version %s, window 0x%08x+0x%x", vi.FirmwareVersion, vi.WindowBase, vi.WindowSize)
}

func (d *Device) GetVersion() (VersionInfo, error) {
	resp, err := d.command(CmdGetVersion)
	if err != nil {
		return VersionInfo{}, err
	}

	info := VersionInfo{}
	if err := unmarshal(resp, &info); err != nil {
		return VersionInfo{}, ErrShortResponse
	}
	return info, nil
}

type wordCmd struct {
	Addr  uint32
	Value uint32
}

func (d *Device) ReadWord(addr uint32) (uint32, error) {
	resp, err := d.command(CmdReadWord, wordCmd{Addr: addr})
	if err != nil {
		return 0, err
	}

	var v uint32
	if err := unmarshal(resp, &v); err != nil {
		return 0, ErrShortResponse
	}

	klog.V(5).Infof("bridge read %08x = %08x", addr, v)
	return v, nil
}

func (d *Device) WriteWord(addr, val uint32) error {
	klog.V(5).Infof("bridge write %08x = %08x", addr, val)
	_, err := d.command(CmdWriteWord, wordCmd{Addr: addr, Value: val})
	return err
}

type blockHeader struct {
	Addr  uint32
	Count uint32
}

// maxBlockWords is how many words fit a block write frame after the
// command and its header.
func (d *Device) maxBlockWords() int {
	return (d.MaxPayloadSize() - 4 - binary.Size(blockHeader{})) / 4
}

// writeBlock writes words to consecutive addresses, as many per frame as
// fit.
func (d *Device) writeBlock(addr uint32, words []uint32) error {
	n := d.maxBlockWords()
	for len(words) > 0 {
		chunk := words
		if len(chunk) > n {
			chunk = chunk[:n]
		}

		hdr := blockHeader{Addr: addr, Count: uint32(len(chunk))}
		if _, err := d.command(CmdWriteBlock, hdr, chunk); err != nil {
			return err
		}

		klog.V(5).Infof("bridge block write %08x, %d words", addr, len(chunk))
		addr += uint32(len(chunk)) * 4
		words = words[len(chunk):]
	}
	return nil
}
