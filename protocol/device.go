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
	"errors"
	"fmt"
	"io"

	"github.com/google/gousb"
	"k8s.io/klog/v2"
)

var (
	ErrWriteSizeIncorrect      = errors.New("Write of incorrect size")
	ErrReadSizeIncorrect       = errors.New("Read of incorrect size")
	ErrSequenceNumberIncorrect = errors.New("Incorrect sequence number")
	ErrTimeout                 = errors.New("Timed out waiting for the bridge")
)

// link carries frames to and from a bridge.
type link interface {
	io.ReadWriter
	Close() error
}

type deviceConfig struct {
	NewFramer func() Framer
	EPOut     int
	EPIn      int
}

var devices = map[uint32]*deviceConfig{
	0x09fb6010: &deviceConfig{
		NewFramer: NewBridgeFramer,
		EPOut:     0x04,
		EPIn:      0x83,
	},
}

// Device is a register bridge. It implements regio.Bus; the first
// transport error is kept and all later accesses are dropped.
type Device struct {
	path   string
	framer Framer
	seqNo  uint8
	link   link
	err    error
}

func newDevice(path string, framer Framer, l link) *Device {
	return &Device{path: path, framer: framer, link: l}
}

func (d *Device) Path() string {
	return d.path
}

func (d *Device) MaxPayloadSize() int {
	return d.framer.MaxBodyLength()
}

func (d *Device) nextSequenceNumber() uint8 {
	d.seqNo++
	if d.seqNo >= 0x80 {
		d.seqNo = 0
	}
	return d.seqNo
}

func (d *Device) Send(body []byte) error {
	seqNum := d.nextSequenceNumber()

	msg, err := d.framer.Frame(seqNum, body)
	if err != nil {
		return err
	}

	msgBytes := msg.Bytes()
	l, err := d.link.Write(msgBytes)
	if err != nil {
		return err
	} else if l != len(msgBytes) {
		return ErrWriteSizeIncorrect
	}

	return nil
}

// readFull fills buf. A read returning nothing is the link timing out.
func readFull(r io.Reader, buf []byte) error {
	for n := 0; n < len(buf); {
		l, err := r.Read(buf[n:])
		if err != nil {
			return err
		}
		if l == 0 {
			return ErrTimeout
		}
		n += l
	}
	return nil
}

func (d *Device) Receive() ([]byte, error) {
	inBuf := make([]byte, d.framer.FrameLength())
	if err := readFull(d.link, inBuf); err != nil {
		return nil, err
	}

	respf, err := d.framer.Unframe(inBuf)
	if err != nil {
		return nil, err
	} else if respf.SequenceNumber() != d.seqNo {
		return nil, ErrSequenceNumberIncorrect
	}
	return respf.Body(), nil
}

func (d *Device) Request(body []byte) ([]byte, error) {
	if err := d.Send(body); err != nil {
		return nil, err
	}

	return d.Receive()
}

func (d *Device) Read32(addr uint32) uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.ReadWord(addr)
	if err != nil {
		d.err = fmt.Errorf("reading %#08x: %w", addr, err)
	}
	return v
}

func (d *Device) Write32(addr, val uint32) {
	if d.err != nil {
		return
	}
	if err := d.WriteWord(addr, val); err != nil {
		d.err = fmt.Errorf("writing %#08x: %w", addr, err)
	}
}

func (d *Device) WriteBlock(addr uint32, words []uint32) error {
	if d.err != nil {
		return d.err
	}
	if err := d.writeBlock(addr, words); err != nil {
		d.err = fmt.Errorf("writing block at %#08x: %w", addr, err)
	}
	return d.err
}

// Err returns the first transport error.
func (d *Device) Err() error {
	return d.err
}

func (d *Device) Close() {
	if d != nil && d.link != nil {
		if err := d.link.Close(); err != nil {
			klog.Warningf("closing %s: %v", d.path, err)
		}
		d.link = nil
	}
}

// usbLink is a bulk endpoint pair of a claimed interface.
type usbLink struct {
	dev *gousb.Device
	cfg *gousb.Config
	ifc *gousb.Interface
	in  *gousb.InEndpoint
	out *gousb.OutEndpoint
}

func (l *usbLink) Read(b []byte) (int, error) {
	return l.in.Read(b)
}

func (l *usbLink) Write(b []byte) (int, error) {
	return l.out.Write(b)
}

func (l *usbLink) Close() error {
	l.ifc.Close()
	if err := l.cfg.Close(); err != nil {
		return err
	}
	return l.dev.Close()
}

// OpenUSB opens every register bridge attached over USB.
func OpenUSB(ctx *gousb.Context) ([]*Device, error) {
	baseDevs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		vidpid := (uint32(desc.Vendor) << 16) | uint32(desc.Product)
		_, ok := devices[vidpid]
		return ok
	})

	if err != nil {
		for _, d := range baseDevs {
			d.Close()
		}
		return nil, err
	}

	bdevs := make([]*Device, 0, len(baseDevs))
	defer func() {
		for _, d := range bdevs {
			d.Close()
		}
	}()

	for _, usbdev := range baseDevs {
		vidpid := (uint32(usbdev.Desc.Vendor) << 16) | uint32(usbdev.Desc.Product)
		devcfg := devices[vidpid]

		l, err := claim(usbdev, devcfg)
		if err != nil {
			usbdev.Close()
			return nil, err
		}

		path := fmt.Sprintf("usb:%d.%d", usbdev.Desc.Bus, usbdev.Desc.Address)
		klog.V(1).Infof("bridge at %s", path)
		bdevs = append(bdevs, newDevice(path, devcfg.NewFramer(), l))
	}

	// Clear bdevs before returning so we don't
	// immediately close them all
	rdevs := bdevs
	bdevs = nil
	return rdevs, nil
}

func claim(usbdev *gousb.Device, devcfg *deviceConfig) (*usbLink, error) {
	if len(usbdev.Desc.Configs) != 1 {
		return nil, fmt.Errorf("Too many configs (%d)", len(usbdev.Desc.Configs))
	}

	var cfgdesc gousb.ConfigDesc
	for _, cfg := range usbdev.Desc.Configs {
		cfgdesc = cfg
	}

	haveInterface := false
	var ifcdesc gousb.InterfaceSetting
ifc:
	for _, ifc := range cfgdesc.Interfaces {
		for _, setting := range ifc.AltSettings {
			if setting.Class == gousb.ClassVendorSpec {
				haveInterface = true
				ifcdesc = setting
				break ifc
			}
		}
	}

	if !haveInterface {
		return nil, errors.New("Unable to find interface setting")
	}

	cfg, err := usbdev.Config(cfgdesc.Number)
	if err != nil {
		return nil, err
	}

	ifc, err := cfg.Interface(ifcdesc.Number, ifcdesc.Alternate)
	if err != nil {
		cfg.Close()
		return nil, err
	}

	inep, err := ifc.InEndpoint(devcfg.EPIn)
	if err != nil {
		ifc.Close()
		cfg.Close()
		return nil, err
	}

	outep, err := ifc.OutEndpoint(devcfg.EPOut)
	if err != nil {
		ifc.Close()
		cfg.Close()
		return nil, err
	}

	return &usbLink{dev: usbdev, cfg: cfg, ifc: ifc, in: inep, out: outep}, nil
}
