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

package cmd

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
	"k8s.io/klog/v2"

	"github.com/barebox/barebox-sub005/internal/physim"
	"github.com/barebox/barebox-sub005/protocol"
	"github.com/barebox/barebox-sub005/regio"
	"github.com/barebox/barebox-sub005/target"
)

// connection is an open register bus to a target PHY.
type connection struct {
	Bus    regio.Bus
	Target *target.Definition

	close func()
}

func (c *connection) Close() {
	if c.close != nil {
		c.close()
		c.close = nil
	}
}

func selectedTarget() (*target.Definition, error) {
	if targetName == "" {
		return nil, errors.New("Target PHY not specified")
	}

	td := target.ByName(targetName)
	if td == nil {
		return nil, fmt.Errorf("Target PHY '%s' not found", targetName)
	}
	return td, nil
}

// checkBridge makes sure the bridge window covers every manager of td.
func checkBridge(dev *protocol.Device, td *target.Definition) error {
	ver, err := dev.GetVersion()
	if err != nil {
		return err
	}
	klog.V(1).Infof("%s: %s", dev.Path(), ver)

	lo, hi := td.Layout.Span()
	if lo < ver.WindowBase || uint64(hi) > uint64(ver.WindowBase)+uint64(ver.WindowSize) {
		return fmt.Errorf("Bridge window 0x%08x+0x%x does not cover %s registers 0x%08x-0x%08x",
			ver.WindowBase, ver.WindowSize, td.Name, lo, hi)
	}
	return nil
}

func connectUSB(td *target.Definition) (*connection, error) {
	ctx := gousb.NewContext()

	devs, err := protocol.OpenUSB(ctx)
	if err != nil {
		ctx.Close()
		return nil, err
	}

	switch {
	case len(devs) == 0:
		ctx.Close()
		return nil, errors.New("No bridge found")
	case len(devs) > 1:
		for _, dev := range devs {
			dev.Close()
		}
		ctx.Close()
		return nil, errors.New("Multiple bridges found - use --bus serial to pick one")
	}

	dev := devs[0]
	closeAll := func() {
		dev.Close()
		ctx.Close()
	}

	if err := checkBridge(dev, td); err != nil {
		closeAll()
		return nil, err
	}
	return &connection{Bus: dev, Target: td, close: closeAll}, nil
}

func connectSerial(td *target.Definition) (*connection, error) {
	if portName == "" {
		return nil, errors.New("Serial port not specified")
	}

	dev, err := protocol.OpenSerial(portName, baud)
	if err != nil {
		return nil, err
	}

	if err := checkBridge(dev, td); err != nil {
		dev.Close()
		return nil, err
	}
	return &connection{Bus: dev, Target: td, close: dev.Close}, nil
}

func connectDevMem(td *target.Definition) (*connection, error) {
	lo, hi := td.Layout.Span()
	m, err := regio.OpenDevMem(devmemPath, lo, int(hi-lo))
	if err != nil {
		return nil, err
	}

	return &connection{Bus: m, Target: td, close: func() {
		if err := m.Close(); err != nil {
			klog.Warningf("unmapping %s: %v", devmemPath, err)
		}
	}}, nil
}

// connectToTarget opens the bus selected by --bus to the PHY selected by
// --target. Register accesses are traced at -v 4.
func connectToTarget() (*connection, error) {
	td, err := selectedTarget()
	if err != nil {
		return nil, err
	}

	var c *connection
	switch busName {
	case "usb":
		c, err = connectUSB(td)
	case "serial":
		c, err = connectSerial(td)
	case "devmem":
		c, err = connectDevMem(td)
	case "sim":
		klog.Infof("simulating a nominal %s board", td.Name)
		c = &connection{Bus: physim.New(td, physim.Nominal(td)), Target: td}
	default:
		err = fmt.Errorf("Unknown bus '%s'", busName)
	}
	if err != nil {
		return nil, err
	}

	c.Bus = regio.NewTrace(c.Bus)
	return c, nil
}
