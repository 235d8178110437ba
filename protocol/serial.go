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
	"time"

	"go.bug.st/serial"
	"k8s.io/klog/v2"
)

// DefaultBaud is the rate of the bridge firmware's UART.
const DefaultBaud = 115200

const serialTimeout = time.Second

// OpenSerial opens a register bridge on a serial port.
func OpenSerial(name string, baud int) (*Device, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(serialTimeout); err != nil {
		port.Close()
		return nil, err
	}

	// Drop anything the bridge sent before we opened the port
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, err
	}

	klog.V(1).Infof("bridge at serial:%s, %d baud", name, baud)
	return newDevice("serial:"+name, NewBridgeFramer(), port), nil
}

// SerialPorts lists the serial ports of the host.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
