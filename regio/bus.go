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

// Package regio provides access to the sequencer register space.
package regio

// Bus is a 32-bit register bus.
//
// Register accessors do not return errors; the sequencer issues thousands
// of them per calibration and a transport that can fail records the first
// failure and reports it through Err.
type Bus interface {
	Read32(addr uint32) uint32
	Write32(addr, val uint32)
}

// ErrorReporter is implemented by buses which can fail.
type ErrorReporter interface {
	Err() error
}

// BlockWriter is implemented by buses which can write a run of
// consecutive words more efficiently than word by word.
type BlockWriter interface {
	WriteBlock(addr uint32, words []uint32) error
}

// Err returns the sticky error of b, if it has one.
func Err(b Bus) error {
	if er, ok := b.(ErrorReporter); ok {
		return er.Err()
	}
	return nil
}

// WriteBlock writes words to consecutive word addresses starting at addr.
func WriteBlock(b Bus, addr uint32, words []uint32) error {
	if bw, ok := b.(BlockWriter); ok {
		return bw.WriteBlock(addr, words)
	}

	for i, w := range words {
		b.Write32(addr+uint32(i)*4, w)
	}
	return Err(b)
}

// Window is a Bus relative to a base address.
type Window struct {
	Bus  Bus
	Base uint32
}

func (w Window) Read32(off uint32) uint32 {
	return w.Bus.Read32(w.Base + off)
}

func (w Window) Write32(off, val uint32) {
	w.Bus.Write32(w.Base+off, val)
}
