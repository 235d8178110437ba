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

package sequencer

import (
	"errors"
	"fmt"

	"github.com/barebox/barebox-sub005/regio"
	"github.com/barebox/barebox-sub005/regs"
	"github.com/barebox/barebox-sub005/target"
)

var ErrROMTooLarge = errors.New("ROM image too large")

// LoadROM writes the instruction and address/command ROM images into the
// read/write manager. It must run before Calibrate.
func LoadROM(bus regio.Bus, def *target.Definition, inst, ac []uint32) error {
	if len(inst) > regs.RWMgrInstROMWords {
		return fmt.Errorf("%w: %d instruction words, at most %d", ErrROMTooLarge, len(inst), regs.RWMgrInstROMWords)
	}
	if len(ac) > regs.RWMgrACROMWords {
		return fmt.Errorf("%w: %d AC words, at most %d", ErrROMTooLarge, len(ac), regs.RWMgrACROMWords)
	}

	base := def.Layout.RWMgr
	if err := regio.WriteBlock(bus, base+regs.RWMgrInstROMWrite, inst); err != nil {
		return fmt.Errorf("writing instruction ROM: %w", err)
	}
	if err := regio.WriteBlock(bus, base+regs.RWMgrACROMWrite, ac); err != nil {
		return fmt.Errorf("writing AC ROM: %w", err)
	}
	return nil
}

// ReadROM reads both ROM windows back.
func ReadROM(bus regio.Bus, def *target.Definition) (inst, ac []uint32, err error) {
	base := def.Layout.RWMgr

	inst = make([]uint32, regs.RWMgrInstROMWords)
	for i := range inst {
		inst[i] = bus.Read32(base + regs.RWMgrInstROMWrite + uint32(i)*4)
	}
	ac = make([]uint32, regs.RWMgrACROMWords)
	for i := range ac {
		ac[i] = bus.Read32(base + regs.RWMgrACROMWrite + uint32(i)*4)
	}
	return inst, ac, regio.Err(bus)
}
