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

package physim

import (
	"github.com/barebox/barebox-sub005/regs"
)

var groupRegs = []uint32{
	regs.SCCMgrDQSInDelay,
	regs.SCCMgrDQSEnPhase,
	regs.SCCMgrDQSEnDelay,
	regs.SCCMgrDQDQSOutPhase,
	regs.SCCMgrOCTOut1Delay,
	regs.SCCMgrOCTOut2Delay,
}

var pinRegs = []uint32{
	regs.SCCMgrIOOut1Delay,
	regs.SCCMgrIOOut2Delay,
	regs.SCCMgrIOInDelay,
}

func (p *PHY) sccKeyFor(off uint32) (sccKey, bool) {
	for _, r := range groupRegs {
		if off >= r && off < r+regs.SCCMgrDelayChainSpan {
			return sccKey{shadow: p.activeShadow, reg: r, group: int(off-r) / 4, pin: -1}, true
		}
	}
	for _, r := range pinRegs {
		if off >= r && off < r+regs.SCCMgrDelayChainSpan {
			return sccKey{shadow: p.activeShadow, reg: r, group: p.groupCounter, pin: int(off-r) / 4}, true
		}
	}
	return sccKey{}, false
}

func (p *PHY) markGroup(rg int) {
	wg := rg / p.def.Memory.ReadPerWriteDQS()
	for _, r := range groupRegs {
		g := rg
		if r == regs.SCCMgrOCTOut1Delay || r == regs.SCCMgrOCTOut2Delay {
			g = wg
		}
		p.pending[sccKey{shadow: p.activeShadow, reg: r, group: g, pin: -1}] = true
	}
}

func (p *PHY) markPin(pin int) {
	for _, r := range pinRegs {
		p.pending[sccKey{shadow: p.activeShadow, reg: r, group: p.groupCounter, pin: pin}] = true
	}
}

func (p *PHY) writeSCC(off, val uint32) {
	m := &p.def.Memory

	switch off {
	case regs.SCCMgrGroupCounter:
		p.groupCounter = int(val)

	case regs.SCCMgrActiveRank:
		p.activeShadow = int(val)

	case regs.SCCMgrDQSEna:
		if val == regs.SCCMgrEnaAllGroups {
			for rg := 0; rg < m.ReadDQSWidth; rg++ {
				p.markGroup(rg)
			}
		} else {
			p.markGroup(int(val))
		}

	case regs.SCCMgrDQSIOEna:
		p.markPin(m.DQPerWriteDQS)

	case regs.SCCMgrDQEna:
		if val == regs.SCCMgrEnaAllGroups {
			for i := 0; i < m.DQPerWriteDQS; i++ {
				p.markPin(i)
			}
		} else {
			p.markPin(int(val))
		}

	case regs.SCCMgrDMEna:
		if val == regs.SCCMgrEnaAllGroups {
			for i := 0; i < m.DMPerWriteGroup(); i++ {
				p.markPin(m.DQPerWriteDQS + 1 + i)
			}
		} else {
			p.markPin(m.DQPerWriteDQS + 1 + int(val))
		}

	case regs.SCCMgrUpd:
		for k := range p.pending {
			p.live[k] = p.staged[k]
		}
		p.pending = make(map[sccKey]bool)
		p.updates++

	default:
		if k, ok := p.sccKeyFor(off); ok {
			p.staged[k] = int(val)
		}
	}
}

// Live returns the setting in effect for a group register (pin -1) or a
// pin register of write group group.
func (p *PHY) Live(shadow int, reg uint32, group, pin int) int {
	return p.live[sccKey{shadow: shadow, reg: reg, group: group, pin: pin}]
}

// Staged returns a setting written but possibly not yet committed.
func (p *PHY) Staged(shadow int, reg uint32, group, pin int) int {
	return p.staged[sccKey{shadow: shadow, reg: reg, group: group, pin: pin}]
}

// Updates counts the commits through SCCMgrUpd.
func (p *PHY) Updates() int {
	return p.updates
}
