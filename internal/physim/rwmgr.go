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

func (p *PHY) writeRW(off, val uint32) {
	switch {
	case off < regs.RWMgrRunAllGroups:
		p.run(int(off/4), val, false)
	case off == regs.RWMgrRunAllGroups:
		p.run(0, val, true)
	case off == regs.RWMgrSetCSAndODTMask:
		p.csMask = val & 0xff
	}
}

// Runs counts how often instr was started.
func (p *PHY) Runs(instr uint32) int {
	return p.runs[instr]
}

// PatternsLoaded reports whether the guaranteed read patterns were
// written to rank.
func (p *PHY) PatternsLoaded(rank int) bool {
	return p.patterns[rank]
}

// selectedRanks returns the ranks whose chip select is asserted.
func (p *PHY) selectedRanks() []int {
	var rs []int
	for r := 0; r < p.def.Memory.Ranks; r++ {
		if p.csMask&(1<<uint(r)) == 0 {
			rs = append(rs, r)
		}
	}
	return rs
}

func (p *PHY) writeSequence(instr uint32) (useDM, ok bool) {
	rom := &p.def.ROM
	for _, seq := range []struct {
		s  regs.LFSRSequence
		dm bool
	}{{rom.LFSRWrRd, false}, {rom.LFSRWrRdDM, true}} {
		if instr == seq.s.WL1 || instr == seq.s.DQS || instr == seq.s.Bank0 {
			return seq.dm, true
		}
	}
	return false, false
}

func (p *PHY) run(idx int, instr uint32, all bool) {
	rom := &p.def.ROM
	m := &p.def.Memory
	p.runs[instr]++

	switch instr {
	case rom.GuaranteedWrite:
		for _, r := range p.selectedRanks() {
			p.patterns[r] = true
		}
		return

	case rom.GuaranteedRead:
		p.lastErr = p.forRanks(func(r int) uint32 { return p.guaranteedErr(r, idx) })
		return

	case rom.ReadB2B:
		if !all {
			p.lastErr = p.forRanks(func(r int) uint32 { return p.readErr(r, idx) })
			return
		}
		p.lastErr = p.forRanks(func(r int) uint32 {
			var e uint32
			for i := 0; i < m.ReadDQSWidth*m.VirtualGroupsPerReadDQS; i++ {
				e |= p.readErr(r, i)
			}
			return e
		})
		return
	}

	if useDM, ok := p.writeSequence(instr); ok {
		p.lastErr = p.forRanks(func(r int) uint32 { return p.writeErr(r, idx, useDM) })
	}
}

// forRanks ORs the errors of every selected rank.
func (p *PHY) forRanks(f func(rank int) uint32) uint32 {
	rs := p.selectedRanks()
	if len(rs) == 0 {
		return 0xffffffff
	}
	var e uint32
	for _, r := range rs {
		e |= f(r)
	}
	return e
}

func (p *PHY) shadowOf(rank int) int {
	return rank / p.def.Memory.RanksPerShadowReg
}

func (p *PHY) enableOK(rank, rg int) bool {
	io := &p.def.IO
	sh := p.shadowOf(rank)

	cycle := (io.DQSEnPhaseMax + 1) * io.DelayPerOPATap
	ring := io.VFIFOSize * cycle
	pos := p.vfifo[rg]*cycle +
		p.Live(sh, regs.SCCMgrDQSEnPhase, rg, -1)*io.DelayPerOPATap +
		p.Live(sh, regs.SCCMgrDQSEnDelay, rg, -1)*io.DelayPerDQSEnDChainTap
	pos %= ring

	for _, w := range p.model.Enable[rg] {
		if w.Contains(pos) || w.Contains(pos+ring) {
			return true
		}
	}
	return false
}

// readPathOK reports whether bit of readGroup comes back intact,
// whatever was written.
func (p *PHY) readPathOK(rank, rg, bit int) bool {
	m := &p.def.Memory
	sh := p.shadowOf(rank)

	if p.rlat < p.model.MinReadLatency || !p.enableOK(rank, rg) {
		return false
	}

	wg := rg / m.ReadPerWriteDQS()
	pin := rg%m.ReadPerWriteDQS()*m.DQPerReadDQS + bit
	s := p.Live(sh, regs.SCCMgrDQSInDelay, rg, -1) - p.Live(sh, regs.SCCMgrIOInDelay, wg, pin)
	return p.model.ReadEye[rg][bit].Contains(s)
}

func (p *PHY) readErr(rank, idx int) uint32 {
	m := &p.def.Memory
	vgs := m.VirtualGroupsPerReadDQS
	bpv := m.DQPerReadDQS / vgs
	rg, vg := idx/vgs, idx%vgs
	if rg >= m.ReadDQSWidth || !p.patterns[rank] {
		return 1<<uint(bpv) - 1
	}

	var e uint32
	for b := 0; b < bpv; b++ {
		if !p.readPathOK(rank, rg, vg*bpv+b) {
			e |= 1 << uint(b)
		}
	}
	return e
}

func (p *PHY) guaranteedErr(rank, idx int) uint32 {
	m := &p.def.Memory
	vgs := m.VirtualGroupsPerReadDQS
	bpv := m.DQPerReadDQS / vgs
	all := uint32(1)<<uint(bpv) - 1
	rg := idx / vgs
	if rg >= m.ReadDQSWidth || !p.patterns[rank] {
		return all
	}

	sh := p.shadowOf(rank)
	if mask := p.model.GuaranteedReadPhases; mask != 0 {
		phase := p.Live(sh, regs.SCCMgrDQDQSOutPhase, rg, -1)
		if mask&(1<<uint(phase)) == 0 {
			return all
		}
	}
	if mask := p.model.GuaranteedReadEnPhases; mask != 0 {
		phase := p.Live(sh, regs.SCCMgrDQSEnPhase, rg, -1)
		if mask&(1<<uint(phase)) == 0 {
			return all
		}
	}
	return 0
}

func (p *PHY) writeBitOK(rank, wg, bit int, useDM bool) bool {
	m := &p.def.Memory
	io := &p.def.IO
	sh := p.shadowOf(rank)

	dqs := p.Live(sh, regs.SCCMgrIOOut1Delay, wg, m.DQPerWriteDQS)
	dq := p.Live(sh, regs.SCCMgrIOOut1Delay, wg, bit)
	if !p.model.WriteEye[wg][bit].Contains(dqs - dq) {
		return false
	}

	rpw := m.ReadPerWriteDQS()
	if p.model.WriteLevel != nil {
		pos := p.Live(sh, regs.SCCMgrDQDQSOutPhase, wg*rpw, -1)*io.DelayPerOPATap + dqs*io.DelayPerDChainTap
		if !p.model.WriteLevel[wg].Contains(pos) {
			return false
		}
	}

	if useDM {
		dm := p.Live(sh, regs.SCCMgrIOOut1Delay, wg, m.DQPerWriteDQS+1)
		if !p.model.DMEye[wg].Contains(dqs - dm) {
			return false
		}
	}

	return p.readPathOK(rank, wg*rpw+bit/m.DQPerReadDQS, bit%m.DQPerReadDQS)
}

func (p *PHY) writeErr(rank, idx int, useDM bool) uint32 {
	m := &p.def.Memory
	vgs := m.VirtualGroupsPerWriteDQS
	bpv := m.DQPerWriteDQS / vgs
	wg, vg := idx/vgs, idx%vgs
	if wg >= m.WriteDQSWidth {
		return 1<<uint(bpv) - 1
	}

	var e uint32
	for b := 0; b < bpv; b++ {
		if !p.writeBitOK(rank, wg, vg*bpv+b, useDM) {
			e |= 1 << uint(b)
		}
	}
	return e
}
