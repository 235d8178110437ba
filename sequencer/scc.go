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
	"github.com/barebox/barebox-sub005/regs"
)

// Delay chain settings are staged in the SCC register file of the
// selected shadow register set, marked for loading with the *Ena
// registers and applied together by a write to SCCMgrUpd.
//
// Pin settings are addressed relative to the group selected in
// SCCMgrGroupCounter: DQ pins first, then the DQS pin, then the DM pins.

// Cycles to wait for the memory side DLL to relock.
const dllLockClocks = 4096

func (s *Sequencer) dqsIOIndex() int {
	return s.def.Memory.DQPerWriteDQS
}

func (s *Sequencer) dmIndex(dm int) int {
	return s.def.Memory.DQPerWriteDQS + 1 + dm
}

func (s *Sequencer) setGroupCounter(group int) {
	s.scc.Write32(regs.SCCMgrGroupCounter, uint32(group))
}

// selectShadowRegs directs subsequent SCC accesses to the shadow register
// set of rank and to writeGroup.
func (s *Sequencer) selectShadowRegs(rank, writeGroup int) {
	s.scc.Write32(regs.SCCMgrActiveRank, uint32(rank/s.def.Memory.RanksPerShadowReg))
	s.setGroupCounter(writeGroup)
}

func (s *Sequencer) upd() {
	s.scc.Write32(regs.SCCMgrUpd, 0)
}

func (s *Sequencer) setGroupReg(reg uint32, group, val int) {
	s.scc.Write32(reg+uint32(group)<<2, uint32(val))
}

func (s *Sequencer) groupReg(reg uint32, group int) int {
	return int(s.scc.Read32(reg + uint32(group)<<2))
}

func (s *Sequencer) setPinReg(reg uint32, pin, val int) {
	s.scc.Write32(reg+uint32(pin)<<2, uint32(val))
}

func (s *Sequencer) pinReg(reg uint32, pin int) int {
	return int(s.scc.Read32(reg + uint32(pin)<<2))
}

// Delay chains saturate at their maximum; phases are written as given.

func (s *Sequencer) setDQSInDelay(readGroup, d int) {
	s.setGroupReg(regs.SCCMgrDQSInDelay, readGroup, clamp(d, 0, s.def.IO.DQSInDelayMax))
}

func (s *Sequencer) setDQSEnPhase(readGroup, p int) {
	s.setGroupReg(regs.SCCMgrDQSEnPhase, readGroup, p)
}

func (s *Sequencer) setDQSEnDelay(readGroup, d int) {
	s.setGroupReg(regs.SCCMgrDQSEnDelay, readGroup, clamp(d, 0, s.def.IO.DQSEnDelayMax))
}

func (s *Sequencer) setDQDQSOutPhase(group, p int) {
	s.setGroupReg(regs.SCCMgrDQDQSOutPhase, group, p)
}

func (s *Sequencer) setOCTOut1Delay(writeGroup, d int) {
	s.setGroupReg(regs.SCCMgrOCTOut1Delay, writeGroup, clamp(d, 0, s.def.IO.Out1DelayMax))
}

func (s *Sequencer) setOCTOut2Delay(writeGroup, d int) {
	s.setGroupReg(regs.SCCMgrOCTOut2Delay, writeGroup, clamp(d, 0, s.def.IO.Out2DelayMax))
}

func (s *Sequencer) setInDelay(pin, d int) {
	s.setPinReg(regs.SCCMgrIOInDelay, pin, clamp(d, 0, s.def.IO.InDelayMax))
}

func (s *Sequencer) setOut1Delay(pin, d int) {
	s.setPinReg(regs.SCCMgrIOOut1Delay, pin, clamp(d, 0, s.def.IO.Out1DelayMax))
}

func (s *Sequencer) setOut2Delay(pin, d int) {
	s.setPinReg(regs.SCCMgrIOOut2Delay, pin, clamp(d, 0, s.def.IO.Out2DelayMax))
}

func (s *Sequencer) dqsInDelay(readGroup int) int {
	return s.groupReg(regs.SCCMgrDQSInDelay, readGroup)
}

func (s *Sequencer) dqsEnDelay(readGroup int) int {
	return s.groupReg(regs.SCCMgrDQSEnDelay, readGroup)
}

func (s *Sequencer) inDelay(pin int) int {
	return s.pinReg(regs.SCCMgrIOInDelay, pin)
}

func (s *Sequencer) out1Delay(pin int) int {
	return s.pinReg(regs.SCCMgrIOOut1Delay, pin)
}

func (s *Sequencer) loadDQS(readGroup int) {
	s.scc.Write32(regs.SCCMgrDQSEna, uint32(readGroup))
}

func (s *Sequencer) loadDQSIO() {
	s.scc.Write32(regs.SCCMgrDQSIOEna, 0)
}

func (s *Sequencer) loadDQ(pin int) {
	s.scc.Write32(regs.SCCMgrDQEna, uint32(pin))
}

func (s *Sequencer) loadDM(dm int) {
	s.scc.Write32(regs.SCCMgrDMEna, uint32(dm))
}

func (s *Sequencer) loadDQSForWriteGroup(writeGroup int) {
	n := s.def.Memory.ReadPerWriteDQS()
	for rg := writeGroup * n; rg < (writeGroup+1)*n; rg++ {
		s.loadDQS(rg)
	}
}

func (s *Sequencer) setHHPExtras() {
	// DQS enable full rate path, input delay on the read capture clock
	s.scc.Write32(regs.SCCMgrHHPGlobals, 0x1<<2|0x1<<3)
}

// zeroAll resets the phase and DQS settings of every group in every
// shadow register set.
func (s *Sequencer) zeroAll() {
	m := &s.def.Memory
	io := &s.def.IO

	for r := 0; r < m.Ranks; r += m.RanksPerShadowReg {
		s.selectShadowRegs(r, 0)

		for rg := 0; rg < m.ReadDQSWidth; rg++ {
			s.setDQSEnPhase(rg, 0)
			s.setDQSEnDelay(rg, 0)
			s.setDQSInDelay(rg, io.DQSInReserve)
		}

		for wg := 0; wg < m.WriteDQSWidth; wg++ {
			for rg := wg * m.ReadPerWriteDQS(); rg < (wg+1)*m.ReadPerWriteDQS(); rg++ {
				s.setDQDQSOutPhase(rg, 0)
			}
			s.setOCTOut1Delay(wg, io.DQSOutReserve)
			s.setOCTOut2Delay(wg, 0)
		}

		s.scc.Write32(regs.SCCMgrDQSEna, regs.SCCMgrEnaAllGroups)
		s.upd()
	}
}

// zeroGroup resets the pin delays of writeGroup in every shadow register
// set. With outOnly the input delays are kept.
func (s *Sequencer) zeroGroup(writeGroup int, outOnly bool) {
	m := &s.def.Memory
	io := &s.def.IO

	for r := 0; r < m.Ranks; r += m.RanksPerShadowReg {
		s.selectShadowRegs(r, writeGroup)

		for i := 0; i < m.DQPerWriteDQS; i++ {
			s.setOut1Delay(i, 0)
			s.setOut2Delay(i, io.DQOutReserve)
			if !outOnly {
				s.setInDelay(i, 0)
			}
		}
		s.scc.Write32(regs.SCCMgrDQEna, regs.SCCMgrEnaAllGroups)

		for i := 0; i < m.DMPerWriteGroup(); i++ {
			s.setOut1Delay(s.dmIndex(i), 0)
			s.setOut2Delay(s.dmIndex(i), io.DMOutReserve)
		}
		s.scc.Write32(regs.SCCMgrDMEna, regs.SCCMgrEnaAllGroups)

		if !outOnly {
			s.setInDelay(s.dqsIOIndex(), 0)
		}
		s.setOut1Delay(s.dqsIOIndex(), io.DQSOutReserve)
		s.setOut2Delay(s.dqsIOIndex(), 0)
		s.setOCTOut1Delay(writeGroup, io.DQSOutReserve)
		s.setOCTOut2Delay(writeGroup, 0)
		s.loadDQSForWriteGroup(writeGroup)
		s.loadDQSIO()

		s.upd()
	}
}

// applyGroupDQInDelay sets the input delay of the DQ pins of the read
// group starting at pin testBgn.
func (s *Sequencer) applyGroupDQInDelay(testBgn, d int) {
	for i := 0; i < s.def.Memory.DQPerReadDQS; i++ {
		s.setInDelay(testBgn+i, d)
		s.loadDQ(testBgn + i)
	}
}

func (s *Sequencer) applyGroupDQOut1Delay(d int) {
	for i := 0; i < s.def.Memory.DQPerWriteDQS; i++ {
		s.setOut1Delay(i, d)
		s.loadDQ(i)
	}
}

func (s *Sequencer) applyGroupDMOut1Delay(d int) {
	for i := 0; i < s.def.Memory.DMPerWriteGroup(); i++ {
		s.setOut1Delay(s.dmIndex(i), d)
		s.loadDM(i)
	}
}

func (s *Sequencer) applyGroupDQSIOAndOCTOut1(writeGroup, d int) {
	s.setOut1Delay(s.dqsIOIndex(), d)
	s.loadDQSIO()
	s.setOCTOut1Delay(writeGroup, d)
	s.loadDQSForWriteGroup(writeGroup)
}

// applyGroupAllOutDelay sets every output delay of writeGroup to d.
func (s *Sequencer) applyGroupAllOutDelay(writeGroup, d int) {
	s.applyGroupDQOut1Delay(d)
	s.applyGroupDMOut1Delay(d)
	s.applyGroupDQSIOAndOCTOut1(writeGroup, d)
}

// applyGroupAllOutDelayAdd adds d to every output delay of writeGroup.
func (s *Sequencer) applyGroupAllOutDelayAdd(writeGroup, d int) {
	m := &s.def.Memory

	for i := 0; i < m.DQPerWriteDQS; i++ {
		s.setOut1Delay(i, s.out1Delay(i)+d)
		s.loadDQ(i)
	}

	for i := 0; i < m.DMPerWriteGroup(); i++ {
		s.setOut1Delay(s.dmIndex(i), s.out1Delay(s.dmIndex(i))+d)
		s.loadDM(i)
	}

	dqs := s.out1Delay(s.dqsIOIndex()) + d
	s.setOut1Delay(s.dqsIOIndex(), dqs)
	s.loadDQSIO()
	s.setOCTOut1Delay(writeGroup, dqs)
	s.loadDQSForWriteGroup(writeGroup)
}

func (s *Sequencer) applyGroupAllOutDelayAllRanks(writeGroup, d int) {
	m := &s.def.Memory
	for r := 0; r < m.Ranks; r += m.RanksPerShadowReg {
		s.selectShadowRegs(r, writeGroup)
		s.applyGroupAllOutDelay(writeGroup, d)
		s.upd()
	}
}

func (s *Sequencer) applyGroupAllOutDelayAddAllRanks(writeGroup, d int) {
	m := &s.def.Memory
	for r := 0; r < m.Ranks; r += m.RanksPerShadowReg {
		s.selectShadowRegs(r, writeGroup)
		s.applyGroupAllOutDelayAdd(writeGroup, d)
		s.upd()
	}
}

// setGroupDQSIOAndOCTOut1Gradual walks the DQS output delay to d one tap
// at a time so the memory DLL stays locked.
func (s *Sequencer) setGroupDQSIOAndOCTOut1Gradual(writeGroup, d int) {
	cur := s.out1Delay(s.dqsIOIndex())
	d = clamp(d, 0, s.def.IO.Out1DelayMax)

	for cur != d {
		if cur > d {
			cur--
		} else {
			cur++
		}
		s.applyGroupDQSIOAndOCTOut1(writeGroup, cur)
		s.upd()
		if s.def.IO.RelockOnDQSOutChange {
			s.delayForNMemClocks(dllLockClocks)
		}
	}
}

func (s *Sequencer) setDQSEnPhaseAllRanks(readGroup, p int) {
	m := &s.def.Memory
	for r := 0; r < m.Ranks; r += m.RanksPerShadowReg {
		s.selectShadowRegs(r, s.writeGroupOf(readGroup))
		s.setDQSEnPhase(readGroup, p)
		s.loadDQS(readGroup)
		s.upd()
	}
}

func (s *Sequencer) setDQSEnDelayAllRanks(readGroup, d int) {
	m := &s.def.Memory
	for r := 0; r < m.Ranks; r += m.RanksPerShadowReg {
		s.selectShadowRegs(r, s.writeGroupOf(readGroup))
		s.setDQSEnDelay(readGroup, d)
		s.loadDQS(readGroup)
		s.upd()
	}
}

func (s *Sequencer) setDQDQSOutPhaseAllRanks(group, p int) {
	m := &s.def.Memory
	for r := 0; r < m.Ranks; r += m.RanksPerShadowReg {
		s.selectShadowRegs(r, s.writeGroupOf(group))
		s.setDQDQSOutPhase(group, p)
		s.loadDQS(group)
		s.upd()
	}
}
