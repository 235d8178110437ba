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
	"github.com/barebox/barebox-sub005/target"
)

func (s *Sequencer) loadCounter(n int, v uint32) {
	s.rw.Write32(regs.RWMgrLoadCntr0+uint32(n)*4, v)
}

func (s *Sequencer) loadJump(n int, addr uint32) {
	s.rw.Write32(regs.RWMgrLoadJumpAdd0+uint32(n)*4, addr)
}

func (s *Sequencer) runSingleGroup(idx int, instr uint32) {
	s.rw.Write32(regs.RWMgrRunSingleGroup+uint32(idx)<<2, instr)
}

func (s *Sequencer) runAllGroups(instr uint32) {
	s.rw.Write32(regs.RWMgrRunAllGroups, instr)
}

func (s *Sequencer) resetReadDatapath() {
	s.rw.Write32(regs.RWMgrResetReadDatapath, 0)
}

// errorMask returns the failing bits of the last burst.
func (s *Sequencer) errorMask() uint64 {
	return uint64(s.rw.Read32(regs.RWMgrErrorMask))
}

func (s *Sequencer) fifoReset() {
	s.phy.Write32(regs.PHYMgrCmdFIFOReset, 0)
}

func (s *Sequencer) setReadLatency(lat int) {
	s.gbl.currReadLat = lat
	s.phy.Write32(regs.PHYMgrPhyRLat, uint32(lat))
}

// idleLoop is a wait expressed in micro-sequencer loop counters.
//
// A loop whose counter holds n runs n+1 times. Every count below is
// already reduced by one; nothing else may subtract it again.
type idleLoop struct {
	// Fits the single counter loop
	single bool

	inner uint32
	outer uint32

	// Number of times the two level loop is issued
	repeats int
}

func planIdleLoop(afiClocks int) idleLoop {
	switch {
	case afiClocks <= 0:
		return idleLoop{}
	case afiClocks <= 0x100:
		return idleLoop{single: true, inner: uint32(afiClocks - 1), repeats: 1}
	case afiClocks <= 0x10000:
		return idleLoop{inner: 0xff, outer: uint32((afiClocks - 1) >> 8), repeats: 1}
	default:
		return idleLoop{inner: 0xff, outer: 0xff, repeats: (afiClocks-1)>>16 + 1}
	}
}

// delayForNMemClocks busy waits for at least clocks memory clocks.
func (s *Sequencer) delayForNMemClocks(clocks int) {
	ratio := s.def.AFIRateRatio()
	l := planIdleLoop((clocks + ratio - 1) / ratio)
	rom := &s.def.ROM
	if l.repeats == 0 {
		return
	}
	if s.skip(SkipDelayLoops) {
		l.inner, l.outer, l.repeats = 0, 0, 1
	}

	switch {
	case l.single:
		s.loadCounter(1, l.inner)
		s.loadJump(1, rom.IdleLoop1)
		s.runSingleGroup(0, rom.IdleLoop1)

	default:
		s.loadCounter(0, l.inner)
		s.loadCounter(1, l.outer)
		s.loadJump(0, rom.IdleLoop2)
		s.loadJump(1, rom.IdleLoop2)
		for i := 0; i < l.repeats; i++ {
			s.runSingleGroup(0, rom.IdleLoop2)
		}
	}
}

// rankEnd returns the first rank past the ranks covered by a test starting
// at rankBgn.
func (s *Sequencer) rankEnd(rankBgn int, allRanks bool) int {
	if allRanks {
		return s.def.Memory.Ranks
	}
	return rankBgn + s.def.Memory.RanksPerShadowReg
}

func passed(bitChk, correct uint64, allCorrect bool) bool {
	if allCorrect {
		return bitChk == correct
	}
	return bitChk != 0
}

// readTest reads back the patterns in memory. Bit i of the returned mask
// is set if DQ pin i of the group read correctly on every tested rank.
func (s *Sequencer) readTest(rankBgn, group int, allCorrect, allGroups, allRanks bool) (bool, uint64) {
	m := &s.def.Memory
	rom := &s.def.ROM
	vgs := m.VirtualGroupsPerReadDQS
	bitsPerVG := uint(m.DQPerReadDQS / vgs)

	bitChk := s.param.readCorrectMask
	for r := rankBgn; r < s.rankEnd(rankBgn, allRanks); r++ {
		if s.param.skipRanks[r] {
			continue
		}

		s.setRankAndODTMask(r, odtModeReadWrite)

		s.loadCounter(1, 0x10)
		s.loadJump(1, rom.ReadB2BWait1)
		s.loadCounter(2, 0x10)
		s.loadJump(2, rom.ReadB2BWait2)

		var tmp uint64
		for vg := vgs - 1; vg >= 0; vg-- {
			s.fifoReset()
			s.resetReadDatapath()
			tmp <<= bitsPerVG

			switch {
			case allGroups:
				s.loadCounter(0, 0x06)
			case s.opts.QuickRead:
				s.loadCounter(0, 0x01)
			default:
				s.loadCounter(0, 0x32)
			}
			s.loadJump(0, rom.ReadB2B)

			if allGroups {
				s.loadCounter(3, uint32(m.ReadDQSWidth*vgs-1))
				s.runAllGroups(rom.ReadB2B)
			} else {
				s.loadCounter(3, 0)
				s.runSingleGroup(group*vgs+vg, rom.ReadB2B)
			}

			tmp |= s.param.readCorrectMaskVG &^ s.errorMask()
		}
		bitChk &= tmp
	}

	s.runSingleGroup(group, rom.ClearDQSEnable)
	s.setRankAndODTMask(0, odtModeOff)

	return passed(bitChk, s.param.readCorrectMask, allCorrect), bitChk
}

func (s *Sequencer) readTestAllRanks(group int, allCorrect bool) (bool, uint64) {
	return s.readTest(0, group, allCorrect, false, true)
}

// writeTestIssue runs one write-then-read burst on a virtual group. The
// jump set up depends on the NOP cycles between the write command and
// the data.
func (s *Sequencer) writeTestIssue(idx int, useDM bool) {
	seq := &s.def.ROM.LFSRWrRd
	if useDM {
		seq = &s.def.ROM.LFSRWrRdDM
	}

	var instr uint32
	switch nop := s.gbl.rwWLNopCycles; {
	case nop == -1:
		// DQS goes out with the command; jump straight to the data
		s.loadCounter(2, 0xff)
		s.loadJump(2, seq.Data)
		s.loadJump(3, seq.NOP)
		instr = seq.WL1

	case nop == 0:
		// No NOPs; jump over them to the DQS enable
		s.loadCounter(2, 0xff)
		s.loadJump(2, seq.DQS)
		instr = seq.DQS

	default:
		s.loadCounter(2, 0)
		s.loadJump(2, 0)
		s.loadCounter(3, uint32(nop-1))
		s.loadJump(3, seq.NOP)
		instr = seq.Bank0
	}

	s.resetReadDatapath()

	if s.opts.QuickWrite {
		s.loadCounter(0, 0x08)
	} else {
		s.loadCounter(0, 0x40)
	}
	s.loadJump(0, instr)

	// Let the read data come back
	s.loadCounter(1, 0x30)
	s.loadJump(1, seq.Wait)

	s.runSingleGroup(idx, instr)
}

// writeTest writes and reads back pseudo random data on writeGroup.
func (s *Sequencer) writeTest(rankBgn, writeGroup int, useDM, allCorrect, allRanks bool) (bool, uint64) {
	m := &s.def.Memory
	vgs := m.VirtualGroupsPerWriteDQS
	bitsPerVG := uint(m.DQPerWriteDQS / vgs)

	bitChk := s.param.writeCorrectMask
	for r := rankBgn; r < s.rankEnd(rankBgn, allRanks); r++ {
		if s.param.skipRanks[r] {
			continue
		}

		s.setRankAndODTMask(r, odtModeReadWrite)

		var tmp uint64
		for vg := vgs - 1; vg >= 0; vg-- {
			s.fifoReset()
			tmp <<= bitsPerVG
			s.writeTestIssue(writeGroup*vgs+vg, useDM)
			tmp |= s.param.writeCorrectMaskVG &^ s.errorMask()
		}
		bitChk &= tmp
	}

	s.setRankAndODTMask(0, odtModeOff)

	return passed(bitChk, s.param.writeCorrectMask, allCorrect), bitChk
}

func (s *Sequencer) writeTestAllRanks(writeGroup int, useDM, allCorrect bool) (bool, uint64) {
	return s.writeTest(0, writeGroup, useDM, allCorrect, true)
}

// loadReadPatterns writes the guaranteed read patterns to every selected
// rank.
func (s *Sequencer) loadReadPatterns(rankBgn int, allRanks bool) {
	rom := &s.def.ROM

	for r := rankBgn; r < s.rankEnd(rankBgn, allRanks); r++ {
		if s.param.skipRanks[r] {
			continue
		}

		s.setRankAndODTMask(r, odtModeOff)

		s.loadCounter(0, 0x20)
		s.loadJump(0, rom.GuaranteedWriteWait[0])
		s.loadCounter(1, 0x20)
		s.loadJump(1, rom.GuaranteedWriteWait[1])
		s.loadCounter(2, 0x04)
		s.loadJump(2, rom.GuaranteedWriteWait[2])
		s.loadCounter(3, 0x04)
		s.loadJump(3, rom.GuaranteedWriteWait[3])

		s.runSingleGroup(0, rom.GuaranteedWrite)
	}

	s.setRankAndODTMask(0, odtModeOff)
}

// readTestPatterns reads back the guaranteed patterns. It needs every bit
// of the group to pass.
func (s *Sequencer) readTestPatterns(rankBgn, group int, allRanks bool) (bool, uint64) {
	m := &s.def.Memory
	rom := &s.def.ROM
	vgs := m.VirtualGroupsPerReadDQS
	bitsPerVG := uint(m.DQPerReadDQS / vgs)

	bitChk := s.param.readCorrectMask
	for r := rankBgn; r < s.rankEnd(rankBgn, allRanks); r++ {
		if s.param.skipRanks[r] {
			continue
		}

		s.setRankAndODTMask(r, odtModeReadWrite)

		s.loadCounter(0, 0x20)
		s.loadJump(0, rom.GuaranteedRead)
		s.loadCounter(1, 0x20)
		s.loadJump(1, rom.GuaranteedReadCont)

		var tmp uint64
		for vg := vgs - 1; vg >= 0; vg-- {
			s.fifoReset()
			s.resetReadDatapath()
			tmp <<= bitsPerVG
			s.runSingleGroup(group*vgs+vg, rom.GuaranteedRead)
			tmp |= s.param.readCorrectMaskVG &^ s.errorMask()
		}
		bitChk &= tmp
	}

	s.runSingleGroup(group, rom.ClearDQSEnable)
	s.setRankAndODTMask(0, odtModeOff)

	return bitChk == s.param.readCorrectMask, bitChk
}

// readTestPatternsAllRanks checks the guaranteed read at DQS enable phase
// zero, then at every other phase: a phase that cuts the burst at a DQS
// edge fails even on a sound read path.
func (s *Sequencer) readTestPatternsAllRanks(group int) bool {
	s.setDQSEnPhaseAllRanks(group, 0)
	if ok, _ := s.readTestPatterns(0, group, true); ok {
		return true
	}

	for p := 1; p <= s.def.IO.DQSEnPhaseMax; p++ {
		s.setDQSEnPhaseAllRanks(group, p)
		if ok, _ := s.readTestPatterns(0, group, true); ok {
			return true
		}
	}
	return false
}

// incrVFIFO advances the VFIFO pointer of group. v counts the increments
// issued; soft PHYs use it to pick the half or quarter rate command.
func (s *Sequencer) incrVFIFO(group int, v *int) {
	reg := uint32(regs.PHYMgrCmdIncVFIFOFR)

	switch {
	case s.def.HardPHY:
		reg = regs.PHYMgrCmdIncVFIFOHardPHY
	case s.def.Rate == target.QuarterRate && *v&3 == 3:
		reg = regs.PHYMgrCmdIncVFIFOQR
	case s.def.Rate != target.FullRate && *v&1 == 1:
		reg = regs.PHYMgrCmdIncVFIFOFRHR
	}

	s.phy.Write32(reg, uint32(group))
	*v++
}

// decrVFIFO moves the pointer back one position by going round the ring.
func (s *Sequencer) decrVFIFO(group int, v *int) {
	for i := 0; i < s.def.IO.VFIFOSize-1; i++ {
		s.incrVFIFO(group, v)
	}
}
