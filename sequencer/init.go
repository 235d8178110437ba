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
	"k8s.io/klog/v2"

	"github.com/barebox/barebox-sub005/regs"
	"github.com/barebox/barebox-sub005/target"
)

// initialize takes the PHY away from the controller and clears the
// status registers.
func (s *Sequencer) initialize() {
	s.phy.Write32(regs.PHYMgrMuxSel, regs.PHYMgrMuxSequencer)
	// Memory clock not stable yet
	s.phy.Write32(regs.PHYMgrResetMemStbl, 0)
	s.phy.Write32(regs.PHYMgrCalStatus, 0)
	s.phy.Write32(regs.PHYMgrCalDebugInfo, 0)
}

func (s *Sequencer) initRegFile() {
	s.rf.Write32(regs.RegFileSignature, regs.RegFileInitSeqSignature)
	for _, r := range []uint32{
		regs.RegFileDebugDataAddr,
		regs.RegFileCurStage,
		regs.RegFileFOM,
		regs.RegFileFailingStage,
		regs.RegFileDebug1,
		regs.RegFileDebug2,
	} {
		s.rf.Write32(r, 0)
	}
}

// setJumpAsReturn makes a mode register sequence return on completion.
func (s *Sequencer) setJumpAsReturn() {
	s.loadCounter(0, 0xff)
	s.loadJump(0, s.def.ROM.Return)
}

func (s *Sequencer) mirrored(rank int) bool {
	return s.def.Memory.AddressMirroring>>uint(rank)&1 != 0
}

// runModeRegisters issues the given sequences to rank, a few clocks
// apart, using the mirrored variants where the rank needs them.
func (s *Sequencer) runModeRegisters(rank int, seqs ...[2]uint32) {
	for i, seq := range seqs {
		if i > 0 {
			s.delayForNMemClocks(4)
		}
		instr := seq[0]
		if s.mirrored(rank) {
			instr = seq[1]
		}
		s.setJumpAsReturn()
		s.runSingleGroup(0, instr)
	}
}

func (s *Sequencer) runInitCounters(counters [3]uint32, instr uint32) {
	for i, c := range counters {
		if s.skip(SkipDelayLoops) {
			c = 0
		}
		s.loadCounter(i, c)
		s.loadJump(i, instr)
	}
	s.runSingleGroup(0, instr)
}

// memInitialize brings the memory out of reset and programs its mode
// registers.
func (s *Sequencer) memInitialize() {
	rom := &s.def.ROM
	m := &s.def.Memory
	cal := &s.def.Calibration

	// Reset and CKE are broadcast to every rank
	s.rw.Write32(regs.RWMgrSetCSAndODTMask, 0)

	s.runInitCounters(cal.TInitCounters, rom.InitResetCKE0)
	s.phy.Write32(regs.PHYMgrResetMemStbl, 1)

	if m.Protocol != target.LPDDR2 {
		s.runInitCounters(cal.TResetCounters, rom.InitResetCKE1)
	}

	// tXPR
	s.delayForNMemClocks(250)

	for r := 0; r < m.Ranks; r++ {
		if s.param.skipRanks[r] {
			continue
		}
		s.setRankAndODTMask(r, odtModeOff)

		switch m.Protocol {
		case target.DDR3:
			s.runModeRegisters(r,
				[2]uint32{rom.MRS2, rom.MRS2Mirr},
				[2]uint32{rom.MRS3, rom.MRS3Mirr},
				[2]uint32{rom.MRS1, rom.MRS1Mirr},
				[2]uint32{rom.MRS0DLLReset, rom.MRS0DLLResetMirr},
			)
			s.setJumpAsReturn()
			s.runSingleGroup(0, rom.ZQCL)
			// tZQinit
			s.delayForNMemClocks(512)

		case target.DDR2:
			s.runSingleGroup(0, rom.PrechargeAll)
			s.runModeRegisters(r,
				[2]uint32{rom.MRS2, rom.MRS2Mirr},
				[2]uint32{rom.MRS3, rom.MRS3Mirr},
				[2]uint32{rom.MRS1, rom.MRS1Mirr},
				[2]uint32{rom.MRS0DLLReset, rom.MRS0DLLResetMirr},
			)
			s.runSingleGroup(0, rom.PrechargeAll)
			s.runSingleGroup(0, rom.RefreshAll)
			s.runSingleGroup(0, rom.RefreshAll)
			s.delayForNMemClocks(200)

		case target.LPDDR2:
			s.setJumpAsReturn()
			s.runSingleGroup(0, rom.ZQCL)
			s.delayForNMemClocks(512)
			s.runModeRegisters(r,
				[2]uint32{rom.MRS1, rom.MRS1},
				[2]uint32{rom.MRS2, rom.MRS2},
				[2]uint32{rom.MRS3, rom.MRS3},
			)
		}
	}
	klog.V(1).Infof("memory initialised (%s, %d ranks)", m.Protocol, m.Ranks)
}

// memHandoff loads the user mode register settings before the controller
// takes over.
func (s *Sequencer) memHandoff() {
	rom := &s.def.ROM
	m := &s.def.Memory

	for r := 0; r < m.Ranks; r++ {
		if s.param.skipRanks[r] {
			continue
		}
		s.setRankAndODTMask(r, odtModeOff)
		s.runSingleGroup(0, rom.PrechargeAll)

		switch m.Protocol {
		case target.LPDDR2:
			s.runModeRegisters(r,
				[2]uint32{rom.MRS1, rom.MRS1},
				[2]uint32{rom.MRS2, rom.MRS2},
				[2]uint32{rom.MRS3, rom.MRS3},
			)
		default:
			s.runModeRegisters(r,
				[2]uint32{rom.MRS2, rom.MRS2Mirr},
				[2]uint32{rom.MRS3, rom.MRS3Mirr},
				[2]uint32{rom.MRS1, rom.MRS1Mirr},
				[2]uint32{rom.MRS0User, rom.MRS0UserMirr},
			)
		}
	}
}

// memPrechargeAndActivate opens rows 0 and 1 of every rank for the test
// bursts.
func (s *Sequencer) memPrechargeAndActivate() {
	rom := &s.def.ROM
	m := &s.def.Memory

	for r := 0; r < m.Ranks; r++ {
		if s.param.skipRanks[r] {
			continue
		}
		s.setRankAndODTMask(r, odtModeOff)
		s.runSingleGroup(0, rom.PrechargeAll)

		s.loadCounter(0, 0x0f)
		s.loadJump(0, rom.Activate0And1Wait1)
		s.loadCounter(1, 0x0f)
		s.loadJump(1, rom.Activate0And1Wait2)
		s.runSingleGroup(0, rom.Activate0And1)
	}
}

// nopCycles returns the NOP cycles the write sequences need between the
// write command and the data for a write latency of wlat memory clocks.
// -1 means the data goes out with the command.
func nopCycles(rate target.Rate, wlat int) int {
	switch rate {
	case target.QuarterRate:
		return (wlat+6)/4 - 1
	case target.HalfRate:
		if wlat&1 != 0 {
			return (wlat-1)/2 - 1
		}
		return wlat/2 - 1
	default:
		return wlat - 2
	}
}

// initialReadLatency is a safely high read latency in controller clocks
// for a read latency of rlat memory clocks.
func initialReadLatency(rate target.Rate, rlat int) int {
	switch rate {
	case target.QuarterRate:
		return (rlat+1)/4 + 8
	case target.HalfRate:
		return (rlat+1)/2 + 8
	default:
		return rlat + 16
	}
}

// memConfig derives the latencies the sequencer works with from the
// memory timing parameters.
func (s *Sequencer) memConfig() {
	wlat := int(s.data.Read32(regs.DataMgrMemTWL) + s.data.Read32(regs.DataMgrMemTAdd))
	// The address and command path is one clock late on DDR3
	if s.def.Memory.Protocol == target.DDR3 {
		wlat++
	}
	rlat := int(s.data.Read32(regs.DataMgrMemTRL))

	s.gbl.rwWLNopCycles = nopCycles(s.def.Rate, wlat)

	maxLat := (1<<s.def.Calibration.MaxLatencyCountWidth)/s.def.AFIRateRatio() - 1
	s.setReadLatency(clamp(initialReadLatency(s.def.Rate, rlat), 0, maxLat))

	s.gbl.currWriteLat = wlat
	if s.def.HardPHY {
		s.phy.Write32(regs.PHYMgrAFIWLat, uint32(wlat-2))
	} else {
		s.phy.Write32(regs.PHYMgrAFIWLat, uint32(wlat-1))
	}

	klog.V(1).Infof("write latency %d, read latency %d, %d write NOP cycles", wlat, s.gbl.currReadLat, s.gbl.rwWLNopCycles)

	s.memPrechargeAndActivate()
}
