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
)

// splitDelay converts a delay in picoseconds into the largest phase not
// exceeding it, capped at phaseMax, plus the fewest delay taps reaching
// the remainder.
func splitDelay(delay, phaseStep, phaseMax, tapStep, tapMax int) (p, d int) {
	p = clamp(delay/phaseStep, 0, phaseMax)
	rem := delay - p*phaseStep
	d = clamp((rem+tapStep-1)/tapStep, 0, tapMax)
	return p, d
}

// enablePointer walks the DQS enable phase of one read group, carrying
// into and borrowing from the VFIFO pointer.
type enablePointer struct {
	s     *Sequencer
	group int
	p     int
	v     int
}

func (e *enablePointer) set() {
	e.s.setDQSEnPhaseAllRanks(e.group, e.p)
}

func (e *enablePointer) next() {
	e.p++
	if e.p > e.s.def.IO.DQSEnPhaseMax {
		e.p = 0
		e.s.incrVFIFO(e.group, &e.v)
	}
}

func (e *enablePointer) prev() {
	if e.p == 0 {
		e.p = e.s.def.IO.DQSEnPhaseMax
		e.s.decrVFIFO(e.group, &e.v)
	} else {
		e.p--
	}
}

func (s *Sequencer) enableReadPasses(group int) bool {
	ok, _ := s.readTestAllRanks(group, false)
	return ok
}

// findDQSEnPhase searches the DQS enable window of readGroup in VFIFO
// position, phase and delay taps, then centres the enable in it.
//
// Positions are picoseconds from the VFIFO position reached after the
// first failing reads.
func (s *Sequencer) findDQSEnPhase(group int) bool {
	io := &s.def.IO
	opa := io.DelayPerOPATap
	tap := io.DelayPerDQSEnDChainTap
	cycle := (io.DQSEnPhaseMax + 1) * opa

	s.setDQSEnDelayAllRanks(group, 0)
	s.setDQSEnPhaseAllRanks(group, 0)

	dtapsPerPtap := s.staticDTapsPerPTap()
	ep := &enablePointer{s: s, group: group}

	// Move to a position where reads fail twice running, so that the
	// window search below starts outside the window.
	fails := 0
	for ep.v < io.VFIFOSize {
		if s.enableReadPasses(group) {
			fails = 0
		} else if fails++; fails == 2 {
			break
		}
		s.incrVFIFO(group, &ep.v)
	}
	if ep.v >= io.VFIFOSize {
		klog.V(2).Infof("group %d: reads never fail twice in %d VFIFO positions", group, io.VFIFOSize)
		return false
	}

	// Left edge: phases within VFIFO positions within delay taps
	found := false
	var d, i, workBgn int
	for d = 0; d <= dtapsPerPtap && !found; d++ {
		s.setDQSEnDelayAllRanks(group, d)
		for i = 0; i < io.VFIFOSize && !found; i++ {
			for ep.p = 0; ep.p <= io.DQSEnPhaseMax; ep.p++ {
				ep.set()
				if s.enableReadPasses(group) {
					found = true
					break
				}
			}
			if !found {
				s.incrVFIFO(group, &ep.v)
			}
		}
	}
	if !found {
		klog.V(2).Infof("group %d: no working DQS enable phase", group)
		return false
	}
	d--
	i--
	workBgn = i*cycle + ep.p*opa + d*tap
	workEnd := workBgn
	klog.V(2).Infof("group %d: first working enable at vfifo %d phase %d delay %d", group, i, ep.p, d)

	if d == 0 {
		// The window spans at least a phase tap. Refine the left edge
		// with delay taps one phase earlier.
		ep.prev()
		ep.set()
		tmp := workBgn - opa
		for dd := 0; dd <= io.DQSEnDelayMax && tmp < workBgn; dd, tmp = dd+1, tmp+tap {
			s.setDQSEnDelayAllRanks(group, dd)
			if s.enableReadPasses(group) {
				workBgn = tmp
				break
			}
		}
		ep.next()
		s.setDQSEnDelayAllRanks(group, 0)

		// Right edge in phase taps
		ep.next()
		workEnd += opa
		found = false
		for ; i < io.VFIFOSize+1 && !found; i++ {
			for ; ep.p <= io.DQSEnPhaseMax; ep.p++ {
				ep.set()
				if !s.enableReadPasses(group) {
					found = true
					break
				}
				workEnd += opa
			}
			if !found {
				ep.p = 0
				s.incrVFIFO(group, &ep.v)
			}
		}
		if !found {
			klog.V(2).Infof("group %d: DQS enable window has no right edge", group)
			return false
		}

		// Back to the last working phase; delay taps take it from here
		ep.prev()
		ep.set()
		workEnd -= opa
		d = 0
	}

	// Right edge in delay taps
	start := d
	for ; d <= io.DQSEnDelayMax; d++ {
		s.setDQSEnDelayAllRanks(group, d)
		if !s.enableReadPasses(group) {
			break
		}
	}
	workEnd += (d - start - 1) * tap

	if workEnd < workBgn {
		klog.V(2).Infof("group %d: empty DQS enable window %d..%d", group, workBgn, workEnd)
		return false
	}
	klog.V(2).Infof("group %d: DQS enable window %d..%d ps", group, workBgn, workEnd)

	// One phase earlier the same delay lies a phase tap inside the
	// window; the distance to the next failure measures a phase tap in
	// delay taps.
	if d <= io.DQSEnDelayMax {
		failD := d
		ep.prev()
		ep.set()

		foundPass, foundFail := false, false
		dd := failD
		for ; dd <= io.DQSEnDelayMax; dd++ {
			s.setDQSEnDelayAllRanks(group, dd)
			if s.enableReadPasses(group) {
				foundPass = true
				break
			}
		}
		if foundPass {
			for dd++; dd <= io.DQSEnDelayMax; dd++ {
				s.setDQSEnDelayAllRanks(group, dd)
				if !s.enableReadPasses(group) {
					foundFail = true
					break
				}
			}
		}
		if foundPass && foundFail && dd > failD {
			dtapsPerPtap = dd - failD
		}

		ep.next()
	}
	s.dtapsPerPtap = dtapsPerPtap
	s.rf.Write32(regs.RegFileDTapsPerPTap, uint32(dtapsPerPtap))
	klog.V(2).Infof("group %d: %d dtaps per ptap", group, dtapsPerPtap)

	// Centre. Whole cycles are taken up by the VFIFO pointer.
	mid := (workBgn + workEnd) / 2
	for mid >= cycle {
		mid -= cycle
	}
	ep.p, d = splitDelay(mid, opa, io.DQSEnPhaseMax, tap, io.DQSEnDelayMax)
	ep.set()
	s.setDQSEnDelayAllRanks(group, d)

	for i = 0; i < io.VFIFOSize; i++ {
		if s.enableReadPasses(group) {
			break
		}
		s.incrVFIFO(group, &ep.v)
	}
	if i >= io.VFIFOSize {
		klog.V(2).Infof("group %d: centred DQS enable fails at every VFIFO position", group)
		return false
	}

	klog.V(1).Infof("group %d: DQS enable phase %d delay %d", group, ep.p, d)
	return true
}

// calibrateVFIFO calibrates the read path of readGroup: guaranteed read,
// DQS enable and read deskew. The output phase and delay of the group are
// moved when the read path does not work at all.
func (s *Sequencer) calibrateVFIFO(readGroup, testBgn int) bool {
	m := &s.def.Memory
	io := &s.def.IO
	writeGroup := s.writeGroupOf(readGroup)

	s.setStage(StageVFIFO)
	s.setSubstage(SubstageGuaranteedRead)
	s.setGroup(readGroup)

	failed := SubstageNil
	calibrated := false
	dtapsPerPtap := s.dtapsPerPtap

	d := 0
	for ; d <= dtapsPerPtap && !calibrated; d += 2 {
		if d > 0 {
			s.applyGroupAllOutDelayAddAllRanks(writeGroup, 2)
		}

		for p := 0; p <= io.DQDQSOutPhaseMax && !calibrated; p++ {
			s.setDQDQSOutPhaseAllRanks(readGroup, p)

			if !s.debug(DebugDisableGuaranteedRead) {
				s.setSubstage(SubstageGuaranteedRead)
				s.loadReadPatterns(0, true)
				if !s.readTestPatternsAllRanks(readGroup) {
					failed = SubstageGuaranteedRead
					continue
				}
			}

			s.setSubstage(SubstageDQSEnPhase)
			if !s.findDQSEnPhase(readGroup) {
				failed = SubstageDQSEnPhase
				continue
			}

			s.setSubstage(SubstageVFIFOCenter)
			ok := true
			for rankBgn, sr := 0, 0; rankBgn < m.Ranks; rankBgn, sr = rankBgn+m.RanksPerShadowReg, sr+1 {
				if s.param.skipShadowRegs[sr] {
					continue
				}
				s.selectShadowRegs(rankBgn, writeGroup)
				if !s.centerRead(rankBgn, readGroup, testBgn, StageVFIFO, true, false) {
					ok = false
				}
			}
			if !ok {
				failed = SubstageVFIFOCenter
				continue
			}
			calibrated = true
		}
	}

	if !calibrated {
		s.setFailingGroupStage(readGroup, StageVFIFO, failed)
		klog.V(1).Infof("group %d: read calibration failed at %s", readGroup, SubstageName(StageVFIFO, failed))
		return false
	}

	// The output delays were only moved to get reads working
	if d > 2 {
		s.zeroGroup(writeGroup, true)
	}
	return true
}

// calibrateVFIFOEnd re-centres the read path once writes are calibrated,
// this time with write-then-read bursts, and counts the margins.
func (s *Sequencer) calibrateVFIFOEnd(readGroup, testBgn int) bool {
	m := &s.def.Memory

	s.setStage(StageVFIFOAfterWrites)
	s.setSubstage(SubstageVFIFOCenter)
	s.setGroup(readGroup)

	ok := true
	for rankBgn, sr := 0, 0; rankBgn < m.Ranks; rankBgn, sr = rankBgn+m.RanksPerShadowReg, sr+1 {
		if s.param.skipShadowRegs[sr] {
			continue
		}
		s.selectShadowRegs(rankBgn, s.writeGroupOf(readGroup))
		if !s.centerRead(rankBgn, readGroup, testBgn, StageVFIFOAfterWrites, false, true) {
			ok = false
		}
	}

	if !ok {
		s.setFailingGroupStage(readGroup, StageVFIFOAfterWrites, SubstageVFIFOCenter)
		return false
	}
	return true
}
