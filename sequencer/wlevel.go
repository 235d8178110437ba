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
)

func (s *Sequencer) setWriteGroupOutPhase(writeGroup, p int) {
	n := s.def.Memory.ReadPerWriteDQS()
	for rg := writeGroup * n; rg < (writeGroup+1)*n; rg++ {
		s.setDQDQSOutPhaseAllRanks(rg, p)
	}
}

func (s *Sequencer) writeLevelPasses(writeGroup int) bool {
	ok, _ := s.writeTestAllRanks(writeGroup, false, false)
	return ok
}

// writeLevel finds the window of output phase and delay in which writes
// to writeGroup work and centres the group in it.
func (s *Sequencer) writeLevel(writeGroup int) bool {
	io := &s.def.IO
	opa := io.DelayPerOPATap
	tap := io.DelayPerDChainTap

	s.setStage(StageWLevel)
	s.setSubstage(SubstageWorkingDelay)
	s.setGroup(writeGroup)

	found := false
	var d, p int
	for d = 0; d <= s.dtapsPerPtap && !found; d++ {
		s.applyGroupAllOutDelayAllRanks(writeGroup, d)
		for p = 0; p <= io.DQDQSOutPhaseMax; p++ {
			s.setWriteGroupOutPhase(writeGroup, p)
			if s.writeLevelPasses(writeGroup) {
				found = true
				break
			}
		}
	}
	if !found {
		s.setFailingGroupStage(writeGroup, StageWLevel, SubstageWorkingDelay)
		return false
	}
	d--

	workBgn := p*opa + d*tap
	workEnd := workBgn

	if d == 0 {
		// Refine the left edge with delay taps one phase earlier
		if p > 0 {
			s.setWriteGroupOutPhase(writeGroup, p-1)
			tmp := workBgn - opa
			for dd := 0; dd <= io.Out1DelayMax && tmp < workBgn; dd, tmp = dd+1, tmp+tap {
				s.applyGroupAllOutDelayAllRanks(writeGroup, dd)
				if s.writeLevelPasses(writeGroup) {
					workBgn = tmp
					break
				}
			}
			s.applyGroupAllOutDelayAllRanks(writeGroup, 0)
		}

		for p++; p <= io.DQDQSOutPhaseMax; p++ {
			s.setWriteGroupOutPhase(writeGroup, p)
			if !s.writeLevelPasses(writeGroup) {
				break
			}
			workEnd += opa
		}
		p--
		s.setWriteGroupOutPhase(writeGroup, p)
	}

	start := d
	for ; d <= io.Out1DelayMax; d++ {
		s.applyGroupAllOutDelayAllRanks(writeGroup, d)
		if !s.writeLevelPasses(writeGroup) {
			break
		}
	}
	workEnd += (d - start - 1) * tap

	s.zeroGroup(writeGroup, true)

	if workEnd < workBgn {
		s.setSubstage(SubstageLastWorkingDelay)
		s.setFailingGroupStage(writeGroup, StageWLevel, SubstageLastWorkingDelay)
		return false
	}

	p, d = splitDelay((workBgn+workEnd)/2, opa, io.DQDQSOutPhaseMax, tap, io.Out1DelayMax)
	s.setWriteGroupOutPhase(writeGroup, p)
	s.applyGroupAllOutDelayAddAllRanks(writeGroup, d)

	klog.V(1).Infof("group %d: write leveled at phase %d delay %d (window %d..%d ps)", writeGroup, p, d, workBgn, workEnd)
	return true
}
