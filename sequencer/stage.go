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
	"fmt"

	"github.com/barebox/barebox-sub005/regs"
)

type Stage uint8

const (
	StageNil Stage = iota
	StageVFIFO
	StageWLevel
	StageLFIFO
	StageWrites
	StageFIFO
	StageRefresh
	StageCalSkipped
	StageCalAborted
	StageVFIFOAfterWrites
)

func (s Stage) String() string {
	switch s {
	case StageNil:
		return "none"
	case StageVFIFO:
		return "VFIFO"
	case StageWLevel:
		return "write leveling"
	case StageLFIFO:
		return "LFIFO"
	case StageWrites:
		return "writes"
	case StageFIFO:
		return "FIFO"
	case StageRefresh:
		return "refresh"
	case StageCalSkipped:
		return "skipped"
	case StageCalAborted:
		return "aborted"
	case StageVFIFOAfterWrites:
		return "VFIFO after writes"
	default:
		return fmt.Sprintf("stage %d", uint8(s))
	}
}

// Substage numbers are only meaningful together with their stage.
type Substage uint8

const (
	SubstageNil Substage = 0

	SubstageGuaranteedRead Substage = 1
	SubstageDQSEnPhase     Substage = 2
	SubstageVFIFOCenter    Substage = 3

	SubstageWorkingDelay     Substage = 1
	SubstageLastWorkingDelay Substage = 2
	SubstageWLevelCopy       Substage = 3

	SubstageWritesCenter Substage = 1

	SubstageReadLatency Substage = 1
)

// SubstageName names a substage of stage.
func SubstageName(stage Stage, sub Substage) string {
	if sub == SubstageNil {
		return "none"
	}

	switch stage {
	case StageVFIFO, StageVFIFOAfterWrites:
		switch sub {
		case SubstageGuaranteedRead:
			return "guaranteed read"
		case SubstageDQSEnPhase:
			return "DQS enable phase"
		case SubstageVFIFOCenter:
			return "read centering"
		}
	case StageWLevel:
		switch sub {
		case SubstageWorkingDelay:
			return "working delay"
		case SubstageLastWorkingDelay:
			return "last working delay"
		case SubstageWLevelCopy:
			return "copy"
		}
	case StageWrites:
		if sub == SubstageWritesCenter {
			return "write centering"
		}
	case StageLFIFO:
		if sub == SubstageReadLatency {
			return "read latency"
		}
	}
	return fmt.Sprintf("substage %d", uint8(sub))
}

// GroupNone marks a failure not tied to a DQS group.
const GroupNone = 0xff

// Failure records where calibration first failed.
type Failure struct {
	Stage    Stage
	Substage Substage
	Group    uint8
}

func (f Failure) String() string {
	if f.Stage == StageNil {
		return "no failure"
	}

	group := "all groups"
	if f.Group != GroupNone {
		group = fmt.Sprintf("group %d", f.Group)
	}
	return fmt.Sprintf("%s: %s, %s", f.Stage, SubstageName(f.Stage, f.Substage), group)
}

func (f Failure) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f Failure) pack() uint32 {
	return regs.PackStage(uint32(f.Stage), uint32(f.Substage), uint32(f.Group))
}

func unpackFailure(v uint32) Failure {
	st, sub, grp := regs.UnpackStage(v)
	return Failure{Stage: Stage(st), Substage: Substage(sub), Group: uint8(grp)}
}

// setFailingGroupStage records the first failure of the run. Later
// failures are dropped.
func (s *Sequencer) setFailingGroupStage(group int, stage Stage, sub Substage) {
	if s.gbl.failure.Stage != StageNil {
		return
	}

	s.gbl.failure = Failure{Stage: stage, Substage: sub, Group: uint8(group)}
}

func (s *Sequencer) updateCurStage(mask, val uint32) {
	cur := s.rf.Read32(regs.RegFileCurStage)
	s.rf.Write32(regs.RegFileCurStage, cur&^mask|val&mask)
}

func (s *Sequencer) setStage(st Stage) {
	s.updateCurStage(0x000000ff, uint32(st))
}

func (s *Sequencer) setSubstage(sub Substage) {
	s.updateCurStage(0x0000ff00, uint32(sub)<<8)
}

func (s *Sequencer) setGroup(group int) {
	s.updateCurStage(0xffff0000, uint32(group)<<16)
}
