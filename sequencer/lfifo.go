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

// lfifoMargin is added back to the lowest working read latency.
const lfifoMargin = 2

// calibrateLFIFO lowers the read latency until reads across every group
// and rank fail, then settles a little above the last working value.
func (s *Sequencer) calibrateLFIFO() bool {
	s.setStage(StageLFIFO)
	s.setSubstage(SubstageReadLatency)
	s.setGroup(GroupNone)

	s.loadReadPatterns(0, true)

	initial := s.gbl.currReadLat
	lastGood := -1
	for lat := initial; lat >= 0; lat-- {
		s.setReadLatency(lat)
		if ok, _ := s.readTest(0, 0, true, true, true); !ok {
			break
		}
		lastGood = lat
	}

	s.fifoReset()

	if lastGood < 0 {
		s.setFailingGroupStage(GroupNone, StageLFIFO, SubstageReadLatency)
		klog.V(1).Infof("no working read latency at or below %d", initial)
		return false
	}

	s.setReadLatency(lastGood + lfifoMargin)
	klog.V(1).Infof("read latency %d (lowest working %d)", s.gbl.currReadLat, lastGood)
	return true
}
