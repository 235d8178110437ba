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

type odtMode int

const (
	odtModeOff odtMode = iota
	odtModeReadWrite
)

// odtMasks returns the ODT pins driven while accessing rank: odt0 on
// reads, odt1 on writes.
func odtMasks(m *target.Memory, rank int, mode odtMode) (odt0, odt1 uint32) {
	if mode != odtModeReadWrite {
		return 0, 0
	}

	switch m.Ranks {
	case 1:
		return 0x0, 0x1

	case 2:
		if m.CSPerDIMM == 1 || (m.RDIMM && m.CSPerDIMM == 2 && m.CSWidth == 4) {
			// One rank per slot: terminate at the other slot on reads,
			// at both on writes
			return 0x3 &^ (1 << uint(rank)), 0x3
		}
		// Both ranks in one slot: no termination on reads, at the
		// target rank on writes
		return 0x0, 0x3 & (1 << uint(rank))

	case 4:
		// Two dual rank slots
		switch rank {
		case 0:
			return 0x4, 0x5
		case 1:
			return 0x8, 0xA
		case 2:
			return 0x1, 0x5
		case 3:
			return 0x2, 0xA
		}
	}
	return 0, 0
}

// csMask returns the active low chip select pattern selecting rank.
func csMask(m *target.Memory, rank int) uint32 {
	if m.RDIMM && m.CSPerDIMM == 2 && m.CSWidth == 4 {
		// Each DIMM decodes two chip selects per rank
		return 0xFF &^ (1 << uint(2*rank))
	}
	return 0xFF &^ (1 << uint(rank))
}

// csAndODTMask packs the chip select and ODT patterns into the layout of
// RWMgrSetCSAndODTMask.
func csAndODTMask(m *target.Memory, rank int, mode odtMode) uint32 {
	odt0, odt1 := odtMasks(m, rank, mode)
	return csMask(m, rank) | (odt0&0xFF)<<8 | (odt1&0xFF)<<16
}

func (s *Sequencer) setRankAndODTMask(rank int, mode odtMode) {
	s.rw.Write32(regs.RWMgrSetCSAndODTMask, csAndODTMask(&s.def.Memory, rank, mode))
}

// ODTMaskWord returns the chip select and ODT word written for rank.
func ODTMaskWord(def *target.Definition, rank int, readWrite bool) uint32 {
	mode := odtModeOff
	if readWrite {
		mode = odtModeReadWrite
	}
	return csAndODTMask(&def.Memory, rank, mode)
}
