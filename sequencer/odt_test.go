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
	"math/bits"
	"testing"

	"github.com/barebox/barebox-sub005/target"
	"github.com/barebox/barebox-sub005/target/cyclone5"
)

func TestODTMaskSingleRank(t *testing.T) {
	m := &target.Memory{Ranks: 1, CSPerDIMM: 1, CSWidth: 1}

	odt0, odt1 := odtMasks(m, 0, odtModeReadWrite)
	if odt0 != 0x0 || odt1 != 0x1 {
		t.Errorf("odt masks %#x/%#x, want 0x0/0x1", odt0, odt1)
	}
	if got := csAndODTMask(m, 0, odtModeReadWrite); got != 0x000100FE {
		t.Errorf("cs and odt mask %#08x, want 0x000100fe", got)
	}
	if got := ODTMaskWord(cyclone5.HPSDDR3, 0, true); got != 0x000100FE {
		t.Errorf("ODTMaskWord = %#08x", got)
	}
}

func TestODTMaskOff(t *testing.T) {
	m := &target.Memory{Ranks: 2, CSPerDIMM: 1, CSWidth: 2}
	if got := csAndODTMask(m, 1, odtModeOff); got != 0xFD {
		t.Errorf("mask %#x, want 0xfd", got)
	}
}

func TestODTMaskTables(t *testing.T) {
	tests := []struct {
		m          target.Memory
		rank       int
		odt0, odt1 uint32
	}{
		{target.Memory{Ranks: 2, CSPerDIMM: 1}, 0, 0x2, 0x3},
		{target.Memory{Ranks: 2, CSPerDIMM: 1}, 1, 0x1, 0x3},
		{target.Memory{Ranks: 2, CSPerDIMM: 2}, 0, 0x0, 0x1},
		{target.Memory{Ranks: 2, CSPerDIMM: 2}, 1, 0x0, 0x2},
		{target.Memory{Ranks: 4, CSPerDIMM: 2}, 0, 0x4, 0x5},
		{target.Memory{Ranks: 4, CSPerDIMM: 2}, 1, 0x8, 0xA},
		{target.Memory{Ranks: 4, CSPerDIMM: 2}, 2, 0x1, 0x5},
		{target.Memory{Ranks: 4, CSPerDIMM: 2}, 3, 0x2, 0xA},
	}

	for _, tt := range tests {
		odt0, odt1 := odtMasks(&tt.m, tt.rank, odtModeReadWrite)
		if odt0 != tt.odt0 || odt1 != tt.odt1 {
			t.Errorf("%d ranks, %d cs per dimm, rank %d: %#x/%#x, want %#x/%#x",
				tt.m.Ranks, tt.m.CSPerDIMM, tt.rank, odt0, odt1, tt.odt0, tt.odt1)
		}
	}
}

func TestChipSelectSelectsOneRank(t *testing.T) {
	for _, ranks := range []int{1, 2, 4} {
		for _, perDIMM := range []int{1, 2} {
			m := &target.Memory{Ranks: ranks, CSPerDIMM: perDIMM, CSWidth: ranks}
			for r := 0; r < ranks; r++ {
				for _, mode := range []odtMode{odtModeOff, odtModeReadWrite} {
					cs := csAndODTMask(m, r, mode) & 0xff
					cleared := ^cs & 0xff
					if bits.OnesCount32(cleared) != 1 || cleared != 1<<uint(r) {
						t.Errorf("%d ranks rank %d: chip select %#x", ranks, r, cs)
					}
				}
			}
		}
	}
}

func TestChipSelectRDIMM(t *testing.T) {
	m := &target.Memory{Ranks: 2, CSPerDIMM: 2, CSWidth: 4, RDIMM: true}
	if got := csMask(m, 1); got != 0xFB {
		t.Errorf("RDIMM rank 1 chip select %#x, want 0xfb", got)
	}
}
