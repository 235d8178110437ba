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
	"testing"

	"github.com/barebox/barebox-sub005/regs"
	"github.com/barebox/barebox-sub005/target/cyclone5"
	"github.com/barebox/barebox-sub005/target/stratix5"
)

var eye = Window{Lo: -5, Hi: 5}

func newCV() *PHY {
	def := cyclone5.HPSDDR3
	return New(def, Uniform(def, Window{Lo: 0, Hi: 1000}, eye, eye, eye, nil))
}

func TestDecode(t *testing.T) {
	p := newCV()
	l := cyclone5.Layout

	tests := []struct {
		addr uint32
		b    block
		off  uint32
	}{
		{l.SCCMgr, blockSCC, 0},
		{l.PHYMgr - 4, blockSCC, 0xFFC},
		{l.PHYMgr + 0x10, blockPHY, 0x10},
		{l.RWMgr + regs.RWMgrResetReadDatapath, blockRW, regs.RWMgrResetReadDatapath},
		{l.DataMgr + 0x4, blockData, 0x4},
		{l.RegFile + 0x8, blockRegFile, 0x8},
		{l.Ctrl, blockCtrl, 0},
		{l.Ctrl + regs.BlockSize, blockNone, 0},
		{0x1000, blockNone, 0},
	}

	for _, tt := range tests {
		b, off := p.decode(tt.addr)
		if b != tt.b || off != tt.off {
			t.Errorf("decode(%#x) = %d, %#x, want %d, %#x", tt.addr, b, off, tt.b, tt.off)
		}
	}
}

func TestUpdateCommitsLoadedSettings(t *testing.T) {
	p := newCV()
	scc := cyclone5.Layout.SCCMgr

	p.Write32(scc+regs.SCCMgrDQSInDelay+1*4, 7)
	p.Write32(scc+regs.SCCMgrDQSInDelay+2*4, 9)
	p.Write32(scc+regs.SCCMgrDQSEna, 1)

	if got := p.Read32(scc + regs.SCCMgrDQSInDelay + 1*4); got != 7 {
		t.Errorf("read back %d, want the staged 7", got)
	}
	if p.Live(0, regs.SCCMgrDQSInDelay, 1, -1) != 0 {
		t.Error("setting live before the update")
	}

	p.Write32(scc+regs.SCCMgrUpd, 0)
	if got := p.Live(0, regs.SCCMgrDQSInDelay, 1, -1); got != 7 {
		t.Errorf("group 1 live %d, want 7", got)
	}
	if got := p.Live(0, regs.SCCMgrDQSInDelay, 2, -1); got != 0 {
		t.Errorf("group 2 live %d without a load", got)
	}

	// Loads do not carry over to the next update
	p.Write32(scc+regs.SCCMgrDQSInDelay+1*4, 3)
	p.Write32(scc+regs.SCCMgrUpd, 0)
	if got := p.Live(0, regs.SCCMgrDQSInDelay, 1, -1); got != 7 {
		t.Errorf("group 1 live %d after an update without load", got)
	}
	if p.Updates() != 2 {
		t.Errorf("%d updates", p.Updates())
	}
}

func TestPinSettingsFollowGroupCounter(t *testing.T) {
	p := newCV()
	scc := cyclone5.Layout.SCCMgr

	p.Write32(scc+regs.SCCMgrGroupCounter, 2)
	p.Write32(scc+regs.SCCMgrIOInDelay+3*4, 6)
	p.Write32(scc+regs.SCCMgrDQEna, 3)
	p.Write32(scc+regs.SCCMgrUpd, 0)

	if got := p.Live(0, regs.SCCMgrIOInDelay, 2, 3); got != 6 {
		t.Errorf("group 2 pin 3 = %d, want 6", got)
	}
	if got := p.Live(0, regs.SCCMgrIOInDelay, 0, 3); got != 0 {
		t.Errorf("group 0 pin 3 = %d, want 0", got)
	}
}

func TestVFIFOWraps(t *testing.T) {
	def := stratix5.UniPHYDDR3
	p := New(def, Uniform(def, Window{}, eye, eye, eye, nil))
	phy := def.Layout.PHYMgr

	for i := 0; i < def.IO.VFIFOSize+1; i++ {
		p.Write32(phy+regs.PHYMgrCmdIncVFIFOFRHR, 2)
	}
	p.Write32(phy+regs.PHYMgrCmdIncVFIFOFR, regs.PHYMgrIncVFIFOAllGrps)

	if got := p.VFIFO(2); got != 2 {
		t.Errorf("group 2 VFIFO %d, want 2", got)
	}
	if got := p.VFIFO(0); got != 1 {
		t.Errorf("group 0 VFIFO %d, want 1", got)
	}
}

func TestReadsNeedPatternsAndRank(t *testing.T) {
	p := newCV()
	def := cyclone5.HPSDDR3
	rw := def.Layout.RWMgr
	p.Write32(def.Layout.PHYMgr+regs.PHYMgrPhyRLat, 20)
	p.Write32(rw+regs.RWMgrSetCSAndODTMask, 0xFE)

	p.Write32(rw+regs.RWMgrRunSingleGroup, def.ROM.ReadB2B)
	if got := p.Read32(rw + regs.RWMgrErrorMask); got != 0xff {
		t.Errorf("errors %#x before patterns were written", got)
	}

	p.Write32(rw+regs.RWMgrRunSingleGroup, def.ROM.GuaranteedWrite)
	if !p.PatternsLoaded(0) {
		t.Fatal("guaranteed write did not load patterns")
	}

	p.Write32(rw+regs.RWMgrRunSingleGroup, def.ROM.ReadB2B)
	if got := p.Read32(rw + regs.RWMgrErrorMask); got != 0 {
		t.Errorf("errors %#x with the enable inside its window", got)
	}

	p.Write32(rw+regs.RWMgrSetCSAndODTMask, 0xFF)
	p.Write32(rw+regs.RWMgrRunSingleGroup, def.ROM.ReadB2B)
	if got := p.Read32(rw + regs.RWMgrErrorMask); got != 0xffffffff {
		t.Errorf("errors %#x with no rank selected", got)
	}
	if p.Runs(def.ROM.ReadB2B) != 3 {
		t.Errorf("%d read runs", p.Runs(def.ROM.ReadB2B))
	}
}

func TestReadLatencyGate(t *testing.T) {
	p := newCV()
	def := cyclone5.HPSDDR3
	rw := def.Layout.RWMgr

	p.Write32(rw+regs.RWMgrSetCSAndODTMask, 0xFE)
	p.Write32(rw+regs.RWMgrRunSingleGroup, def.ROM.GuaranteedWrite)

	for _, tt := range []struct {
		lat  uint32
		errs uint32
	}{
		{13, 0xff},
		{14, 0},
	} {
		p.Write32(def.Layout.PHYMgr+regs.PHYMgrPhyRLat, tt.lat)
		p.Write32(rw+regs.RWMgrRunSingleGroup, def.ROM.ReadB2B)
		if got := p.Read32(rw + regs.RWMgrErrorMask); got != tt.errs {
			t.Errorf("latency %d: errors %#x, want %#x", tt.lat, got, tt.errs)
		}
	}
	if got := p.ReadLatencyHistory(); len(got) != 2 || got[0] != 13 || got[1] != 14 {
		t.Errorf("history %v", got)
	}
}

func TestNominal(t *testing.T) {
	cv := Nominal(cyclone5.HPSDDR3)
	if cv.WriteLevel != nil {
		t.Error("write level window on a PHY that levels in hardware")
	}
	if cv.MinReadLatency != 14 {
		t.Errorf("full rate read latency %d", cv.MinReadLatency)
	}

	sv := Nominal(stratix5.UniPHYDDR3)
	if len(sv.WriteLevel) != stratix5.UniPHYDDR3.Memory.WriteDQSWidth || sv.MinReadLatency != 9 {
		t.Errorf("half rate model: %d write level windows, read latency %d", len(sv.WriteLevel), sv.MinReadLatency)
	}
	for rg, ws := range sv.ReadEye {
		if len(ws) != stratix5.UniPHYDDR3.Memory.DQPerReadDQS {
			t.Errorf("group %d: %d read eyes", rg, len(ws))
		}
	}
}
