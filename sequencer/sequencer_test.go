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
	"testing"

	"github.com/barebox/barebox-sub005/internal/physim"
	"github.com/barebox/barebox-sub005/regs"
	"github.com/barebox/barebox-sub005/target"
	"github.com/barebox/barebox-sub005/target/arria5"
	"github.com/barebox/barebox-sub005/target/cyclone5"
	"github.com/barebox/barebox-sub005/target/stratix5"
)

// Windows of the nominal board
var (
	enableWindow = physim.Window{Lo: 9000, Hi: 10300}
	levelWindow  = physim.Window{Lo: 1000, Hi: 1900}
)

// boardModel is the nominal board; the windows above are its windows.
func boardModel(def *target.Definition) physim.Model {
	return physim.Nominal(def)
}

func newSim(t *testing.T, def *target.Definition, m physim.Model, opts Options) (*Sequencer, *physim.PHY) {
	t.Helper()

	phy := physim.New(def, m)
	s, err := New(phy, def, opts)
	if err != nil {
		t.Fatalf("New(%s): %v", def.Name, err)
	}
	return s, phy
}

// prepare runs the steps preceding the group loop of a calibration.
func prepare(s *Sequencer) {
	s.initialize()
	s.initRegFile()
	s.memInitialize()
	s.gbl = state{}
	s.dtapsPerPtap = s.staticDTapsPerPTap()
	s.memConfig()
	s.zeroAll()
}

// enablePosition returns where the DQS enable of rg sits, in picoseconds
// on the VFIFO ring.
func enablePosition(def *target.Definition, phy *physim.PHY, rg int) int {
	io := &def.IO
	cycle := (io.DQSEnPhaseMax + 1) * io.DelayPerOPATap
	pos := phy.VFIFO(rg)*cycle +
		phy.Live(0, regs.SCCMgrDQSEnPhase, rg, -1)*io.DelayPerOPATap +
		phy.Live(0, regs.SCCMgrDQSEnDelay, rg, -1)*io.DelayPerDQSEnDChainTap
	return pos % (io.VFIFOSize * cycle)
}

func TestCalibrate(t *testing.T) {
	for _, def := range []*target.Definition{
		cyclone5.HPSDDR3,
		cyclone5.HPSLPDDR2,
		arria5.HPSDDR3,
		stratix5.UniPHYDDR3,
	} {
		t.Run(def.Name, func(t *testing.T) {
			s, phy := newSim(t, def, boardModel(def), Options{})

			res, err := s.Calibrate()
			if err != nil {
				t.Fatalf("Calibrate: %v", err)
			}
			if !res.Passed {
				t.Fatalf("calibration failed: %s", res.Failure)
			}
			if res.FailingGroups != 0 {
				t.Errorf("FailingGroups = %d", res.FailingGroups)
			}
			if res.FOMIn == 0 || res.FOMOut == 0 {
				t.Errorf("FOM in %d out %d, want both non-zero", res.FOMIn, res.FOMOut)
			}

			for rg := 0; rg < def.Memory.ReadDQSWidth; rg++ {
				if pos := enablePosition(def, phy, rg); !enableWindow.Contains(pos) {
					t.Errorf("group %d: DQS enable at %d ps, outside %v", rg, pos, enableWindow)
				}
			}

			l := def.Layout
			if got := phy.Read32(l.PHYMgr + regs.PHYMgrCalStatus); got != regs.PHYMgrCalSuccess {
				t.Errorf("CalStatus = %d", got)
			}
			if got := phy.Read32(l.PHYMgr + regs.PHYMgrMuxSel); got != regs.PHYMgrMuxController {
				t.Errorf("MuxSel = %d, want controller", got)
			}
			if got := phy.Read32(l.RegFile + regs.RegFileSignature); got != regs.RegFileInitSeqSignature {
				t.Errorf("signature = %#x", got)
			}
		})
	}
}

func TestCalibrateCycloneVSettings(t *testing.T) {
	def := cyclone5.HPSDDR3
	s, phy := newSim(t, def, boardModel(def), Options{})

	res, err := s.Calibrate()
	if err != nil || !res.Passed {
		t.Fatalf("Calibrate: %+v, %v", res, err)
	}

	// Symmetric eyes around the reserve settings need no moves
	for wg := 0; wg < def.Memory.WriteDQSWidth; wg++ {
		if got := phy.Live(0, regs.SCCMgrDQSInDelay, wg, -1); got != def.IO.DQSInReserve {
			t.Errorf("group %d: DQS input delay %d, want %d", wg, got, def.IO.DQSInReserve)
		}
		if got := phy.Live(0, regs.SCCMgrIOOut1Delay, wg, def.Memory.DQPerWriteDQS); got != def.IO.DQSOutReserve {
			t.Errorf("group %d: DQS output delay %d, want %d", wg, got, def.IO.DQSOutReserve)
		}
		for pin := 0; pin < def.Memory.DQPerWriteDQS; pin++ {
			if got := phy.Live(0, regs.SCCMgrIOInDelay, wg, pin); got != 0 {
				t.Errorf("group %d pin %d: input delay %d", wg, pin, got)
			}
		}
	}

	// 10 taps either side on reads, 11 on writes, halved when reported
	if res.FOMIn != 40 || res.FOMOut != 44 {
		t.Errorf("FOM in %d out %d, want 40 and 44", res.FOMIn, res.FOMOut)
	}
	if res.DTapsPerPTap != 17 {
		t.Errorf("DTapsPerPTap = %d, want 17", res.DTapsPerPTap)
	}
	if res.ReadLatency != 16 {
		t.Errorf("ReadLatency = %d, want 16", res.ReadLatency)
	}
}

func TestCalibrateStratixVWriteLevel(t *testing.T) {
	def := stratix5.UniPHYDDR3
	s, phy := newSim(t, def, boardModel(def), Options{})

	res, err := s.Calibrate()
	if err != nil || !res.Passed {
		t.Fatalf("Calibrate: %+v, %v", res, err)
	}

	io := &def.IO
	for wg := 0; wg < def.Memory.WriteDQSWidth; wg++ {
		phase := phy.Live(0, regs.SCCMgrDQDQSOutPhase, wg, -1)
		dqs := phy.Live(0, regs.SCCMgrIOOut1Delay, wg, def.Memory.DQPerWriteDQS)
		if pos := phase*io.DelayPerOPATap + dqs*io.DelayPerDChainTap; !levelWindow.Contains(pos) {
			t.Errorf("group %d: DQS arrives at %d ps, outside %v", wg, pos, levelWindow)
		}
		if phase != 3 {
			t.Errorf("group %d: output phase %d, want 3", wg, phase)
		}
	}

	if res.ReadLatency != 11 {
		t.Errorf("ReadLatency = %d, want 11", res.ReadLatency)
	}
}

func TestCalibrateDebugModeKeepsPHY(t *testing.T) {
	def := cyclone5.HPSDDR3
	s, phy := newSim(t, def, boardModel(def), Options{Debug: DebugInDebugMode})

	res, err := s.Calibrate()
	if err != nil || !res.Passed {
		t.Fatalf("Calibrate: %+v, %v", res, err)
	}
	if got := phy.Read32(def.Layout.PHYMgr + regs.PHYMgrMuxSel); got != regs.PHYMgrMuxSequencer {
		t.Errorf("MuxSel = %d, want sequencer", got)
	}
	if n := phy.Runs(def.ROM.MRS0User); n != 0 {
		t.Errorf("user mode registers loaded %d times in debug mode", n)
	}
}

func TestCalibrateRestoresTracking(t *testing.T) {
	def := cyclone5.HPSDDR3
	s, phy := newSim(t, def, boardModel(def), Options{})

	cfg := def.Layout.Ctrl + regs.CtrlCfg
	phy.Write32(cfg, regs.CtrlCfgTrackingMgrEnable|0x5)

	if _, err := s.Calibrate(); err != nil {
		t.Fatal(err)
	}
	if got := phy.Read32(cfg); got != regs.CtrlCfgTrackingMgrEnable|0x5 {
		t.Errorf("CtrlCfg = %#x after calibration", got)
	}
}

func TestCalibrateFailureRecord(t *testing.T) {
	def := cyclone5.HPSDDR3
	m := boardModel(def)
	m.Enable[1] = nil
	m.Enable[2] = nil

	s, phy := newSim(t, def, m, Options{Debug: DebugSweepAllGroups})

	res, err := s.Calibrate()
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed {
		t.Fatal("calibration passed without a DQS enable window")
	}

	want := Failure{Stage: StageVFIFO, Substage: SubstageDQSEnPhase, Group: 1}
	if res.Failure != want {
		t.Errorf("Failure = %v, want %v", res.Failure, want)
	}
	if res.FailingGroups != 2 {
		t.Errorf("FailingGroups = %d, want 2", res.FailingGroups)
	}

	l := def.Layout
	if got := phy.Read32(l.RegFile + regs.RegFileFailingStage); got != want.pack() {
		t.Errorf("failing stage register %#x, want %#x", got, want.pack())
	}
	if got := phy.Read32(l.PHYMgr + regs.PHYMgrCalDebugInfo); got != want.pack() {
		t.Errorf("debug info register %#x, want %#x", got, want.pack())
	}
	if got := phy.Read32(l.PHYMgr + regs.PHYMgrCalStatus); got != regs.PHYMgrCalFail {
		t.Errorf("CalStatus = %d", got)
	}
	if n := phy.Runs(def.ROM.MRS0User); n != 0 {
		t.Errorf("handoff ran %d times after a failure", n)
	}
}

func TestCalibrateAbortsOnFirstFailure(t *testing.T) {
	def := cyclone5.HPSDDR3
	m := boardModel(def)
	m.Enable[0] = nil

	s, phy := newSim(t, def, m, Options{})

	res, err := s.Calibrate()
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed || res.FailingGroups != 1 {
		t.Fatalf("result %+v, want one failing group", res)
	}
	// Later groups are never looked at
	if got := phy.VFIFO(3); got != 0 {
		t.Errorf("group 3 VFIFO moved to %d", got)
	}
}

func TestCalibrateSkipsGroups(t *testing.T) {
	def := cyclone5.HPSDDR3
	m := boardModel(def)
	m.Enable[2] = nil

	s, phy := newSim(t, def, m, Options{SkipGroups: 1 << 2})

	res, err := s.Calibrate()
	if err != nil || !res.Passed {
		t.Fatalf("Calibrate: %+v, %v", res, err)
	}
	// The read latency is shared and cannot be calibrated on a subset
	if n := len(phy.ReadLatencyHistory()); n != 1 {
		t.Errorf("read latency written %d times, want only the initial value", n)
	}
}

func TestSkipCalibrate(t *testing.T) {
	def := cyclone5.HPSDDR3
	s, phy := newSim(t, def, boardModel(def), Options{Skip: SkipAll})

	res, err := s.Calibrate()
	if err != nil || !res.Passed {
		t.Fatalf("Calibrate: %+v, %v", res, err)
	}

	for rg := 0; rg < def.Memory.ReadDQSWidth; rg++ {
		if got := phy.VFIFO(rg); got != def.Calibration.VFIFOOffset {
			t.Errorf("group %d: VFIFO %d, want %d", rg, got, def.Calibration.VFIFOOffset)
		}
		if got := phy.Live(0, regs.SCCMgrDQSInDelay, rg, -1); got != 10 {
			t.Errorf("group %d: DQS input delay %d, want 10", rg, got)
		}
		if got := phy.Live(0, regs.SCCMgrDQDQSOutPhase, rg, -1); got != 8 {
			t.Errorf("group %d: output phase %d, want 8", rg, got)
		}
	}
	if got := phy.ReadLatency(); got != def.Calibration.LFIFOOffset {
		t.Errorf("read latency %d, want %d", got, def.Calibration.LFIFOOffset)
	}
	if n := phy.Runs(def.ROM.ReadB2B); n != 0 {
		t.Errorf("%d read tests issued on the skip path", n)
	}
}
