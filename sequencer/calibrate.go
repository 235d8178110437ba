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

	"github.com/barebox/barebox-sub005/regio"
	"github.com/barebox/barebox-sub005/regs"
)

// Result summarises a calibration run.
type Result struct {
	Passed  bool
	Failure Failure

	// Figures of merit as reported in the register file
	FOMIn  uint8
	FOMOut uint8

	ReadLatency  int
	WriteLatency int
	DTapsPerPTap int

	FailingGroups int
}

// Calibrate runs a complete calibration and, on success, hands the PHY
// back to the memory controller. The returned error reports transport
// failures only; a failed calibration is a Result with Passed unset.
func (s *Sequencer) Calibrate() (Result, error) {
	s.phy.Write32(regs.PHYMgrCalStatus, regs.PHYMgrCalReset)

	// Tracking would move the delay chains under our feet
	ctrlCfg := s.ctrl.Read32(regs.CtrlCfg)
	s.ctrl.Write32(regs.CtrlCfg, ctrlCfg&^regs.CtrlCfgTrackingMgrEnable)

	s.initialize()
	s.initRegFile()
	s.memInitialize()

	res := s.memCalibrate()

	s.memPrechargeAndActivate()
	s.fifoReset()

	if res.Passed && !s.debug(DebugInDebugMode) {
		s.memHandoff()
		s.phy.Write32(regs.PHYMgrMuxSel, regs.PHYMgrMuxController)
	}

	s.ctrl.Write32(regs.CtrlCfg, ctrlCfg)

	s.report(&res)

	if err := regio.Err(s.bus); err != nil {
		return res, err
	}
	return res, nil
}

// report publishes the outcome in the register file and the PHY status.
func (s *Sequencer) report(res *Result) {
	res.Failure = s.gbl.failure
	res.FOMIn = uint8(clamp(s.gbl.fomIn/2, 0, 0xff))
	res.FOMOut = uint8(clamp(s.gbl.fomOut/2, 0, 0xff))
	res.ReadLatency = s.gbl.currReadLat
	res.WriteLatency = s.gbl.currWriteLat
	res.DTapsPerPTap = s.dtapsPerPtap

	if s.debug(DebugEnableCalReport) {
		klog.Infof("calibration report: %s, FOM in %d out %d, read latency %d, write latency %d, %d dtaps per ptap, %d failing groups",
			res.Failure, res.FOMIn, res.FOMOut, res.ReadLatency, res.WriteLatency, res.DTapsPerPTap, res.FailingGroups)
	}

	if res.Passed {
		s.rf.Write32(regs.RegFileFOM, regs.PackFOM(res.FOMIn, res.FOMOut))
		s.phy.Write32(regs.PHYMgrCalStatus, regs.PHYMgrCalSuccess)
		klog.V(1).Infof("calibration passed, FOM in %d out %d", res.FOMIn, res.FOMOut)
		return
	}

	s.rf.Write32(regs.RegFileFailingStage, res.Failure.pack())
	s.rf.Write32(regs.RegFileDebug1, uint32(res.FailingGroups))
	s.phy.Write32(regs.PHYMgrCalDebugInfo, res.Failure.pack())
	s.phy.Write32(regs.PHYMgrCalStatus, regs.PHYMgrCalFail)
	klog.V(1).Infof("calibration failed: %s", res.Failure)
}

func (s *Sequencer) memCalibrate() Result {
	m := &s.def.Memory

	s.gbl = state{}
	s.dtapsPerPtap = s.staticDTapsPerPTap()

	s.memConfig()

	s.setGroupCounter(0)
	s.setHHPExtras()

	if s.skip(SkipAll) {
		s.memSkipCalibrate()
		return Result{Passed: true}
	}

	s.zeroAll()

	var failingGroups int
	abort := false
	rpw := m.ReadPerWriteDQS()

	for wg := 0; wg < m.WriteDQSWidth && !abort; wg++ {
		if s.param.skipGroups&(1<<uint(wg)) != 0 {
			continue
		}
		s.zeroGroup(wg, false)
		failed := false

		if !s.skip(SkipVFIFO) {
			for rg, testBgn := wg*rpw, 0; rg < (wg+1)*rpw; rg, testBgn = rg+1, testBgn+m.DQPerReadDQS {
				if s.calibrateVFIFO(rg, testBgn) {
					continue
				}
				failed = true
				if !s.debug(DebugSweepAllGroups) {
					abort = true
					break
				}
			}
		}

		if !failed && !s.skip(SkipWLevel) && !s.def.Calibration.WriteLevelInHardIP {
			failed = !s.writeLevel(wg)
		}

		if !failed && !s.skip(SkipWrites) {
			for r, sr := 0, 0; r < m.Ranks; r, sr = r+m.RanksPerShadowReg, sr+1 {
				if s.param.skipShadowRegs[sr] {
					continue
				}
				s.selectShadowRegs(r, wg)
				if !s.centerWrites(r, wg, 0) {
					failed = true
					break
				}
			}
		}

		if !failed && !s.skip(SkipWrites) {
			for rg, testBgn := wg*rpw, 0; rg < (wg+1)*rpw; rg, testBgn = rg+1, testBgn+m.DQPerReadDQS {
				if !s.calibrateVFIFOEnd(rg, testBgn) {
					failed = true
					break
				}
			}
		}

		if failed {
			failingGroups++
			klog.V(1).Infof("write group %d failed", wg)
			if !s.debug(DebugSweepAllGroups) {
				abort = true
			}
		} else {
			klog.V(1).Infof("write group %d calibrated", wg)
		}
	}

	res := Result{FailingGroups: failingGroups}
	if failingGroups != 0 {
		return res
	}

	// Read latency is shared, so every group must have been calibrated
	if s.param.skipGroups == 0 && !s.skip(SkipLFIFO) {
		if !s.calibrateLFIFO() {
			return res
		}
	}

	res.Passed = true
	return res
}

// memSkipCalibrate applies fixed settings in place of calibration.
func (s *Sequencer) memSkipCalibrate() {
	m := &s.def.Memory
	io := &s.def.IO
	cal := &s.def.Calibration

	klog.V(1).Info("skipping calibration")

	for r := 0; r < m.Ranks; r += m.RanksPerShadowReg {
		s.selectShadowRegs(r, 0)

		for rg := 0; rg < m.ReadDQSWidth; rg++ {
			s.setDQSEnPhase(rg, 0)
			// DQS 90 degrees ahead of DQ
			s.setDQDQSOutPhase(rg, io.DLLChainLength*5/4-2)
		}
		s.scc.Write32(regs.SCCMgrDQSEna, regs.SCCMgrEnaAllGroups)
		s.scc.Write32(regs.SCCMgrDQSIOEna, regs.SCCMgrEnaAllGroups)

		for wg := 0; wg < m.WriteDQSWidth; wg++ {
			s.setGroupCounter(wg)
			s.scc.Write32(regs.SCCMgrDQEna, regs.SCCMgrEnaAllGroups)
			s.scc.Write32(regs.SCCMgrDMEna, regs.SCCMgrEnaAllGroups)
		}
		s.upd()
	}

	for rg := 0; rg < m.ReadDQSWidth; rg++ {
		s.selectShadowRegs(0, s.writeGroupOf(rg))
		s.setDQSInDelay(rg, 10)
		s.loadDQS(rg)
	}
	s.upd()

	v := 0
	for i := 0; i < cal.VFIFOOffset; i++ {
		s.incrVFIFO(regs.PHYMgrIncVFIFOAllGrps, &v)
	}
	s.fifoReset()

	s.setReadLatency(cal.LFIFOOffset)
}
