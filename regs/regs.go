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

// Package regs describes the register map of the sequencer managers: the
// SCC manager, the PHY manager, the read/write manager, the data manager,
// the calibration register file and the controller configuration block.
//
// All offsets are byte offsets from the base of their manager; a Layout
// supplies the bases for one device generation.
package regs

// Layout gives the bus address of each manager block.
type Layout struct {
	SCCMgr  uint32
	PHYMgr  uint32
	RWMgr   uint32
	DataMgr uint32
	RegFile uint32
	Ctrl    uint32
}

// Span returns the lowest and the highest (exclusive) bus address touched
// by the layout.
func (l Layout) Span() (lo, hi uint32) {
	lo = l.SCCMgr
	for _, b := range []uint32{l.PHYMgr, l.RWMgr, l.DataMgr, l.RegFile, l.Ctrl} {
		if b < lo {
			lo = b
		}
	}
	for _, b := range []uint32{l.SCCMgr, l.PHYMgr, l.RWMgr, l.DataMgr, l.RegFile, l.Ctrl} {
		if b+BlockSize > hi {
			hi = b + BlockSize
		}
	}
	return lo, hi
}

// BlockSize is the size of the largest manager window.
const BlockSize = 0x2000

// SCC manager
const (
	SCCMgrGroupCounter   = 0x0000
	SCCMgrDQSInDelay     = 0x0100
	SCCMgrDQSEnPhase     = 0x0200
	SCCMgrDQSEnDelay     = 0x0300
	SCCMgrDQDQSOutPhase  = 0x0400
	SCCMgrOCTOut1Delay   = 0x0500
	SCCMgrOCTOut2Delay   = 0x0600
	SCCMgrIOOut1Delay    = 0x0700
	SCCMgrIOOut2Delay    = 0x0800
	SCCMgrIOInDelay      = 0x0900
	SCCMgrDQSEna         = 0x0E00
	SCCMgrDQSIOEna       = 0x0E04
	SCCMgrDQEna          = 0x0E08
	SCCMgrDMEna          = 0x0E0C
	SCCMgrUpd            = 0x0E20
	SCCMgrActiveRank     = 0x0E40
	SCCMgrHHPGlobals     = 0x0E80
	SCCMgrEnaAllGroups   = 0xFF
	SCCMgrDelayChainSpan = 0x100
)

// PHY manager
const (
	PHYMgrCmdIncVFIFOFR      = 0x0000
	PHYMgrCmdIncVFIFOHardPHY = 0x0004
	PHYMgrCmdFIFOReset       = 0x0008
	PHYMgrCmdIncVFIFOFRHR    = 0x000C
	PHYMgrCmdIncVFIFOQR      = 0x0010

	PHYMgrPhyRLat         = 0x0040
	PHYMgrResetMemStbl    = 0x0044
	PHYMgrMuxSel          = 0x0048
	PHYMgrCalStatus       = 0x004C
	PHYMgrCalDebugInfo    = 0x0050
	PHYMgrVFIFORdEnOvrd   = 0x0054
	PHYMgrAFIWLat         = 0x0058
	PHYMgrAFIRLat         = 0x005C
	PHYMgrIncVFIFOAllGrps = 0xFF
)

// Values of PHYMgrCalStatus.
const (
	PHYMgrCalReset   = 0
	PHYMgrCalSuccess = 1
	PHYMgrCalFail    = 2
)

// Values of PHYMgrMuxSel.
const (
	PHYMgrMuxSequencer  = 0x1
	PHYMgrMuxController = 0x2
)

// RW manager
const (
	RWMgrRunSingleGroup    = 0x0000
	RWMgrRunAllGroups      = 0x0400
	RWMgrLoadCntr0         = 0x0800
	RWMgrLoadCntr1         = 0x0804
	RWMgrLoadCntr2         = 0x0808
	RWMgrLoadCntr3         = 0x080C
	RWMgrLoadJumpAdd0      = 0x0C00
	RWMgrLoadJumpAdd1      = 0x0C04
	RWMgrLoadJumpAdd2      = 0x0C08
	RWMgrLoadJumpAdd3      = 0x0C0C
	RWMgrResetReadDatapath = 0x1000
	RWMgrSetCSAndODTMask   = 0x1400
	RWMgrInstROMWrite      = 0x1800
	RWMgrACROMWrite        = 0x1C00

	// Reading the run register window returns the error mask of the last
	// burst, one bit per DQ of a virtual group.
	RWMgrErrorMask = RWMgrRunSingleGroup

	// Capacity of the instruction and address/command ROM windows in words.
	RWMgrInstROMWords = 0x100
	RWMgrACROMWords   = 0x100
)

// Data manager
const (
	DataMgrDRAMCfg = 0x0000
	DataMgrMemTWL  = 0x0004
	DataMgrMemTAdd = 0x0008
	DataMgrMemTRL  = 0x000C
	DataMgrMemTRFC = 0x0010
)

// Calibration register file
const (
	RegFileSignature     = 0x0000
	RegFileDebugDataAddr = 0x0004
	RegFileCurStage      = 0x0008
	RegFileFOM           = 0x000C
	RegFileFailingStage  = 0x0010
	RegFileDebug1        = 0x0014
	RegFileDebug2        = 0x0018
	RegFileDTapsPerPTap  = 0x001C

	// Written to RegFileSignature once the register file is initialised.
	RegFileInitSeqSignature = 0x555550ac
)

// Controller configuration
const (
	CtrlCfg = 0x0000

	// Hand-off of DQS tracking to the controller.
	CtrlCfgTrackingMgrEnable = 0x00400000
)

// PackStage packs a stage, substage and group into the layout shared by
// RegFileCurStage and RegFileFailingStage.
func PackStage(stage, substage, group uint32) uint32 {
	return stage&0xff | (substage&0xff)<<8 | (group&0xffff)<<16
}

// UnpackStage is the inverse of PackStage.
func UnpackStage(v uint32) (stage, substage, group uint32) {
	return v & 0xff, (v >> 8) & 0xff, v >> 16
}

// PackFOM packs the read and write figures of merit.
func PackFOM(in, out uint8) uint32 {
	return uint32(in) | uint32(out)<<8
}

// UnpackFOM is the inverse of PackFOM.
func UnpackFOM(v uint32) (in, out uint8) {
	return uint8(v), uint8(v >> 8)
}
