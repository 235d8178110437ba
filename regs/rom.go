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

package regs

// ROMMap holds the entry points of the micro-sequences in the
// read/write manager instruction ROM. The ROM image is generated together
// with the PHY, so each device generation carries its own map.
type ROMMap struct {
	Idle      uint32
	IdleLoop1 uint32
	IdleLoop2 uint32
	Return    uint32

	InitResetCKE0 uint32
	InitResetCKE1 uint32

	MRS0DLLReset     uint32
	MRS0DLLResetMirr uint32
	MRS0User         uint32
	MRS0UserMirr     uint32
	MRS1             uint32
	MRS1Mirr         uint32
	MRS2             uint32
	MRS2Mirr         uint32
	MRS3             uint32
	MRS3Mirr         uint32
	ZQCL             uint32

	PrechargeAll       uint32
	RefreshAll         uint32
	Activate0And1      uint32
	Activate0And1Wait1 uint32
	Activate0And1Wait2 uint32

	GuaranteedRead      uint32
	GuaranteedReadCont  uint32
	GuaranteedWrite     uint32
	GuaranteedWriteWait [4]uint32

	ReadB2B        uint32
	ReadB2BWait1   uint32
	ReadB2BWait2   uint32
	ClearDQSEnable uint32

	// Write-read micro-sequence, without and with data mask toggling.
	LFSRWrRd   LFSRSequence
	LFSRWrRdDM LFSRSequence
}

// LFSRSequence is one write-then-read micro-sequence and its jump targets.
type LFSRSequence struct {
	Bank0 uint32
	Data  uint32
	DQS   uint32
	NOP   uint32
	Wait  uint32
	WL1   uint32
}

