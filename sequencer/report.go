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
	"errors"
	"fmt"

	"github.com/barebox/barebox-sub005/regio"
	"github.com/barebox/barebox-sub005/regs"
	"github.com/barebox/barebox-sub005/target"
)

var ErrNoSignature = errors.New("Register file carries no sequencer signature")

// CalStatus is the calibration status published by the PHY manager.
type CalStatus uint32

const (
	CalInProgress CalStatus = regs.PHYMgrCalReset
	CalSuccess    CalStatus = regs.PHYMgrCalSuccess
	CalFail       CalStatus = regs.PHYMgrCalFail
)

func (c CalStatus) String() string {
	switch c {
	case CalInProgress:
		return "in progress"
	case CalSuccess:
		return "success"
	case CalFail:
		return "fail"
	default:
		return fmt.Sprintf("status %#x", uint32(c))
	}
}

func (c CalStatus) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Report is the state a sequencer leaves in its register file.
type Report struct {
	Status CalStatus

	// Where the sequencer is or stopped
	Current Failure
	Failure Failure

	FOMIn  uint8
	FOMOut uint8

	DTapsPerPTap  int
	FailingGroups int
	DebugInfo     uint32
}

// ReadReport decodes the register file of a sequencer on bus.
func ReadReport(bus regio.Bus, def *target.Definition) (Report, error) {
	rf := regio.Window{Bus: bus, Base: def.Layout.RegFile}
	phy := regio.Window{Bus: bus, Base: def.Layout.PHYMgr}

	sig := rf.Read32(regs.RegFileSignature)
	if err := regio.Err(bus); err != nil {
		return Report{}, err
	}
	if sig != regs.RegFileInitSeqSignature {
		return Report{}, fmt.Errorf("%w: read %#08x", ErrNoSignature, sig)
	}

	var r Report
	r.Status = CalStatus(phy.Read32(regs.PHYMgrCalStatus))
	r.Current = unpackFailure(rf.Read32(regs.RegFileCurStage))
	r.Failure = unpackFailure(rf.Read32(regs.RegFileFailingStage))
	r.FOMIn, r.FOMOut = regs.UnpackFOM(rf.Read32(regs.RegFileFOM))
	r.DTapsPerPTap = int(rf.Read32(regs.RegFileDTapsPerPTap))
	r.FailingGroups = int(rf.Read32(regs.RegFileDebug1))
	r.DebugInfo = phy.Read32(regs.PHYMgrCalDebugInfo)

	return r, regio.Err(bus)
}
