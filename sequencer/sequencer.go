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

// Package sequencer calibrates a DDR SDRAM PHY: it finds and centres the
// read capture, DQS enable, write leveling, per-bit deskew and read latency
// settings, then hands the interface to the memory controller.
//
// A Sequencer owns one calibration run. It talks to the hardware only
// through a regio.Bus and adapts to the device generation through a
// target.Definition.
package sequencer

import (
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/barebox/barebox-sub005/regio"
	"github.com/barebox/barebox-sub005/target"
)

// DebugFlags alter the behaviour of a run.
type DebugFlags uint32

const (
	// Leave the sequencer in control of the PHY after calibration
	DebugInDebugMode DebugFlags = 1 << iota
	// Log the outcome of the run at the default verbosity
	DebugEnableCalReport
	// Log every centring margin at the default verbosity
	DebugEnableMarginReport
	// Keep calibrating the remaining groups after a failure
	DebugSweepAllGroups
	DebugDisableGuaranteedRead
)

// Steps selects calibration stages to skip.
type Steps uint32

const (
	SkipDelayLoops Steps = 1 << iota
	SkipDelaySweeps
	SkipVFIFO
	SkipLFIFO
	SkipWLevel
	SkipWrites

	// Apply fixed settings instead of calibrating
	SkipAll = SkipDelaySweeps | SkipVFIFO | SkipLFIFO | SkipWLevel | SkipWrites
)

// Options configures a calibration run.
type Options struct {
	Debug DebugFlags
	Skip  Steps

	// Groups and ranks excluded from calibration
	SkipGroups uint64
	SkipRanks  []int

	// Issue short test bursts
	QuickRead  bool
	QuickWrite bool
}

// params is established once per run and read-only afterwards.
type params struct {
	readCorrectMask    uint64
	writeCorrectMask   uint64
	readCorrectMaskVG  uint64
	writeCorrectMaskVG uint64
	dmCorrectMask      uint64

	skipRanks      []bool
	skipShadowRegs []bool
	skipGroups     uint64
}

// state is the mutable part of a run.
type state struct {
	currReadLat  int
	currWriteLat int

	failure Failure

	fomIn  int
	fomOut int

	rwWLNopCycles int
}

// Sequencer is the context of one calibration run.
type Sequencer struct {
	def  *target.Definition
	bus  regio.Bus
	opts Options

	scc  regio.Window
	phy  regio.Window
	rw   regio.Window
	data regio.Window
	rf   regio.Window
	ctrl regio.Window

	param params
	gbl   state

	dtapsPerPtap int
}

var ErrUnsupportedAlgorithm = errors.New("Unsupported DQS enable algorithm")

// New returns a sequencer for def operating on bus.
func New(bus regio.Bus, def *target.Definition, opts Options) (*Sequencer, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	if def.Calibration.DQSEnAlgorithm != target.DQSEnWindowCentering {
		return nil, fmt.Errorf("%w: %s requires %s", ErrUnsupportedAlgorithm, def.Name, def.Calibration.DQSEnAlgorithm)
	}

	for _, r := range opts.SkipRanks {
		if r < 0 || r >= def.Memory.Ranks {
			return nil, fmt.Errorf("Skipped rank %d out of range", r)
		}
	}

	l := def.Layout
	s := &Sequencer{
		def:  def,
		bus:  bus,
		opts: opts,
		scc:  regio.Window{Bus: bus, Base: l.SCCMgr},
		phy:  regio.Window{Bus: bus, Base: l.PHYMgr},
		rw:   regio.Window{Bus: bus, Base: l.RWMgr},
		data: regio.Window{Bus: bus, Base: l.DataMgr},
		rf:   regio.Window{Bus: bus, Base: l.RegFile},
		ctrl: regio.Window{Bus: bus, Base: l.Ctrl},
	}
	s.initParams()
	return s, nil
}

func lowMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}

func (s *Sequencer) initParams() {
	m := &s.def.Memory
	p := &s.param

	p.readCorrectMaskVG = lowMask(m.DQPerReadDQS / m.VirtualGroupsPerReadDQS)
	p.writeCorrectMaskVG = lowMask(m.DQPerWriteDQS / m.VirtualGroupsPerWriteDQS)
	p.readCorrectMask = lowMask(m.DQPerReadDQS)
	p.writeCorrectMask = lowMask(m.DQPerWriteDQS)
	p.dmCorrectMask = lowMask(m.DataWidth / m.DataMaskWidth)

	p.skipRanks = make([]bool, m.Ranks)
	for _, r := range s.opts.SkipRanks {
		p.skipRanks[r] = true
	}

	p.skipShadowRegs = make([]bool, m.NumShadowRegs())
	for sr := range p.skipShadowRegs {
		skip := true
		for r := sr * m.RanksPerShadowReg; r < (sr+1)*m.RanksPerShadowReg; r++ {
			skip = skip && p.skipRanks[r]
		}
		p.skipShadowRegs[sr] = skip
	}

	p.skipGroups = s.opts.SkipGroups
}

func (s *Sequencer) debug(f DebugFlags) bool {
	return s.opts.Debug&f != 0
}

func (s *Sequencer) skip(st Steps) bool {
	return s.opts.Skip&st == st
}

// writeGroupOf returns the write group containing readGroup.
func (s *Sequencer) writeGroupOf(readGroup int) int {
	return readGroup / s.def.Memory.ReadPerWriteDQS()
}

// staticDTapsPerPTap estimates the number of DQS enable delay taps in one
// phase tap from the nominal tap delays.
func (s *Sequencer) staticDTapsPerPTap() int {
	io := &s.def.IO
	n := 0
	for tmp := 0; tmp < io.DelayPerOPATap; tmp += io.DelayPerDQSEnDChainTap {
		n++
	}
	n--
	klog.V(2).Infof("static dtaps per ptap: %d", n)
	return n
}
