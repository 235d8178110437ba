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

// Package physim models the sequencer-visible behaviour of a DDR PHY and
// its memory. Reads and writes pass or fail depending on where the
// programmed delay chains put the strobes relative to windows supplied
// by the caller.
package physim

import (
	"github.com/barebox/barebox-sub005/regs"
	"github.com/barebox/barebox-sub005/target"
)

// Window is an inclusive range.
type Window struct {
	Lo, Hi int
}

func (w Window) Contains(v int) bool {
	return v >= w.Lo && v <= w.Hi
}

// Model describes the board.
type Model struct {
	// Enable lists, per read group, the DQS enable positions in
	// picoseconds that capture read data. Positions count from VFIFO
	// position 0 and wrap after VFIFOSize clock cycles.
	Enable [][]Window

	// ReadEye is, per read group and bit, the DQS input delay minus the
	// DQ input delay that samples correctly.
	ReadEye [][]Window

	// WriteEye is, per write group and bit, the DQS output delay minus
	// the DQ output delay that the memory latches correctly.
	WriteEye [][]Window

	// DMEye is, per write group, the DQS output delay minus the DM
	// output delay.
	DMEye []Window

	// WriteLevel is, per write group, the DQS arrival in picoseconds,
	// output phase plus output delay, that meets the memory clock. Nil
	// when the PHY levels writes itself.
	WriteLevel []Window

	MinReadLatency int

	// Bit p set: the guaranteed read works at DQ/DQS output phase p.
	// Zero means every phase works.
	GuaranteedReadPhases uint32
	// Bit p set: the guaranteed read works at DQS enable phase p.
	// Zero means every phase works.
	GuaranteedReadEnPhases uint32

	MemTWL, MemTAdd, MemTRL uint32
}

// Uniform returns a model with the same windows on every group and bit.
func Uniform(def *target.Definition, enable, readEye, writeEye, dmEye Window, writeLevel *Window) Model {
	m := &def.Memory
	md := Model{
		Enable:         make([][]Window, m.ReadDQSWidth),
		ReadEye:        make([][]Window, m.ReadDQSWidth),
		WriteEye:       make([][]Window, m.WriteDQSWidth),
		DMEye:          make([]Window, m.WriteDQSWidth),
		MinReadLatency: 14,
		MemTWL:         6,
		MemTRL:         11,
	}
	for rg := range md.Enable {
		md.Enable[rg] = []Window{enable}
		md.ReadEye[rg] = fill(m.DQPerReadDQS, readEye)
	}
	for wg := range md.WriteEye {
		md.WriteEye[wg] = fill(m.DQPerWriteDQS, writeEye)
		md.DMEye[wg] = dmEye
	}
	if writeLevel != nil {
		md.WriteLevel = fill(m.WriteDQSWidth, *writeLevel)
	}
	return md
}

// Nominal returns a healthy board for def: eyes open around the reserve
// delays, a DQS enable window near three clock cycles and, for half rate
// PHYs, a shorter read latency.
func Nominal(def *target.Definition) Model {
	var wl *Window
	if !def.Calibration.WriteLevelInHardIP {
		wl = &Window{Lo: 1000, Hi: 1900}
	}
	m := Uniform(def,
		Window{Lo: 9000, Hi: 10300},
		Window{Lo: -6, Hi: 14},
		Window{Lo: -7, Hi: 15},
		Window{Lo: -5, Hi: 13},
		wl)
	if def.Rate == target.HalfRate {
		m.MinReadLatency = 9
	}
	return m
}

func fill(n int, w Window) []Window {
	ws := make([]Window, n)
	for i := range ws {
		ws[i] = w
	}
	return ws
}

// sccKey addresses one delay chain setting. Group settings have pin -1.
type sccKey struct {
	shadow int
	reg    uint32
	group  int
	pin    int
}

// PHY is a register bus backed by a Model.
type PHY struct {
	def   *target.Definition
	model Model

	raw map[uint32]uint32

	// SCC manager
	activeShadow int
	groupCounter int
	staged       map[sccKey]int
	live         map[sccKey]int
	pending      map[sccKey]bool
	updates      int

	// PHY manager
	vfifo    []int
	rlat     int
	rlatHist []int

	// RW manager
	csMask   uint32
	patterns []bool
	lastErr  uint32
	runs     map[uint32]int
}

// New returns a PHY for def behaving as m describes.
func New(def *target.Definition, m Model) *PHY {
	return &PHY{
		def:      def,
		model:    m,
		raw:      make(map[uint32]uint32),
		staged:   make(map[sccKey]int),
		live:     make(map[sccKey]int),
		pending:  make(map[sccKey]bool),
		vfifo:    make([]int, def.Memory.ReadDQSWidth),
		patterns: make([]bool, def.Memory.Ranks),
		runs:     make(map[uint32]int),
		csMask:   0xff,
	}
}

type block int

const (
	blockNone block = iota
	blockSCC
	blockPHY
	blockRW
	blockData
	blockRegFile
	blockCtrl
)

// decode finds the manager block holding addr: the one with the highest
// base not above it.
func (p *PHY) decode(addr uint32) (block, uint32) {
	l := p.def.Layout
	bases := []struct {
		b    block
		base uint32
	}{
		{blockSCC, l.SCCMgr},
		{blockPHY, l.PHYMgr},
		{blockRW, l.RWMgr},
		{blockData, l.DataMgr},
		{blockRegFile, l.RegFile},
		{blockCtrl, l.Ctrl},
	}

	best, off := blockNone, uint32(0)
	var bestBase uint32
	for _, b := range bases {
		if addr < b.base || addr-b.base >= regs.BlockSize {
			continue
		}
		if best == blockNone || b.base > bestBase {
			best, bestBase, off = b.b, b.base, addr-b.base
		}
	}
	return best, off
}

func (p *PHY) Read32(addr uint32) uint32 {
	b, off := p.decode(addr)
	switch b {
	case blockSCC:
		if k, ok := p.sccKeyFor(off); ok {
			return uint32(p.staged[k])
		}
	case blockRW:
		if off == regs.RWMgrErrorMask {
			return p.lastErr
		}
	case blockData:
		switch off {
		case regs.DataMgrMemTWL:
			return p.model.MemTWL
		case regs.DataMgrMemTAdd:
			return p.model.MemTAdd
		case regs.DataMgrMemTRL:
			return p.model.MemTRL
		}
	}
	return p.raw[addr]
}

func (p *PHY) Write32(addr, val uint32) {
	p.raw[addr] = val

	b, off := p.decode(addr)
	switch b {
	case blockSCC:
		p.writeSCC(off, val)
	case blockPHY:
		p.writePHY(off, val)
	case blockRW:
		p.writeRW(off, val)
	}
}
