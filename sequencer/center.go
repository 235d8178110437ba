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
)

// edgeSearch finds the window of every bit of a group in two sweeps:
// first the DQ delays move while DQS stays, then DQS moves while the DQ
// delays are back at zero.
//
// Bit i of a test result corresponds to element i of the edge slices.
type edgeSearch struct {
	bits int
	mask uint64

	dqMax  int
	dqsMax int // steps beyond the starting DQS delay

	setDQ  func(d int)
	setDQS func(d int)

	// test returns the passing bits.
	test func() uint64
}

func (e *edgeSearch) run() (left, right []Edge) {
	left = make([]Edge, e.bits)
	right = make([]Edge, e.bits)

	var sticky uint64
	for d := 0; d <= e.dqMax; d++ {
		e.setDQ(d)
		chk := e.test() & e.mask
		sticky |= chk
		if chk == 0 && sticky == e.mask {
			break
		}

		for i := 0; i < e.bits; i++ {
			if chk&(1<<uint(i)) != 0 {
				left[i] = Observed(d)
			} else if !left[i].Known() {
				// A later pass will see this as its right edge
				right[i] = Inferred(d)
			}
		}
	}
	e.setDQ(0)

	sticky = 0
	for i := 0; i < e.bits; i++ {
		if !left[i].Known() {
			right[i] = Edge{}
		}
		if left[i].Known() && right[i].Known() {
			sticky |= 1 << uint(i)
		}
	}

	for d := 0; d <= e.dqsMax; d++ {
		e.setDQS(d)
		chk := e.test() & e.mask
		sticky |= chk
		if chk == 0 && sticky == e.mask {
			break
		}

		for i := 0; i < e.bits; i++ {
			switch {
			case chk&(1<<uint(i)) != 0:
				right[i] = Observed(d)
			case right[i].Known():
			case d == 0 && left[i].Known():
				// Passed during the DQ sweep, so the window ends here
				right[i] = Inferred(0)
			default:
				left[i] = Inferred(d)
			}
		}
	}
	return left, right
}

func edgesComplete(left, right []Edge) bool {
	for i := range left {
		if !left[i].Known() || !right[i].Known() {
			return false
		}
	}
	return true
}

// windowLimits bound the result of centring a group.
type windowLimits struct {
	startDQS int
	dqsMax   int
	dqMax    int

	// The DQS enable delay follows the DQS delay
	shiftEn bool
	startEn int
	enMax   int
}

type centering struct {
	dq    []int
	dqs   int
	dqsEn int

	dqMargin  int
	dqsMargin int
}

func (c *centering) ok() bool {
	return c.dqMargin >= 0 && c.dqsMargin >= 0
}

// centerWindows moves DQS to the middle of the narrowest window, then
// delays each DQ bit to line the middle of its window up with it.
func centerWindows(left, right []Edge, lim windowLimits) centering {
	minIdx := 0
	midMin := left[0].Margin() - right[0].Margin()
	for i := 1; i < len(left); i++ {
		if mid := left[i].Margin() - right[i].Margin(); mid < midMin {
			midMin = mid
			minIdx = i
		}
	}
	if midMin > 0 {
		midMin++
	}
	midMin /= 2

	origMidMin := midMin
	newDQS := clamp(lim.startDQS-midMin, 0, lim.dqsMax)
	midMin = lim.startDQS - newDQS

	c := centering{dqsEn: lim.startEn}
	if lim.shiftEn {
		if en := lim.startEn - midMin; en > lim.enMax {
			midMin += en - lim.enMax
		} else if en < 0 {
			midMin += en
		}
		c.dqsEn = lim.startEn - midMin
	}
	c.dqs = lim.startDQS - midMin

	minMid := left[minIdx].Margin() - right[minIdx].Margin()
	c.dq = make([]int, len(left))
	c.dqMargin = 1 << 30
	c.dqsMargin = 1 << 30
	for i := range left {
		l, r := left[i].Margin(), right[i].Margin()
		shift := (l-r-minMid)/2 + (origMidMin - midMin)
		shift = clamp(shift, 0, lim.dqMax)
		c.dq[i] = shift

		if m := l - shift - midMin; m < c.dqMargin {
			c.dqMargin = m
		}
		if m := r + shift + midMin; m < c.dqsMargin {
			c.dqsMargin = m
		}
	}
	return c
}

// centerRead deskews the DQ inputs of readGroup and centres its DQS input
// delay on one shadow register set. With useReadTest the guaranteed
// patterns are read back; otherwise write-then-read bursts are used.
func (s *Sequencer) centerRead(rankBgn, readGroup, testBgn int, stage Stage, useReadTest, updateFOM bool) bool {
	m := &s.def.Memory
	io := &s.def.IO
	writeGroup := s.writeGroupOf(readGroup)

	startDQS := s.dqsInDelay(readGroup)
	startEn := s.dqsEnDelay(readGroup)

	setDQS := func(d int) {
		s.setDQSInDelay(readGroup, d)
		s.loadDQS(readGroup)
		if io.ShiftDQSEnWhenShiftDQS {
			s.setDQSEnDelay(readGroup, clamp(startEn+d-startDQS, 0, io.DQSEnDelayMax))
			s.loadDQS(readGroup)
		}
		s.upd()
	}

	e := edgeSearch{
		bits:   m.DQPerReadDQS,
		mask:   s.param.readCorrectMask,
		dqMax:  io.InDelayMax,
		dqsMax: io.DQSInDelayMax - startDQS,
		setDQ: func(d int) {
			s.applyGroupDQInDelay(testBgn, d)
			s.upd()
		},
		setDQS: func(d int) { setDQS(startDQS + d) },
		test: func() uint64 {
			if useReadTest {
				_, chk := s.readTest(rankBgn, readGroup, false, false, false)
				return chk
			}
			_, chk := s.writeTest(rankBgn, writeGroup, false, false, false)
			return chk >> uint(testBgn) & s.param.readCorrectMask
		},
	}
	left, right := e.run()

	if !edgesComplete(left, right) {
		setDQS(startDQS)
		klog.V(2).Infof("group %d: read window not found: left %v right %v", readGroup, left, right)
		s.setFailingGroupStage(readGroup, stage, SubstageVFIFOCenter)
		return false
	}

	c := centerWindows(left, right, windowLimits{
		startDQS: startDQS,
		dqsMax:   io.DQSInDelayMax,
		dqMax:    io.InDelayMax,
		shiftEn:  io.ShiftDQSEnWhenShiftDQS,
		startEn:  startEn,
		enMax:    io.DQSEnDelayMax,
	})

	for i, d := range c.dq {
		s.setInDelay(testBgn+i, d)
		s.loadDQ(testBgn + i)
	}
	s.setDQSInDelay(readGroup, c.dqs)
	if io.ShiftDQSEnWhenShiftDQS {
		s.setDQSEnDelay(readGroup, c.dqsEn)
	}
	s.loadDQS(readGroup)
	s.upd()

	klog.V(2).Infof("group %d: read DQS delay %d, DQ %v, margins dq %d dqs %d", readGroup, c.dqs, c.dq, c.dqMargin, c.dqsMargin)
	if s.debug(DebugEnableMarginReport) {
		klog.Infof("read group %d rank %d: dq margin %d dqs margin %d", readGroup, rankBgn, c.dqMargin, c.dqsMargin)
	}

	if updateFOM {
		s.gbl.fomIn += (c.dqMargin + c.dqsMargin) / m.ReadPerWriteDQS()
	}

	return c.ok()
}

// dmWindow tracks the widest run of passing data mask positions.
type dmWindow struct {
	bgn, end int
	open     bool

	bestBgn, bestEnd int
	best             int
}

func (w *dmWindow) pass(pos int) {
	if !w.open {
		w.bgn = pos
		w.open = true
	}
	w.end = pos
	if n := w.end - w.bgn + 1; n > w.best {
		w.best = n
		w.bestBgn = w.bgn
		w.bestEnd = w.end
	}
}

func (w *dmWindow) fail() {
	w.open = false
}

// centerWrites deskews the DQ outputs of writeGroup, centres its DQS
// output and then centres the data mask within the data eye.
func (s *Sequencer) centerWrites(rankBgn, writeGroup, testBgn int) bool {
	m := &s.def.Memory
	io := &s.def.IO

	s.setStage(StageWrites)
	s.setSubstage(SubstageWritesCenter)
	s.setGroup(writeGroup)

	startDQS := s.out1Delay(s.dqsIOIndex())

	setDQS := func(d int) {
		s.applyGroupDQSIOAndOCTOut1(writeGroup, d)
		s.upd()
	}

	e := edgeSearch{
		bits:   m.DQPerWriteDQS,
		mask:   s.param.writeCorrectMask,
		dqMax:  io.Out1DelayMax,
		dqsMax: io.Out1DelayMax - startDQS,
		setDQ: func(d int) {
			s.applyGroupDQOut1Delay(d)
			s.upd()
		},
		setDQS: func(d int) { setDQS(startDQS + d) },
		test: func() uint64 {
			_, chk := s.writeTest(rankBgn, writeGroup, false, false, false)
			return chk
		},
	}
	left, right := e.run()

	if !edgesComplete(left, right) {
		setDQS(startDQS)
		klog.V(2).Infof("group %d: write window not found: left %v right %v", writeGroup, left, right)
		s.setFailingGroupStage(writeGroup, StageWrites, SubstageWritesCenter)
		return false
	}

	c := centerWindows(left, right, windowLimits{
		startDQS: startDQS,
		dqsMax:   io.Out1DelayMax,
		dqMax:    io.Out1DelayMax,
	})

	for i, d := range c.dq {
		s.setOut1Delay(i, d)
		s.loadDQ(i)
	}
	s.upd()
	s.setGroupDQSIOAndOCTOut1Gradual(writeGroup, c.dqs)

	// Data mask: first delay DM against DQS, then delay DQS against DM.
	// Positions are DQS minus DM delay.
	var w dmWindow
	for d := io.Out1DelayMax; d >= 0; d-- {
		s.applyGroupDMOut1Delay(d)
		s.upd()
		if ok, _ := s.writeTest(rankBgn, writeGroup, true, true, false); ok {
			w.pass(-d)
		} else {
			w.fail()
		}
	}
	s.applyGroupDMOut1Delay(0)
	s.upd()

	// An open window reaches delay zero and carries on into the DQS sweep
	for d := 0; d <= io.Out1DelayMax-c.dqs; d++ {
		setDQS(c.dqs + d)
		if ok, _ := s.writeTest(rankBgn, writeGroup, true, true, false); ok {
			w.pass(d)
			continue
		}
		w.fail()
		if w.best-1 > io.Out1DelayMax-c.dqs-d {
			break
		}
	}
	s.setGroupDQSIOAndOCTOut1Gradual(writeGroup, c.dqs)

	dmLeft, dmRight := -w.bestBgn, w.bestEnd
	mid := (dmLeft - dmRight) / 2
	if mid < 0 {
		mid = 0
	}
	dmMargin := -1
	if w.best > 0 {
		dmMargin = dmLeft - mid
	}
	s.applyGroupDMOut1Delay(mid)
	s.upd()

	klog.V(2).Infof("group %d: write DQS delay %d, DQ %v, DM %d, margins dq %d dqs %d dm %d",
		writeGroup, c.dqs, c.dq, mid, c.dqMargin, c.dqsMargin, dmMargin)
	if s.debug(DebugEnableMarginReport) {
		klog.Infof("write group %d rank %d: dq margin %d dqs margin %d dm margin %d",
			writeGroup, rankBgn, c.dqMargin, c.dqsMargin, dmMargin)
	}

	s.gbl.fomOut += c.dqMargin + c.dqsMargin

	return c.ok() && dmMargin >= 0
}
