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
	"reflect"
	"testing"
)

func edges(t *testing.T, lr ...int) (left, right []Edge) {
	t.Helper()
	if len(lr)%2 != 0 {
		t.Fatal("odd number of edges")
	}
	for i := 0; i < len(lr); i += 2 {
		left = append(left, Observed(lr[i]))
		right = append(right, Observed(lr[i+1]))
	}
	return left, right
}

func TestCenterWindowsAligned(t *testing.T) {
	left, right := edges(t, 5, 5, 5, 5, 5, 5, 5, 5)
	c := centerWindows(left, right, windowLimits{startDQS: 8, dqsMax: 31, dqMax: 31})

	if !reflect.DeepEqual(c.dq, []int{0, 0, 0, 0}) {
		t.Errorf("dq = %v, want no shifts", c.dq)
	}
	if c.dqs != 8 {
		t.Errorf("dqs = %d, want 8", c.dqs)
	}
	if c.dqMargin != 5 || c.dqsMargin != 5 {
		t.Errorf("margins %d/%d, want 5/5", c.dqMargin, c.dqsMargin)
	}
}

func TestCenterWindowsSkewedBits(t *testing.T) {
	// Windows at absolute taps 3..10, 5..12 and 3..12 seen from DQS at 8
	left, right := edges(t, 5, 2, 3, 4, 5, 4, 5, 4)
	c := centerWindows(left, right, windowLimits{startDQS: 8, dqsMax: 31, dqMax: 31})

	if !reflect.DeepEqual(c.dq, []int{2, 0, 1, 1}) {
		t.Errorf("dq = %v, want [2 0 1 1]", c.dq)
	}
	if c.dq[0]-c.dq[1] != 2 {
		t.Errorf("bit 0 moved %d taps against bit 1, want 2", c.dq[0]-c.dq[1])
	}
	if c.dqs != 8 {
		t.Errorf("dqs = %d, want 8", c.dqs)
	}
	if c.dqMargin != 3 || c.dqsMargin != 4 {
		t.Errorf("margins %d/%d, want 3/4", c.dqMargin, c.dqsMargin)
	}
	if !c.ok() {
		t.Error("centering not ok")
	}
}

func TestCenterWindowsClampsDQS(t *testing.T) {
	// Wants DQS 4 taps earlier, but only 2 are left
	left, right := edges(t, 9, 1)
	c := centerWindows(left, right, windowLimits{startDQS: 2, dqsMax: 31, dqMax: 31})

	if c.dqs != 0 {
		t.Errorf("dqs = %d, want 0", c.dqs)
	}
	// The rest is made up on the DQ side
	if c.dq[0] != 2 {
		t.Errorf("dq = %d, want 2", c.dq[0])
	}
	if c.dqMargin != 5 || c.dqsMargin != 5 {
		t.Errorf("margins %d/%d, want 5/5", c.dqMargin, c.dqsMargin)
	}
}

func TestCenterWindowsShiftsEnable(t *testing.T) {
	left, right := edges(t, 1, 9)
	c := centerWindows(left, right, windowLimits{
		startDQS: 4, dqsMax: 31, dqMax: 31,
		shiftEn: true, startEn: 30, enMax: 31,
	})

	// DQS would move 4 taps later, the enable delay only has 1 left
	if c.dqsEn != 31 || c.dqs != 5 {
		t.Errorf("dqs %d enable %d, want 5 and 31", c.dqs, c.dqsEn)
	}
}

// fakeGroup passes bit i while DQS minus DQ lies in windows[i].
type fakeGroup struct {
	startDQS int
	dq, dqs  int
	windows  [][2]int
}

func (f *fakeGroup) search() edgeSearch {
	return edgeSearch{
		bits:   len(f.windows),
		mask:   lowMask(len(f.windows)),
		dqMax:  31,
		dqsMax: 31 - f.startDQS,
		setDQ:  func(d int) { f.dq = d },
		setDQS: func(d int) { f.dqs = f.startDQS + d },
		test: func() uint64 {
			var chk uint64
			for i, w := range f.windows {
				if v := f.dqs - f.dq; v >= w[0] && v <= w[1] {
					chk |= 1 << uint(i)
				}
			}
			return chk
		},
	}
}

func TestEdgeSearch(t *testing.T) {
	f := &fakeGroup{
		startDQS: 8,
		dqs:      8,
		windows:  [][2]int{{3, 10}, {5, 12}, {3, 12}, {3, 12}},
	}
	e := f.search()
	left, right := e.run()

	wantL, wantR := edges(t, 5, 2, 3, 4, 5, 4, 5, 4)
	if !reflect.DeepEqual(left, wantL) || !reflect.DeepEqual(right, wantR) {
		t.Errorf("edges %v %v, want %v %v", left, right, wantL, wantR)
	}
	if f.dq != 0 {
		t.Errorf("DQ left at %d after the search", f.dq)
	}
}

func TestEdgeSearchInfersLeftEdge(t *testing.T) {
	// Only passes once DQS has moved later
	f := &fakeGroup{startDQS: 8, dqs: 8, windows: [][2]int{{9, 12}}}
	e := f.search()
	left, right := e.run()

	if left[0] != Inferred(0) || right[0] != Observed(4) {
		t.Fatalf("edges %v %v, want left inferred at 0, right 4", left[0], right[0])
	}

	c := centerWindows(left, right, windowLimits{startDQS: 8, dqsMax: 31, dqMax: 31})
	if c.dqs != 10 || c.dq[0] != 0 {
		t.Errorf("dqs %d dq %d, want 10 and 0", c.dqs, c.dq[0])
	}
	if !c.ok() {
		t.Errorf("margins %d/%d", c.dqMargin, c.dqsMargin)
	}
}

func TestEdgeSearchMissingEdge(t *testing.T) {
	f := &fakeGroup{startDQS: 8, dqs: 8, windows: [][2]int{{3, 12}, {100, 101}}}
	e := f.search()
	left, right := e.run()

	if edgesComplete(left, right) {
		t.Errorf("edges %v %v reported complete for a bit that never passes", left, right)
	}
	if !left[0].Known() || !right[0].Known() {
		t.Errorf("bit 0 edges %v %v", left[0], right[0])
	}
}
