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
	"github.com/barebox/barebox-sub005/target"
	"github.com/barebox/barebox-sub005/target/cyclone5"
)

// openModel returns a board whose DQS enable works at every position, so
// that only the read latency decides.
func openModel(def *target.Definition) physim.Model {
	io := &def.IO
	ring := io.VFIFOSize * (io.DQSEnPhaseMax + 1) * io.DelayPerOPATap

	m := boardModel(def)
	for rg := range m.Enable {
		m.Enable[rg] = []physim.Window{{Lo: 0, Hi: ring - 1}}
	}
	return m
}

func TestCalibrateLFIFO(t *testing.T) {
	def := cyclone5.HPSDDR3
	s, phy := newSim(t, def, openModel(def), Options{})
	prepare(s)

	if !s.calibrateLFIFO() {
		t.Fatalf("calibrateLFIFO failed: %v", s.gbl.failure)
	}

	if got := phy.ReadLatency(); got != 16 {
		t.Errorf("read latency %d, want 16", got)
	}
	if s.gbl.currReadLat != phy.ReadLatency() {
		t.Errorf("tracked read latency %d, PHY has %d", s.gbl.currReadLat, phy.ReadLatency())
	}

	// The search only ever lowers the latency; the margin is added once
	// at the end.
	hist := phy.ReadLatencyHistory()
	if len(hist) < 3 {
		t.Fatalf("history %v", hist)
	}
	search := hist[1 : len(hist)-1]
	for i := 1; i < len(search); i++ {
		if search[i] >= search[i-1] {
			t.Fatalf("latency rose during search: %v", hist)
		}
	}
	if last := search[len(search)-1]; last != 13 {
		t.Errorf("search stopped at %d, want the first failure at 13", last)
	}
}

func TestCalibrateLFIFONoWorkingLatency(t *testing.T) {
	def := cyclone5.HPSDDR3
	m := openModel(def)
	m.MinReadLatency = 28

	s, _ := newSim(t, def, m, Options{})
	prepare(s)

	if s.calibrateLFIFO() {
		t.Fatal("calibrateLFIFO passed with no working latency")
	}
	want := Failure{Stage: StageLFIFO, Substage: SubstageReadLatency, Group: GroupNone}
	if s.gbl.failure != want {
		t.Errorf("failure %v, want %v", s.gbl.failure, want)
	}
}
