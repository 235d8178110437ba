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

import "fmt"

type EdgeState uint8

const (
	EdgeUnknown EdgeState = iota
	// The edge tap was seen directly
	EdgeObserved
	// The edge lies on the far side of the reference point; it was
	// inferred from a failure seen before the first pass
	EdgeInferred
)

// Edge is one side of a bit's passing window, in delay taps away from the
// reference setting.
type Edge struct {
	state EdgeState
	tap   int
}

// Observed returns an edge seen at tap.
func Observed(tap int) Edge {
	return Edge{state: EdgeObserved, tap: tap}
}

// Inferred returns an edge inferred from a failure at tap.
func Inferred(tap int) Edge {
	return Edge{state: EdgeInferred, tap: tap}
}

func (e Edge) State() EdgeState {
	return e.state
}

func (e Edge) Known() bool {
	return e.state != EdgeUnknown
}

// Margin returns the signed distance of the edge from the reference
// setting. Inferred edges lie one tap beyond the failing tap on the
// negative side.
func (e Edge) Margin() int {
	switch e.state {
	case EdgeObserved:
		return e.tap
	case EdgeInferred:
		return -(e.tap + 1)
	default:
		panic("margin of unknown edge")
	}
}

func (e Edge) String() string {
	switch e.state {
	case EdgeObserved:
		return fmt.Sprintf("%d", e.tap)
	case EdgeInferred:
		return fmt.Sprintf("%d (inferred)", e.Margin())
	default:
		return "unknown"
	}
}
