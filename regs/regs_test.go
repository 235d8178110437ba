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

import "testing"

func TestPackStage(t *testing.T) {
	v := PackStage(4, 1, 3)
	if v != 0x00030104 {
		t.Fatalf("PackStage = %08x", v)
	}

	s, ss, g := UnpackStage(PackStage(9, 3, 0xff))
	if s != 9 || ss != 3 || g != 0xff {
		t.Errorf("UnpackStage = %d %d %d", s, ss, g)
	}
}

func TestLayoutSpan(t *testing.T) {
	l := Layout{
		SCCMgr:  0x1000,
		PHYMgr:  0x3000,
		RWMgr:   0x5000,
		DataMgr: 0x7000,
		RegFile: 0x7800,
		Ctrl:    0x9000,
	}

	lo, hi := l.Span()
	if lo != 0x1000 || hi != 0x9000+BlockSize {
		t.Errorf("Span = %x..%x", lo, hi)
	}
}
