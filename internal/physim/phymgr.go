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

package physim

import (
	"github.com/barebox/barebox-sub005/regs"
)

func (p *PHY) writePHY(off, val uint32) {
	switch off {
	case regs.PHYMgrCmdIncVFIFOFR,
		regs.PHYMgrCmdIncVFIFOHardPHY,
		regs.PHYMgrCmdIncVFIFOFRHR,
		regs.PHYMgrCmdIncVFIFOQR:
		if val == regs.PHYMgrIncVFIFOAllGrps {
			for g := range p.vfifo {
				p.incVFIFO(g)
			}
		} else if int(val) < len(p.vfifo) {
			p.incVFIFO(int(val))
		}

	case regs.PHYMgrPhyRLat:
		p.rlat = int(val)
		p.rlatHist = append(p.rlatHist, p.rlat)
	}
}

func (p *PHY) incVFIFO(g int) {
	p.vfifo[g] = (p.vfifo[g] + 1) % p.def.IO.VFIFOSize
}

// VFIFO returns the VFIFO pointer of readGroup.
func (p *PHY) VFIFO(readGroup int) int {
	return p.vfifo[readGroup]
}

// ReadLatency returns the read latency in effect.
func (p *PHY) ReadLatency() int {
	return p.rlat
}

// ReadLatencyHistory returns every read latency written, in order.
func (p *PHY) ReadLatencyHistory() []int {
	return append([]int(nil), p.rlatHist...)
}
