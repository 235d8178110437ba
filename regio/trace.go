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

package regio

import (
	"k8s.io/klog/v2"
)

// Trace wraps a Bus and logs every access at verbosity 4.
type Trace struct {
	Bus Bus
}

func (t Trace) Read32(addr uint32) uint32 {
	v := t.Bus.Read32(addr)
	klog.V(4).Infof("rd %08x -> %08x", addr, v)
	return v
}

func (t Trace) Write32(addr, val uint32) {
	klog.V(4).Infof("wr %08x <- %08x", addr, val)
	t.Bus.Write32(addr, val)
}

func (t Trace) Err() error {
	return Err(t.Bus)
}

// NewTrace wraps b in a Trace when register tracing is enabled.
func NewTrace(b Bus) Bus {
	if klog.V(4).Enabled() {
		return Trace{Bus: b}
	}
	return b
}
