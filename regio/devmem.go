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
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem maps a physical address range through /dev/mem, for running on
// the SoC itself.
type DevMem struct {
	f    *os.File
	mem  []byte
	base uint32
	err  error
}

// OpenDevMem maps size bytes of physical memory starting at base. base must
// be page aligned.
func OpenDevMem(path string, base uint32, size int) (*DevMem, error) {
	if base%uint32(os.Getpagesize()) != 0 {
		return nil, fmt.Errorf("Base 0x%08x is not page aligned", base)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}

	mem, err := unix.Mmap(int(f.Fd()), int64(base), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &DevMem{f: f, mem: mem, base: base}, nil
}

func (m *DevMem) word(addr uint32) *uint32 {
	off := int64(addr) - int64(m.base)
	if off < 0 || off+4 > int64(len(m.mem)) || off%4 != 0 {
		if m.err == nil {
			m.err = fmt.Errorf("Address 0x%08x outside mapped window", addr)
		}
		return nil
	}
	return (*uint32)(unsafe.Pointer(&m.mem[off]))
}

func (m *DevMem) Read32(addr uint32) uint32 {
	p := m.word(addr)
	if p == nil {
		return 0
	}
	return atomic.LoadUint32(p)
}

func (m *DevMem) Write32(addr, val uint32) {
	if p := m.word(addr); p != nil {
		atomic.StoreUint32(p, val)
	}
}

func (m *DevMem) Err() error {
	return m.err
}

func (m *DevMem) Close() error {
	if m == nil || m.mem == nil {
		return nil
	}

	err := unix.Munmap(m.mem)
	m.mem = nil
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
