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

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/barebox/barebox-sub005/rom"
)

func openRead(arg string) (io.ReadCloser, error) {
	if arg == "-" {
		return io.NopCloser(os.Stdin), nil
	} else {
		return os.Open(arg)
	}
}

type stdoutW struct {
	*bufio.Writer
}

func (w *stdoutW) Close() error {
	return w.Flush()
}

func (w *stdoutW) Abort() {
	w.Reset(io.Discard)
}

type fileW struct {
	*bufio.Writer
	f *os.File
}

func (w *fileW) Close() error {
	nm := w.f.Name()
	nms := strings.TrimSuffix(nm, "~")

	if err := w.Flush(); err != nil {
		return err
	}

	if err := w.f.Close(); err != nil {
		return err
	}

	return os.Rename(nm, nms)
}

// Abort drops the temporary file and leaves the destination alone.
func (w *fileW) Abort() {
	w.f.Close()
	os.Remove(w.f.Name())
}

// imageWriter is finished with Close, or with Abort when writing failed.
type imageWriter interface {
	io.WriteCloser
	Abort()
}

// openWrite writes through a temporary file renamed into place on Close,
// so a failed write never leaves a truncated image.
func openWrite(arg string) (imageWriter, error) {
	if arg == "-" {
		return &stdoutW{bufio.NewWriter(os.Stdout)}, nil
	} else {
		f, err := os.Create(arg + "~")
		if err != nil {
			return nil, err
		}

		return &fileW{
			bufio.NewWriter(f),
			f,
		}, nil
	}
}

// imageFormat picks the ROM image format from --format or the file name.
func imageFormat(format, path string) (string, error) {
	switch format {
	case "hex", "bin":
		return format, nil
	case "", "auto":
	default:
		return "", fmt.Errorf("Unknown image format '%s'", format)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin", ".raw":
		return "bin", nil
	default:
		return "hex", nil
	}
}

func readImage(path, format string) (*rom.Image, error) {
	format, err := imageFormat(format, path)
	if err != nil {
		return nil, err
	}

	rd, err := openRead(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	var img *rom.Image
	if format == "bin" {
		img, err = rom.ReadBinary(rd)
	} else {
		img, err = rom.ReadHex(rd)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func writeImage(img *rom.Image, path, format string) (err error) {
	format, err = imageFormat(format, path)
	if err != nil {
		return err
	}

	w, err := openWrite(path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			w.Abort()
			return
		}
		err = w.Close()
	}()

	if format == "bin" {
		return img.WriteBinary(w)
	}
	return img.WriteHex(w)
}
