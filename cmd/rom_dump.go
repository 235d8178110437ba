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
	"github.com/spf13/cobra"

	"github.com/barebox/barebox-sub005/rom"
	"github.com/barebox/barebox-sub005/sequencer"
)

// romDumpCmd represents the rom dump command
var romDumpCmd = &cobra.Command{
	Use:   "dump [outfile.hex]",
	Short: "Read back the sequencer ROMs",
	Long:  `Reads both ROM windows of the read/write manager into an image`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		c, err := connectToTarget()
		if err != nil {
			return err
		}
		defer c.Close()

		inst, ac, err := sequencer.ReadROM(c.Bus, c.Target)
		if err != nil {
			return err
		}

		return writeImage(&rom.Image{Inst: inst, AC: ac}, args[0], format)
	},
}

// romConvertCmd represents the rom convert command
var romConvertCmd = &cobra.Command{
	Use:   "convert [infile] [outfile]",
	Short: "Convert ROM images",
	Long:  `Converts a ROM image between Intel HEX and raw binary`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("in-format")
		out, _ := cmd.Flags().GetString("format")

		img, err := readImage(args[0], in)
		if err != nil {
			return err
		}
		return writeImage(img, args[1], out)
	},
}

func init() {
	romCmd.AddCommand(romDumpCmd)
	romCmd.AddCommand(romConvertCmd)

	romConvertCmd.Flags().String("in-format", "auto", "input image format: hex, bin or auto")
}
