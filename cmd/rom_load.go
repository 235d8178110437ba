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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barebox/barebox-sub005/sequencer"
)

// romLoadCmd represents the rom load command
var romLoadCmd = &cobra.Command{
	Use:   "load [image.hex]",
	Short: "Load the sequencer ROMs",
	Long:  `Writes an instruction and address/command ROM image into the read/write manager`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		img, err := readImage(args[0], format)
		if err != nil {
			return err
		}

		c, err := connectToTarget()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := sequencer.LoadROM(c.Bus, c.Target, img.Inst, img.AC); err != nil {
			return err
		}

		fmt.Printf("Loaded %d instruction and %d AC words\n", len(img.Inst), len(img.AC))
		return nil
	},
}

func init() {
	romCmd.AddCommand(romLoadCmd)
}
