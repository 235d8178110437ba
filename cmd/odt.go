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

// odtCmd represents the odt command
var odtCmd = &cobra.Command{
	Use:   "odt",
	Short: "Show chip select and ODT words",
	Long: `Prints the chip select and ODT word the sequencer programs for each
rank of the target, with termination off and on`,
	RunE: func(cmd *cobra.Command, args []string) error {
		td, err := selectedTarget()
		if err != nil {
			return err
		}

		fmt.Println("RANK  OFF       READ/WRITE")
		for r := 0; r < td.Memory.Ranks; r++ {
			fmt.Printf("%-4d  %08x  %08x\n", r,
				sequencer.ODTMaskWord(td, r, false),
				sequencer.ODTMaskWord(td, r, true))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(odtCmd)
}
