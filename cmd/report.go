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
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/barebox/barebox-sub005/sequencer"
)

func printReport(r sequencer.Report) {
	switch r.Status {
	case sequencer.CalSuccess:
		color.Green("Status:          %s", r.Status)
	case sequencer.CalFail:
		color.Red("Status:          %s", r.Status)
	default:
		color.Yellow("Status:          %s", r.Status)
	}

	fmt.Printf("Current stage:   %s\n", r.Current)
	if r.Status == sequencer.CalFail {
		fmt.Printf("First failure:   %s\n", r.Failure)
		fmt.Printf("Failing groups:  %d\n", r.FailingGroups)
	}
	fmt.Printf("FOM in/out:      %d/%d\n", r.FOMIn, r.FOMOut)
	fmt.Printf("Dtaps per ptap:  %d\n", r.DTapsPerPTap)
	fmt.Printf("Debug info:      0x%08x\n", r.DebugInfo)
}

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Decode the calibration report",
	Long:  `Reads the calibration result the sequencer left in its register file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		c, err := connectToTarget()
		if err != nil {
			return err
		}
		defer c.Close()

		r, err := sequencer.ReadReport(c.Bus, c.Target)
		if err != nil {
			return err
		}

		if !asJSON {
			printReport(r)
			return nil
		}

		buf, err := json.MarshalIndent(r, "", "    ")
		if err != nil {
			return err
		}

		fmt.Println(string(buf))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("json", false, "print the report as JSON")
}
