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

	"github.com/barebox/barebox-sub005/sequencer"
)

// skipCmd represents the skip command
var skipCmd = &cobra.Command{
	Use:   "skip",
	Short: "Apply fixed PHY settings",
	Long: `Initialises the memory and applies the fixed settings of the target
instead of calibrating, then hands the PHY to the memory controller`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalibration(cmd, sequencer.Options{Skip: sequencer.SkipAll})
	},
}

func init() {
	rootCmd.AddCommand(skipCmd)
	addROMFlags(skipCmd)
}
