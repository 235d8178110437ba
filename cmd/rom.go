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
)

// romCmd represents the rom command
var romCmd = &cobra.Command{
	Use:   "rom",
	Short: "Sequencer ROM commands",
	Long: `Commands for the instruction and address/command ROMs of the
read/write manager`,
}

func init() {
	rootCmd.AddCommand(romCmd)

	romCmd.PersistentFlags().StringP("format", "f", "auto", "image format: hex, bin or auto (by file extension)")
}
