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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/barebox/barebox-sub005/target"
)

// targetsCmd represents the targets command
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List supported PHYs",
	Long:  `Lists the PHY definitions that can be passed to --target`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFAMILY\tPROTOCOL\tRATE\tRANKS\tDQS GROUPS\tWIDTH")
		for _, td := range target.All() {
			m := &td.Memory
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
				td.Name, td.Family, m.Protocol, td.Rate, m.Ranks, m.ReadDQSWidth, m.DataWidth)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
