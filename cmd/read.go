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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/barebox/barebox-sub005/regio"
)

func parseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a 32-bit value", s)
	}
	return uint32(v), nil
}

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read [address] [count]",
	Short: "Read PHY registers",
	Long:  `Reads consecutive 32-bit registers from the register bus`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseWord(args[0])
		if err != nil {
			return err
		}
		count := uint32(1)
		if len(args) > 1 {
			if count, err = parseWord(args[1]); err != nil {
				return err
			}
		}

		c, err := connectToTarget()
		if err != nil {
			return err
		}
		defer c.Close()

		for i := uint32(0); i < count; i++ {
			a := addr + 4*i
			v := c.Bus.Read32(a)
			if err := regio.Err(c.Bus); err != nil {
				return err
			}
			fmt.Printf("%08x: %08x\n", a, v)
		}
		return nil
	},
}

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write [address] [value]",
	Short: "Write a PHY register",
	Long:  `Writes one 32-bit register on the register bus`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseWord(args[0])
		if err != nil {
			return err
		}
		val, err := parseWord(args[1])
		if err != nil {
			return err
		}

		c, err := connectToTarget()
		if err != nil {
			return err
		}
		defer c.Close()

		c.Bus.Write32(addr, val)
		return regio.Err(c.Bus)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
}
