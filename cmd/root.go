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
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/barebox/barebox-sub005/protocol"
	_ "github.com/barebox/barebox-sub005/target/all"
)

var verbose bool
var targetName string
var busName string
var portName string
var baud int
var devmemPath string

var klogFlags = flag.NewFlagSet("klog", flag.ExitOnError)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "seqcal",
	Short: "DDR SDRAM PHY calibration sequencer",
	Long: `A tool for calibrating the DDR PHY of Altera hard and soft memory
	controllers over a register bridge, /dev/mem or a simulated PHY`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && !klog.V(2).Enabled() {
			return klogFlags.Set("v", "2")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	klog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "make verbose (log calibration progress, same as -v 2)")
	rootCmd.PersistentFlags().StringVarP(&targetName, "target", "t", "", "target PHY, see 'seqcal targets'")
	rootCmd.PersistentFlags().StringVarP(&busName, "bus", "b", "usb", "register bus: usb, serial, devmem or sim")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "serial port of the bridge")
	rootCmd.PersistentFlags().IntVar(&baud, "baud", protocol.DefaultBaud, "serial baud rate")
	rootCmd.PersistentFlags().StringVar(&devmemPath, "devmem", "/dev/mem", "physical memory device for --bus devmem")
}
