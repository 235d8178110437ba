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
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/barebox/barebox-sub005/sequencer"
)

var skipSteps = map[string]sequencer.Steps{
	"delays":       sequencer.SkipDelayLoops,
	"delay-sweeps": sequencer.SkipDelaySweeps,
	"vfifo":        sequencer.SkipVFIFO,
	"lfifo":        sequencer.SkipLFIFO,
	"wlevel":       sequencer.SkipWLevel,
	"writes":       sequencer.SkipWrites,
	"all":          sequencer.SkipAll,
}

func calibrationOptions(cmd *cobra.Command) (sequencer.Options, error) {
	var opts sequencer.Options
	flags := cmd.Flags()

	debugFlags := []struct {
		name string
		flag sequencer.DebugFlags
	}{
		{"debug-mode", sequencer.DebugInDebugMode},
		{"sweep-all", sequencer.DebugSweepAllGroups},
		{"no-guaranteed-read", sequencer.DebugDisableGuaranteedRead},
		{"cal-report", sequencer.DebugEnableCalReport},
		{"margin-report", sequencer.DebugEnableMarginReport},
	}
	for _, f := range debugFlags {
		if on, _ := flags.GetBool(f.name); on {
			opts.Debug |= f.flag
		}
	}

	skip, _ := flags.GetStringSlice("skip")
	for _, s := range skip {
		st, ok := skipSteps[strings.ToLower(s)]
		if !ok {
			return opts, fmt.Errorf("Unknown calibration step '%s'", s)
		}
		opts.Skip |= st
	}

	opts.SkipGroups, _ = flags.GetUint64("skip-groups")
	opts.SkipRanks, _ = flags.GetIntSlice("skip-ranks")
	opts.QuickRead, _ = flags.GetBool("quick-read")
	opts.QuickWrite, _ = flags.GetBool("quick-write")
	return opts, nil
}

func printResult(res sequencer.Result) {
	if res.Passed {
		color.Green("PASS")
	} else {
		color.Red("FAIL: %s", res.Failure)
	}

	fmt.Printf("  FOM in/out:       %d/%d\n", res.FOMIn, res.FOMOut)
	fmt.Printf("  Read latency:     %d\n", res.ReadLatency)
	fmt.Printf("  Write latency:    %d\n", res.WriteLatency)
	fmt.Printf("  Dtaps per ptap:   %d\n", res.DTapsPerPTap)
	if res.FailingGroups != 0 {
		fmt.Printf("  Failing groups:   %d\n", res.FailingGroups)
	}
}

// runCalibration loads the ROM image if one was given and calibrates.
func runCalibration(cmd *cobra.Command, opts sequencer.Options) error {
	romPath, _ := cmd.Flags().GetString("rom")
	format, _ := cmd.Flags().GetString("format")

	c, err := connectToTarget()
	if err != nil {
		return err
	}
	defer c.Close()

	if romPath != "" {
		img, err := readImage(romPath, format)
		if err != nil {
			return err
		}
		if err := sequencer.LoadROM(c.Bus, c.Target, img.Inst, img.AC); err != nil {
			return err
		}
	}

	s, err := sequencer.New(c.Bus, c.Target, opts)
	if err != nil {
		return err
	}

	res, err := s.Calibrate()
	if err != nil {
		return err
	}

	printResult(res)
	if !res.Passed {
		return fmt.Errorf("Calibration of %s failed", c.Target.Name)
	}
	return nil
}

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate the PHY",
	Long: `Runs the full calibration sequence and, on success, hands the PHY
to the memory controller`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := calibrationOptions(cmd)
		if err != nil {
			return err
		}
		return runCalibration(cmd, opts)
	},
}

func addROMFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("rom", "r", "", "ROM image to load first, e.g. sequencer.hex")
	cmd.Flags().StringP("format", "f", "auto", "ROM image format: hex, bin or auto")
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	addROMFlags(calibrateCmd)

	calibrateCmd.Flags().Bool("debug-mode", false, "leave the PHY under sequencer control")
	calibrateCmd.Flags().Bool("sweep-all", false, "keep calibrating the remaining groups after a failure")
	calibrateCmd.Flags().Bool("no-guaranteed-read", false, "skip the guaranteed read test")
	calibrateCmd.Flags().Bool("cal-report", false, "log a summary of the run")
	calibrateCmd.Flags().Bool("margin-report", false, "log the margins of every centred group")
	calibrateCmd.Flags().StringSlice("skip", nil, "steps to skip: delays, delay-sweeps, vfifo, lfifo, wlevel, writes, all")
	calibrateCmd.Flags().Uint64("skip-groups", 0, "bit mask of DQS groups to leave uncalibrated")
	calibrateCmd.Flags().IntSlice("skip-ranks", nil, "ranks to leave uncalibrated")
	calibrateCmd.Flags().Bool("quick-read", false, "test reads with short bursts")
	calibrateCmd.Flags().Bool("quick-write", false, "test writes with short bursts")
}
