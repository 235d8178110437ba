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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/gousb"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/barebox/barebox-sub005/protocol"
)

type probeResult struct {
	path string
	ver  protocol.VersionInfo
	err  error
}

func probe(dev *protocol.Device) probeResult {
	ver, err := dev.GetVersion()
	return probeResult{path: dev.Path(), ver: ver, err: err}
}

// probeSerial asks every serial port for a bridge version. Ports without
// a bridge time out.
func probeSerial(ctx context.Context, ports []string) []probeResult {
	var mu sync.Mutex
	var results []probeResult

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, port := range ports {
		port := port
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			dev, err := protocol.OpenSerial(port, baud)
			if err != nil {
				klog.V(1).Infof("%s: %v", port, err)
				return nil
			}
			defer dev.Close()

			r := probe(dev)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

// devicesCmd represents the devices command
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected bridges",
	Long:  `List connected register bridges and their firmware versions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scanSerial, _ := cmd.Flags().GetBool("serial")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		usbctx := gousb.NewContext()
		defer usbctx.Close()

		devs, err := protocol.OpenUSB(usbctx)
		if err != nil {
			return err
		}
		defer func() {
			for _, dev := range devs {
				dev.Close()
			}
		}()

		results := make([]probeResult, len(devs))
		var g errgroup.Group
		for i, dev := range devs {
			i, dev := i, dev
			g.Go(func() error {
				results[i] = probe(dev)
				return nil
			})
		}

		var serialResults []probeResult
		if scanSerial {
			ports, err := protocol.SerialPorts()
			if err != nil {
				return err
			}
			g.Go(func() error {
				serialResults = probeSerial(ctx, ports)
				return nil
			})
		}
		g.Wait()
		results = append(results, serialResults...)

		for _, r := range results {
			fmt.Printf("[%s] ", r.path)
			if r.err != nil {
				color.Red(r.err.Error())
				continue
			}

			fmt.Println(r.ver)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().Bool("serial", false, "also probe every serial port")
	devicesCmd.Flags().Duration("timeout", 10*time.Second, "give up probing after this long")
}
