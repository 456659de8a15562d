// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is filled in when building via make; left empty for "go install".
var version string

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "elabdrv",
	Short: "A cross-language elaboration driver for HDL frontends.",
	Long: `elabdrv routes module elaboration requests across a set of
registered frontends - built-in and remote - and links the results into a
single shared design.`,
	Run: func(cmd *cobra.Command, _ []string) {
		if getFlag(cmd, "version") {
			fmt.Print("elabdrv ")

			if version != "" {
				fmt.Print(version)
			} else if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Print(info.Main.Version)
			} else {
				fmt.Print("(unknown version)")
			}

			fmt.Println()
		}
	},
}

func init() {
	rootCmd.Flags().Bool("version", false, "report version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
}

// getFlag reads an expected bool flag, exiting on a programming error.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	return r
}

// getString reads an expected string flag, exiting on a programming error.
func getString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	return r
}
