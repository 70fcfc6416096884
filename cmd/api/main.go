/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "os"

    "github.com/fatih/color"
    "github.com/spf13/cobra"
)

const banner = `
  ___           _     _     ___      _
 / __|_ __ _ _(_)_ _| |_  | _ \_  _| |___ ___
 \__ \ '_ \ '_| | ' \  _| |  _/ || | (_-</ -_)
 |___/ .__/_| |_|_||_\__| |_|  \_,_|_/__/\___|
     |_|
`

var rootCmd = &cobra.Command{
    Use:           "sprint-pulse",
    Short:         "Sprint assignment engine",
    Long:          color.CyanString(banner) + "\nEstimates Jira issues, matches them to team capacity and persists sprint assignments.",
    SilenceUsage:  true,
    SilenceErrors: true,
    Run: func(cmd *cobra.Command, args []string) { _ = cmd.Help() },
}

func init() {
    rootCmd.AddCommand(serveCmd)
    rootCmd.AddCommand(planCmd)
    rootCmd.AddCommand(syncCmd)
    rootCmd.AddCommand(teamCmd)
    rootCmd.AddCommand(lastRunCmd)
}

func main() {
    if err := rootCmd.Execute(); err != nil {
        color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
        os.Exit(1)
    }
}
