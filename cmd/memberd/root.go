// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the memberd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memberd",
		Short: "memberd - member authentication service",
		Long: `memberd is a member authentication service providing signup, login,
JWT access/refresh token rotation, and a staged password reset flow.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
