package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hugotest/internal/suite"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the materialization cache",
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir [dir]",
	Short: "Print the cache directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		c, err := suite.OpenCache(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.Dir())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [dir]",
	Short: "Drop every cached suite",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		c, err := suite.OpenCache(cfg)
		if err != nil {
			return err
		}
		if err := c.DropAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		if !quiet(cmd) {
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", c.Dir())
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheDirCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
