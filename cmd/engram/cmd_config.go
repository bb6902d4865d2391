package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// configCmd prints the effective configuration: defaults layered with the
// on-disk file (if any) and environment overrides, the same resolution
// runDaemon uses.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print and validate the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "# resolved from %s\n", path)
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	},
}
