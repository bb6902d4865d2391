package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"engram/internal/api"
)

var rotateToken bool

// tokenCmd prints the local API token the daemon's HTTP surface requires on
// every route but /health, generating one first if none exists yet.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the local API token, generating one if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		if rotateToken {
			if err := os.Remove(cfg.TokenPath()); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove existing token: %w", err)
			}
		}

		token, err := api.LoadOrCreateToken(cfg.TokenPath())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&rotateToken, "rotate", false, "Discard the existing token and generate a new one")
}
