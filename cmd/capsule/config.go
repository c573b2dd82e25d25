package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/capsulehq/timecapsule/capsule"
)

var configOpts struct {
	show bool
	init bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize the CLI configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case configOpts.init:
			path := rootOpts.configPath
			if path == "" {
				path = defaultConfigPath()
			}
			if path == "" {
				return errors.New("cannot determine config path; pass --config")
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return err
			}
			if err := capsule.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		case configOpts.show:
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "network:  %s\n", cfg.Network)
			fmt.Fprintf(out, "rpc_url:  %s\n", cfg.RPCURL)
			fmt.Fprintf(out, "ipfs_url: %s\n", cfg.IPFSURL)
			if cfg.PinningURL != "" {
				fmt.Fprintf(out, "pinning:  %s (gateway %s)\n", cfg.PinningURL, cfg.GatewayURL)
			}
			fmt.Fprintf(out, "retries:  %d attempts, base delay %dms\n", cfg.RetryAttempts, cfg.RetryBaseMs)
			return nil
		default:
			return cmd.Help()
		}
	},
}

func init() {
	f := configCmd.Flags()
	f.BoolVar(&configOpts.show, "show", false, "print the effective configuration")
	f.BoolVar(&configOpts.init, "init", false, "write a default config file")
	rootCmd.AddCommand(configCmd)
}
