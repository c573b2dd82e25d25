package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/capsulehq/timecapsule/capsule"
)

var rootOpts struct {
	configPath string
	verbose    bool
}

var rootCmd = &cobra.Command{
	Use:   "capsule",
	Short: "Seal, inspect and unlock decentralized time capsules",
	Long: `capsule encrypts content client-side, stores the ciphertext in
content-addressed storage, and reads unlock conditions from the ledger.

The ledger transaction creating a capsule (and approvals or payments against
it) is submitted with your wallet tooling; this CLI covers everything around
it: sealing content, listing capsules, checking status and unlocking.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootOpts.configPath, "config", "", "config file (default $HOME/.capsule/config.yaml)")
	pf.BoolVarP(&rootOpts.verbose, "verbose", "v", false, "enable debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if rootOpts.verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}

// defaultConfigPath is where `capsule config --init` writes and where every
// command looks when --config is not given.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".capsule", "config.yaml")
}

func loadConfig() (capsule.Config, error) {
	path := rootOpts.configPath
	if path == "" {
		if p := defaultConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	cfg, err := capsule.LoadConfig(path)
	if err != nil {
		return capsule.Config{}, err
	}
	cfg.Logger = newLogger()
	return cfg, nil
}

func newClient() (*capsule.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return capsule.New(cfg), nil
}

func describeCondition(cond capsule.UnlockCondition) string {
	switch c := cond.(type) {
	case capsule.TimeLock:
		return fmt.Sprintf("time-locked until %s", time.UnixMilli(c.UnlockTimeMs).UTC().Format(time.RFC3339))
	case capsule.ThresholdApproval:
		return fmt.Sprintf("requires %d approvals (%d given)", c.Threshold, len(c.Approvals))
	case capsule.Paid:
		if c.Paid {
			return fmt.Sprintf("paid (%d)", c.Price)
		}
		return fmt.Sprintf("requires payment of %d", c.Price)
	default:
		return "unknown condition"
	}
}
