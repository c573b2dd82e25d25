package capsule

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/capsulehq/timecapsule/capsule/retry"
)

// Config configures a Client. It is an explicit handle constructed once and
// passed in; there is no process-wide singleton.
type Config struct {
	// Network is a label for the target ledger network (devnet, testnet,
	// mainnet, localnet). Informational.
	Network string `yaml:"network"`
	// RPCURL is the ledger fullnode JSON-RPC endpoint.
	RPCURL string `yaml:"rpc_url"`
	// IPFSURL is the IPFS node HTTP API endpoint.
	IPFSURL string `yaml:"ipfs_url"`

	// PinningURL switches uploads to a hosted pinning service when set;
	// GatewayURL and PinningKey accompany it.
	PinningURL string `yaml:"pinning_url"`
	GatewayURL string `yaml:"gateway_url"`
	PinningKey string `yaml:"pinning_key"`

	// RetryAttempts and RetryBaseMs shape the storage retry policy.
	RetryAttempts int `yaml:"retry_attempts"`
	RetryBaseMs   int `yaml:"retry_base_ms"`

	// Logger is an optional structured logger. If nil, logs are discarded.
	Logger *slog.Logger `yaml:"-"`
	// HTTPClient is shared by the storage and ledger clients. Callers
	// needing a hard per-call deadline set a Timeout here or cancel the
	// context they pass in.
	HTTPClient *http.Client `yaml:"-"`
}

// DefaultConfig returns the devnet defaults.
func DefaultConfig() Config {
	return Config{
		Network:       "devnet",
		RPCURL:        "https://fullnode.devnet.sui.io:443",
		IPFSURL:       "http://127.0.0.1:5001",
		RetryAttempts: retry.DefaultPolicy.MaxAttempts,
		RetryBaseMs:   int(retry.DefaultPolicy.BaseDelay / time.Millisecond),
	}
}

// LoadConfig reads a YAML config file and applies environment overrides
// (CAPSULE_NETWORK, CAPSULE_RPC_URL, CAPSULE_IPFS_URL). Defaults fill
// anything left unset. path may be empty to skip the file entirely.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = retry.DefaultPolicy.MaxAttempts
	}
	if cfg.RetryBaseMs <= 0 {
		cfg.RetryBaseMs = int(retry.DefaultPolicy.BaseDelay / time.Millisecond)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CAPSULE_NETWORK"); v != "" {
		c.Network = v
	}
	if v := os.Getenv("CAPSULE_RPC_URL"); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv("CAPSULE_IPFS_URL"); v != "" {
		c.IPFSURL = v
	}
}

// Save writes the config as YAML, for `capsule config --init`.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c Config) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.RetryAttempts,
		BaseDelay:   time.Duration(c.RetryBaseMs) * time.Millisecond,
	}
}
