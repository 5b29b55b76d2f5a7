// Copyright 2025 Blink Labs Software
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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "l0ps.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// Airdrop describes a bonus asset distributed alongside the chain asset.
// Payouts for an enabled airdrop mirror the chain-asset payout weighting.
type Airdrop struct {
	Name       string `yaml:"name"`
	AssetID    string `yaml:"assetId"`
	Decimals   int    `yaml:"decimals"`
	MinBalance uint64 `yaml:"minBalance"`
	Enabled    bool   `yaml:"enabled"`
}

type NodeConfig struct {
	Url    string `yaml:"url"    envconfig:"L0PS_NODE_URL"`
	Chain  string `yaml:"chain"  envconfig:"L0PS_NODE_CHAIN"`
	ApiKey string `yaml:"apiKey" envconfig:"L0PS_NODE_API_KEY"`
}

type Config struct {
	DataDir             string     `yaml:"dataDir"             envconfig:"L0PS_DATA_DIR"`
	Node                NodeConfig `yaml:"node"`
	Address             string     `yaml:"address"             envconfig:"L0PS_ADDRESS"`
	Alias               string     `yaml:"alias"               envconfig:"L0PS_ALIAS"`
	Beneficiary         string     `yaml:"beneficiary"         envconfig:"L0PS_BENEFICIARY"`
	DistributionPercent int        `yaml:"distributionPercent" envconfig:"L0PS_DISTRIBUTION_PERCENT"`
	InvokeFee           uint64     `yaml:"invokeFee"           envconfig:"L0PS_INVOKE_FEE"`
	TransferFee         uint64     `yaml:"transferFee"         envconfig:"L0PS_TRANSFER_FEE"`
	ClaimDApp           string     `yaml:"claimDApp"           envconfig:"L0PS_CLAIM_DAPP"`
	NotifyUrl           string     `yaml:"notifyUrl"           envconfig:"L0PS_NOTIFY_URL"`
	FetchRetries        int        `yaml:"fetchRetries"        envconfig:"L0PS_FETCH_RETRIES"`
	FetchRetryDelay     string     `yaml:"fetchRetryDelay"     envconfig:"L0PS_FETCH_RETRY_DELAY"`
	Airdrops            []Airdrop  `yaml:"airdrops"`
}

var globalConfig = &Config{
	DataDir: ".l0ps",
	Node: NodeConfig{
		Url:   "https://nodes.wavesnodes.com",
		Chain: "W",
	},
	DistributionPercent: 80,
	InvokeFee:           500_000,
	TransferFee:         100_000,
	FetchRetries:        5,
	FetchRetryDelay:     "5s",
}

func LoadConfig(configFile string) (*Config, error) {
	// Check well-known locations when no config file is given
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".l0ps", "l0ps.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/l0ps/l0ps.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("l0ps", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("no tracked node address configured")
	}
	if c.DistributionPercent < 0 || c.DistributionPercent > 100 {
		return fmt.Errorf(
			"invalid distribution percent: %d (must be 0-100)",
			c.DistributionPercent,
		)
	}
	for _, airdrop := range c.Airdrops {
		if !airdrop.Enabled {
			continue
		}
		if airdrop.Name == "" || airdrop.AssetID == "" {
			return fmt.Errorf(
				"airdrop %q must have both a name and an asset ID",
				airdrop.Name,
			)
		}
	}
	return nil
}

// EnabledAirdrops returns the bonus assets currently enabled for distribution
func (c *Config) EnabledAirdrops() []Airdrop {
	var ret []Airdrop
	for _, airdrop := range c.Airdrops {
		if airdrop.Enabled {
			ret = append(ret, airdrop)
		}
	}
	return ret
}
