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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "l0ps.yaml")
	cfgData := `
address: 3PTestGeneratorAddress
alias: testnode
beneficiary: 3PTestBeneficiary
distributionPercent: 20
airdrops:
  - name: testtoken
    assetId: AbCdEf123
    decimals: 8
    minBalance: 1000
    enabled: true
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgData), 0o600))

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "3PTestGeneratorAddress", cfg.Address)
	assert.Equal(t, "testnode", cfg.Alias)
	assert.Equal(t, 20, cfg.DistributionPercent)
	// Defaults survive a partial config file
	assert.Equal(t, "https://nodes.wavesnodes.com", cfg.Node.Url)
	assert.Equal(t, uint64(500_000), cfg.InvokeFee)
	require.Len(t, cfg.EnabledAirdrops(), 1)
	assert.Equal(t, "AbCdEf123", cfg.EnabledAirdrops()[0].AssetID)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "l0ps.yaml")
	cfgData := `
address: 3PTestGeneratorAddress
node:
  url: https://example.com
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgData), 0o600))
	t.Setenv("L0PS_NODE_URL", "https://override.example.com")
	t.Setenv("L0PS_DISTRIBUTION_PERCENT", "50")

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", cfg.Node.Url)
	assert.Equal(t, 50, cfg.DistributionPercent)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Address: "", DistributionPercent: 20}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Address: "3PTest", DistributionPercent: 200}
	assert.Error(t, cfg.Validate())

	cfg = &Config{
		Address:             "3PTest",
		DistributionPercent: 20,
		Airdrops: []Airdrop{
			{Name: "broken", Enabled: true},
		},
	}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Address: "3PTest", DistributionPercent: 20}
	assert.NoError(t, cfg.Validate())
}
