package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultmesh/covenant/pkg/config"
)

func TestLoadSigningPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
components:
  oracle:
    - ops-2025
  ledger: []
`), 0o600))

	policy, err := config.LoadSigningPolicy(path)
	require.NoError(t, err)

	assert.True(t, policy.Allows("oracle", "ops-2025"))
	assert.False(t, policy.Allows("oracle", "unknown-key"))
	assert.False(t, policy.Allows("ledger", "ops-2025"))
	assert.True(t, policy.Allows("unrestricted-component", "anything"))
}

func TestSigningPolicy_NilAllowsEverything(t *testing.T) {
	var policy *config.SigningPolicy
	assert.True(t, policy.Allows("oracle", "ops-2025"))
}

func TestLoadSigningPolicy_MissingFile(t *testing.T) {
	_, err := config.LoadSigningPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
