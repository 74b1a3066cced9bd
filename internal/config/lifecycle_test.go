package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLifecycleConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := NewLifecycleConfigHolder(Config{LifecycleConfigDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, DefaultTaxRate, cfg.TaxRate)
	assert.Equal(t, 30, cfg.LockTTLSeconds)
}

func TestLifecycleConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("lifecycle:\n  taxRate: 0.2\n  lockTTLSeconds: 5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claims.yml"), content, 0o600))

	holder, err := NewLifecycleConfigHolder(Config{LifecycleConfigDir: dir}, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.InDelta(t, 0.2, cfg.TaxRate, 1e-9)
	assert.Equal(t, 5, cfg.LockTTLSeconds)
}

func TestLifecycleConfigRejectsInvalidRate(t *testing.T) {
	dir := t.TempDir()
	content := []byte("lifecycle:\n  taxRate: 1.5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claims.yml"), content, 0o600))

	_, err := NewLifecycleConfigHolder(Config{LifecycleConfigDir: dir}, zap.NewNop())
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *LifecycleConfigHolder
	assert.Equal(t, DefaultLifecycleConfig(), holder.Get())
}
