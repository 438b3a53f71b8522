package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesReference(t *testing.T) {
	c := Default()
	assert.Equal(t, 16384, c.Pages)
	assert.Equal(t, uintptr(4096), c.PageSize)
	assert.Equal(t, 512, c.MaxAllocPages)
}

func TestNewRejectsNonPowerOfTwoPages(t *testing.T) {
	_, err := New(WithPages(100))
	assert.Error(t, err)
}

func TestNewRejectsCapOverHalfArena(t *testing.T) {
	_, err := New(WithPages(64), WithMaxAllocPages(40))
	assert.Error(t, err)
}

func TestNewAppliesOverrides(t *testing.T) {
	c, err := New(WithPages(128), WithPageSize(8192), WithMaxAllocPages(16))
	require.NoError(t, err)
	assert.Equal(t, 128, c.Pages)
	assert.Equal(t, uintptr(8192), c.PageSize)
	assert.Equal(t, 16, c.MaxAllocPages)
}

func TestLoadFileMissingFallsBackToDefault(t *testing.T) {
	c, err := LoadFile("/nonexistent/kbuddy-config.json")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}
