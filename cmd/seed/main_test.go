package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeed_Bundled(t *testing.T) {
	data, err := loadSeed("")
	require.NoError(t, err)

	require.Len(t, data.Products, 6)
	require.Len(t, data.Stock, 6)
	assert.Equal(t, "179.90", data.Products[0].Price.StringFixed(2))

	ids := map[int]bool{}
	for _, p := range data.Products {
		ids[p.ID] = true
	}
	for _, s := range data.Stock {
		assert.True(t, ids[s.ProductID], "stock for unknown product %d", s.ProductID)
	}
}

func TestLoadSeed_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"products":[],"stock":[{"id":7,"amount":2}]}`), 0o600))

	data, err := loadSeed(path)
	require.NoError(t, err)
	assert.Empty(t, data.Products)
	assert.Equal(t, 7, data.Stock[0].ProductID)
	assert.Equal(t, 2, data.Stock[0].Amount)
}

func TestLoadSeed_Errors(t *testing.T) {
	_, err := loadSeed(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = loadSeed(path)
	assert.ErrorContains(t, err, "decode seed")
}
