package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	f := File{
		InputChannels: 3,
		Neurons:       10,
		ClassCount:    2,
		Tags:          []uint32{7, 42},
		Values:        []float32{0.5, -1.0, 3.25},
	}
	path := filepath.Join(t.TempDir(), "model.cbor")

	require.NoError(t, Save(path, f))

	got, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, f.ClassCount, got.ClassCount)
	require.Equal(t, f.Values, got.Values)
	require.Equal(t, f.Tags, got.Tags)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.cbor"))
	require.Error(t, err)
}
