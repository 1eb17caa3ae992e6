// Package model persists a session's trained state to and from disk, using
// CBOR for the on-disk record the same way this codebase's message layer
// uses it for on-wire messages: a small typed struct marshaled directly, no
// manual byte-layout code.
package model

import (
	"fmt"
	"log"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// File is the on-disk representation of a downloaded internal-state buffer:
// the raw float vector plus enough metadata (architecture, tag table) to
// reload it onto a freshly opened session via Upload.
type File struct {
	InputChannels int       `cbor:"input_channels"`
	Neurons       int       `cbor:"neurons"`
	ClassCount    int       `cbor:"class_count"`
	Tags          []uint32  `cbor:"tags"`
	Values        []float32 `cbor:"values"`
}

// Save CBOR-encodes f and writes it to path.
func Save(path string, f File) error {
	data, err := cbor.Marshal(f)
	if err != nil {
		return fmt.Errorf("model: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("model: write %s: %w", path, err)
	}
	log.Printf("model: saved %d values (%d classes) to %s", len(f.Values), f.ClassCount, path)
	return nil
}

// Load reads and CBOR-decodes a File previously written by Save.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("model: read %s: %w", path, err)
	}
	if err := cbor.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("model: unmarshal %s: %w", path, err)
	}
	log.Printf("model: loaded %d values (%d classes) from %s", len(f.Values), f.ClassCount, path)
	return f, nil
}
