// Package frame builds and decodes the GRC wire protocol's byte-exact
// frames: data blocks, the activate-streaming command, and the fixed-shape
// status/result responses. It never touches a transport itself — callers
// hand the built byte slices to pkg/grc/transport.
package frame

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/grovety/grc/pkg/grc/crc"
)

const (
	// BlockMarker1 and BlockMarker2 open every data block.
	BlockMarker1 byte = 0xFF
	BlockMarker2 byte = 0xFE

	// ActivateStreamingOpcode is the opcode for the three-byte
	// activate-streaming command.
	ActivateStreamingOpcode byte = 0x02

	// StreamingResultByteCount is the fixed size of the 256-bit delivery
	// bitmap returned by get-stream-result.
	StreamingResultByteCount = 32

	// MaxValuesPerBlock bounds how many 4-byte slots a float-array block
	// carries before the first-block length prefix is accounted for.
	MaxValuesPerBlock = 62

	// MaxBlockCount is the largest block-count the wire protocol's
	// single byte field can express.
	MaxBlockCount = 255

	// ScratchBufferSize is the largest argument buffer the wire protocol
	// carries in one bus transaction. This codec keeps no scratch buffer:
	// every frame is allocated per call.
	ScratchBufferSize = 256
)

// EncodeInt32LE returns the little-endian two's-complement encoding of v.
func EncodeInt32LE(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// DecodeInt32LE decodes a little-endian two's-complement int32 from b.
func DecodeInt32LE(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

// EncodeFloat32LE returns the little-endian bit-cast encoding of v.
func EncodeFloat32LE(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// DecodeFloat32LE decodes a little-endian bit-cast float32 from b.
func DecodeFloat32LE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// dataBlock assembles "FF FE | idx | payload | crc8" for a 1-based block
// index and an already-serialized payload.
func dataBlock(idx uint8, payload []byte) []byte {
	b := make([]byte, 0, 2+1+len(payload)+1)
	b = append(b, BlockMarker1, BlockMarker2, idx)
	b = append(b, payload...)
	b = append(b, crc.Checksum(b[2:]))
	return b
}

// ActivateStreaming builds the three-byte "02 block-size block-count"
// command that must immediately precede blockCount data blocks of
// blockSize bytes each.
func ActivateStreaming(blockSize, blockCount uint8) []byte {
	return []byte{ActivateStreamingOpcode, blockSize, blockCount}
}

// IntBlock builds the single-block, block-size-8 frame carrying a 32-bit
// integer argument.
func IntBlock(v int32) []byte {
	return dataBlock(1, EncodeInt32LE(v))
}

// FloatBlock builds the single-block, block-size-8 frame carrying a 32-bit
// float argument.
func FloatBlock(v float32) []byte {
	return dataBlock(1, EncodeFloat32LE(v))
}

// ParamBlock builds the single-block, block-size-9 frame carrying a tagged
// parameter: kind byte followed by its 4-byte raw payload (int or float,
// bit-cast through the same 4-byte container).
func ParamBlock(kind uint8, rawValue [4]byte) []byte {
	payload := make([]byte, 0, 5)
	payload = append(payload, kind)
	payload = append(payload, rawValue[:]...)
	return dataBlock(1, payload)
}

// FloatArrayBlocks computes the block geometry for a float array argument
// and returns the fully assembled blocks in order, plus the block size the
// caller must pass to ActivateStreaming.
//
// Geometry: blockCount = ceil((len+1)/62), capped at 255; blockSize =
// ceil((len+1)/blockCount)*4 + 4. Block 1 carries int32(len) followed by
// floats; later blocks carry only floats; the last block is zero-padded.
// Lengths that would require more than 255 blocks are rejected rather than
// silently truncated.
func FloatArrayBlocks(vals []float32) (blocks [][]byte, blockSize uint8, err error) {
	slots := len(vals) + 1
	blockCount := (slots + MaxValuesPerBlock - 1) / MaxValuesPerBlock
	if blockCount < 1 {
		blockCount = 1
	}
	if blockCount > MaxBlockCount {
		return nil, 0, fmt.Errorf("frame: float array of %d values needs %d blocks, exceeds max %d", len(vals), blockCount, MaxBlockCount)
	}
	floatsPerBlock := (slots + blockCount - 1) / blockCount
	chunkBytes := floatsPerBlock * 4

	stream := make([]byte, 0, 4*slots)
	stream = append(stream, EncodeInt32LE(int32(len(vals)))...)
	for _, v := range vals {
		stream = append(stream, EncodeFloat32LE(v)...)
	}

	blocks = make([][]byte, blockCount)
	for i := 0; i < blockCount; i++ {
		payload := make([]byte, chunkBytes)
		start := i * chunkBytes
		if start < len(stream) {
			end := start + chunkBytes
			if end > len(stream) {
				end = len(stream)
			}
			copy(payload, stream[start:end])
		}
		blocks[i] = dataBlock(uint8(i+1), payload)
	}
	return blocks, uint8(chunkBytes + 4), nil
}

// AllBlocksDelivered interprets the 32-byte stream-result response: bit k-1
// (for block index k in [1, blockCount]) lives at byte 31-(k-1)/8, bit
// (k-1) mod 8. It reports whether every block in [1, blockCount] was marked
// delivered.
func AllBlocksDelivered(resp [StreamingResultByteCount]byte, blockCount int) bool {
	for k := 1; k <= blockCount; k++ {
		byteIdx := StreamingResultByteCount - 1 - (k-1)/8
		bitIdx := uint((k - 1) % 8)
		if resp[byteIdx]&(1<<bitIdx) == 0 {
			return false
		}
	}
	return true
}
