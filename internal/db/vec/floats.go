// Package vec holds the wire codec for embedding vectors. Embeddings are
// stored as raw little-endian float32 sequences, 4 bytes per component, with
// no header or length prefix.
package vec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFloat32s converts a vector to its blob representation.
func EncodeFloat32s(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeFloat32s converts a blob back to a vector. The blob length must be a
// multiple of 4.
func DecodeFloat32s(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid data length: %d is not divisible by 4", len(data))
	}

	result := make([]float32, len(data)/4)
	for i := range result {
		result[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return result, nil
}

// Float64sTo32s narrows a provider response vector to the stored precision.
func Float64sTo32s(floats []float64) []float32 {
	result := make([]float32, len(floats))
	for i, f := range floats {
		result[i] = float32(f)
	}
	return result
}
