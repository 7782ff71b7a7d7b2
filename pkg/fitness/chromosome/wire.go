package chromosome

import (
	"encoding/binary"
	"math"

	"batfit/pkg/fitness/core"
)

// EncodeChunks writes chunks as little-endian 32-bit words.
func EncodeChunks(chunks []uint32) []byte {
	buf := make([]byte, 4*len(chunks))
	for i, c := range chunks {
		binary.LittleEndian.PutUint32(buf[i*4:], c)
	}
	return buf
}

// DecodeChunks reads little-endian 32-bit words.
func DecodeChunks(buf []byte) ([]uint32, error) {
	if len(buf)%4 != 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "chunk payload of %d bytes is not a multiple of 4", len(buf))
	}
	out := make([]uint32, len(buf)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out, nil
}

// EncodeFloats writes IEEE-754 float32 values little-endian.
func EncodeFloats(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeFloats reads IEEE-754 float32 values little-endian.
func DecodeFloats(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "float payload of %d bytes is not a multiple of 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

// EncodeScores writes float64 scores little-endian.
func EncodeScores(scores []float64) []byte {
	buf := make([]byte, 8*len(scores))
	for i, v := range scores {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeScores reads float64 scores little-endian.
func DecodeScores(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "score payload of %d bytes is not a multiple of 8", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out, nil
}
