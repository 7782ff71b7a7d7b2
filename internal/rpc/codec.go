package rpc

import (
	"encoding/binary"

	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
)

// EncodeLoad frames a cache load: u32 chromo_len, u32 dim, then float32 values,
// all little-endian.
func EncodeLoad(vectors []float32, chromoLen, dim int) []byte {
	buf := make([]byte, 8, 8+4*len(vectors))
	binary.LittleEndian.PutUint32(buf[0:], uint32(chromoLen))
	binary.LittleEndian.PutUint32(buf[4:], uint32(dim))
	return append(buf, chromosome.EncodeFloats(vectors)...)
}

// DecodeLoad is the inverse of EncodeLoad
func DecodeLoad(buf []byte) (vectors []float32, chromoLen, dim int, err error) {
	if len(buf) < 8 {
		return nil, 0, 0, core.Errorf(core.ErrInvalidInput, "load payload of %d bytes is shorter than its header", len(buf))
	}
	chromoLen = int(binary.LittleEndian.Uint32(buf[0:]))
	dim = int(binary.LittleEndian.Uint32(buf[4:]))
	vectors, err = chromosome.DecodeFloats(buf[8:])
	return vectors, chromoLen, dim, err
}

// EncodeBatch frames a batch: u32 chromo_len, u32 dim, u32 num_bats, then the
// chunk stream, all little-endian.
func EncodeBatch(chunks []uint32, chromoLen, dim, numBats int) []byte {
	buf := make([]byte, 12, 12+4*len(chunks))
	binary.LittleEndian.PutUint32(buf[0:], uint32(chromoLen))
	binary.LittleEndian.PutUint32(buf[4:], uint32(dim))
	binary.LittleEndian.PutUint32(buf[8:], uint32(numBats))
	return append(buf, chromosome.EncodeChunks(chunks)...)
}

// DecodeBatch is the inverse of EncodeBatch
func DecodeBatch(buf []byte) (chunks []uint32, chromoLen, dim, numBats int, err error) {
	if len(buf) < 12 {
		return nil, 0, 0, 0, core.Errorf(core.ErrInvalidInput, "batch payload of %d bytes is shorter than its header", len(buf))
	}
	chromoLen = int(binary.LittleEndian.Uint32(buf[0:]))
	dim = int(binary.LittleEndian.Uint32(buf[4:]))
	numBats = int(binary.LittleEndian.Uint32(buf[8:]))
	chunks, err = chromosome.DecodeChunks(buf[12:])
	return chunks, chromoLen, dim, numBats, err
}
