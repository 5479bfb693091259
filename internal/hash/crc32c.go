package hash

import (
	"encoding/binary"
	"errors"
	"hash"
	"hash/crc32"
)

// TrailerSize is the length of the checksum trailer.
const TrailerSize = 4

// ErrChecksumMismatch is returned when a trailer does not match its payload.
var ErrChecksumMismatch = errors.New("hash: checksum mismatch")

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a streaming CRC32-Castagnoli hash.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// AppendChecksum appends the checksum of data to data.
func AppendChecksum(data []byte) []byte {
	return binary.LittleEndian.AppendUint32(data, CRC32C(data))
}

// VerifyChecksum checks the trailer of data and returns the payload before it.
func VerifyChecksum(data []byte) ([]byte, error) {
	if len(data) < TrailerSize {
		return nil, ErrChecksumMismatch
	}
	payload := data[:len(data)-TrailerSize]
	if binary.LittleEndian.Uint32(data[len(payload):]) != CRC32C(payload) {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}
