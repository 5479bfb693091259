// Package hash provides the CRC32-Castagnoli checksums that guard segment and
// live-docs files against torn writes and bit rot.
//
// Files end in a 4-byte little-endian trailer:
//
//	data := hash.AppendChecksum(payload)
//	payload, err := hash.VerifyChecksum(data)
//
// Go's hash/crc32 uses SSE4.2 or the ARM CRC extension when available.
package hash
