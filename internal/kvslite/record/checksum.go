package record

import "github.com/julianstephens/go-utils/checksum"

// ComputeChecksum computes the IEEE CRC-32 checksum for the given data.
func ComputeChecksum(data []byte) uint32 {
	return checksum.CRC32IEEE(data)
}

// VerifyChecksum reports whether crc matches the checksum of data.
func VerifyChecksum(data []byte, crc uint32) bool {
	return checksum.VerifyCRC32IEEE(data, crc)
}
