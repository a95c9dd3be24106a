package shard

import (
	"crypto/md5"
	"encoding/binary"
)

// Route returns the shard index in [0, n) for a security identifier.
//
// The function is pure and total: md5 of the identifier, first four bytes as
// a big-endian uint32, modulo n. This matches the routing used when the
// minute-bar history was originally written.
func Route(securityID string, n int) int {
	if n <= 1 {
		return 0
	}
	sum := md5.Sum([]byte(securityID))
	return int(binary.BigEndian.Uint32(sum[:4]) % uint32(n))
}
