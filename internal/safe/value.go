package safe

// AddOffset adds a signed offset to an address with two's complement
// wraparound, which is how load biases apply to link-time addresses.
func AddOffset(addr uint64, offset int64) uint64 {
	return addr + uint64(offset) // #nosec G115 -- wraparound is intended
}

// Offset returns the signed distance from base to addr, the inverse of
// AddOffset.
func Offset(addr, base uint64) int64 {
	return int64(addr - base) // #nosec G115 -- two's complement distance
}
