package config

import "math/bits"

// IsPowerOfTwo tells if n is a positive power of two.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// Log2 returns log2(n) for a power of two n.
func Log2(n uint64) int {
	return bits.TrailingZeros64(n)
}

// CeilLog2 returns the smallest k such that 2^k >= n, the same rounding the
// hardware $clog2 uses. CeilLog2(1) and CeilLog2(0) are 0.
func CeilLog2(n uint64) int {
	if n <= 1 {
		return 0
	}

	return bits.Len64(n - 1)
}
