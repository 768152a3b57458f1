package unified

// Stats counts what the cache has done since it was built.
type Stats struct {
	Accepted uint64
	Hits     uint64
	Misses   uint64
	Merges   uint64

	BankConflicts        uint64
	StallMSHRFull        uint64
	StallWriteBufferFull uint64
	StallReturnQueueFull uint64
	StallNoVictim        uint64

	Evictions    uint64
	Writebacks   uint64
	WriteArounds uint64
	Fills        uint64
	Responses    uint64
	Flushes      uint64
}

// HitRate returns hits over all the accesses that looked up the tags.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses + s.Merges + s.WriteArounds
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

func (s *Stats) countStall(r StallReason) {
	switch r {
	case StallMSHRFull:
		s.StallMSHRFull++
	case StallWriteBufferFull:
		s.StallWriteBufferFull++
	case StallReturnQueueFull:
		s.StallReturnQueueFull++
	case StallNoVictim:
		s.StallNoVictim++
	case StallBankConflict:
		s.BankConflicts++
	}
}
