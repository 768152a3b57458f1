package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables understood by LoadEnv.
const (
	EnvMode                = "UNICACHE_MODE"
	EnvCacheSize           = "UNICACHE_CACHE_SIZE"
	EnvAssociativity       = "UNICACHE_ASSOCIATIVITY"
	EnvBlockSize           = "UNICACHE_BLOCK_SIZE"
	EnvNumBanks            = "UNICACHE_NUM_BANKS"
	EnvInputQueueSize      = "UNICACHE_INPUT_QUEUE_SIZE"
	EnvWritebackBufferSize = "UNICACHE_WRITEBACK_BUFFER_SIZE"
	EnvMissBufferSize      = "UNICACHE_MISS_BUFFER_SIZE"
	EnvReturnQueueSize     = "UNICACHE_RETURN_QUEUE_SIZE"
	EnvMaxNumInputPort     = "UNICACHE_MAX_NUM_INPUT_PORT"
	EnvCPUDataBits         = "UNICACHE_CPU_DATA_BITS"
	EnvCPUInstBits         = "UNICACHE_CPU_INST_BITS"
	EnvFetchWidthBits      = "UNICACHE_FETCH_WIDTH_BITS"
)

// LoadEnv overlays UNICACHE_* settings onto p. Values are read from the
// given dotenv files first; variables set in the process environment win.
func LoadEnv(p Params, files ...string) (Params, error) {
	vars := map[string]string{}

	if len(files) > 0 {
		fromFiles, err := godotenv.Read(files...)
		if err != nil {
			return p, fmt.Errorf("reading env files: %w", err)
		}

		vars = fromFiles
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := vars[key]

		return v, ok
	}

	if v, ok := lookup(EnvMode); ok {
		mode, err := ParseBuildMode(v)
		if err != nil {
			return p, err
		}

		p.Mode = mode
	}

	sizes := []struct {
		key string
		dst *uint64
	}{
		{EnvCacheSize, &p.CacheSizeBytes},
		{EnvBlockSize, &p.BlockSizeBytes},
	}

	for _, s := range sizes {
		v, ok := lookup(s.key)
		if !ok {
			continue
		}

		n, err := ParseSize(v)
		if err != nil {
			return p, fmt.Errorf("%s: %w", s.key, err)
		}

		*s.dst = n
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvAssociativity, &p.Associativity},
		{EnvNumBanks, &p.NumBanks},
		{EnvInputQueueSize, &p.InputQueueSize},
		{EnvWritebackBufferSize, &p.WritebackBufferSize},
		{EnvMissBufferSize, &p.MissBufferSize},
		{EnvReturnQueueSize, &p.ReturnQueueSize},
		{EnvMaxNumInputPort, &p.MaxNumInputPorts},
		{EnvCPUDataBits, &p.CPUDataBits},
		{EnvCPUInstBits, &p.CPUInstBits},
		{EnvFetchWidthBits, &p.FetchWidthBits},
	}

	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return p, fmt.Errorf("%s: %w", i.key, err)
		}

		*i.dst = n
	}

	return p, nil
}

// ParseSize parses a byte count such as "4096", "128K", "128KiB" or "1MB".
// The suffixes are binary.
func ParseSize(s string) (uint64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := uint64(1)

	for _, suffix := range []struct {
		text string
		mult uint64
	}{
		{"KIB", 1 << 10}, {"MIB", 1 << 20}, {"GIB", 1 << 30},
		{"KB", 1 << 10}, {"MB", 1 << 20}, {"GB", 1 << 30},
		{"K", 1 << 10}, {"M", 1 << 20}, {"G", 1 << 30},
		{"B", 1},
	} {
		if strings.HasSuffix(s, suffix.text) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix.text))
			multiplier = suffix.mult

			break
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	if n > math.MaxUint64/multiplier {
		return 0, fmt.Errorf("invalid size %q: %w", s, strconv.ErrRange)
	}

	return n * multiplier, nil
}
