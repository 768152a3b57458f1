// Package config resolves the base parameters of the unified cache into the
// derived constants (set count, bit widths, bit positions, packet layout)
// that every other package consumes.
package config

import (
	"fmt"
	"strings"
)

// BuildMode selects between the two block sizes the cache is built with.
type BuildMode int

// Build modes.
const (
	Production BuildMode = iota
	Simulation
)

// Block sizes used by the two build modes.
const (
	ProductionBlockSize uint64 = 64
	SimulationBlockSize uint64 = 4
)

// BlockSize returns the block size in bytes used by the mode.
func (m BuildMode) BlockSize() uint64 {
	if m == Simulation {
		return SimulationBlockSize
	}

	return ProductionBlockSize
}

func (m BuildMode) String() string {
	switch m {
	case Production:
		return "production"
	case Simulation:
		return "simulation"
	default:
		return fmt.Sprintf("BuildMode(%d)", int(m))
	}
}

// ParseBuildMode converts "production"/"prod" and "simulation"/"sim".
func ParseBuildMode(s string) (BuildMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production, nil
	case "simulation", "sim":
		return Simulation, nil
	default:
		return 0, &Error{Param: "Mode", Value: s, Reason: "is not a build mode"}
	}
}

// Params are the base parameters the cache is built from. Zero-valued
// BlockSizeBytes and NumBanks are filled in from Mode and the set count.
type Params struct {
	Mode BuildMode

	CacheSizeBytes uint64
	Associativity  int
	BlockSizeBytes uint64
	NumBanks       int

	InputQueueSize      int
	WritebackBufferSize int
	MissBufferSize      int
	ReturnQueueSize     int
	MaxNumInputPorts    int

	CPUDataBits    int
	CPUInstBits    int
	FetchWidthBits int
}

// DefaultParams returns the parameter set of the reference design.
func DefaultParams(mode BuildMode) Params {
	return Params{
		Mode:                mode,
		CacheSizeBytes:      128 * 1024,
		Associativity:       4,
		InputQueueSize:      4,
		WritebackBufferSize: 4,
		MissBufferSize:      32,
		ReturnQueueSize:     16,
		MaxNumInputPorts:    16,
		CPUDataBits:         64,
		CPUInstBits:         32,
		FetchWidthBits:      128,
	}
}

func (p Params) resolvedBlockSize() uint64 {
	if p.BlockSizeBytes == 0 {
		return p.Mode.BlockSize()
	}

	return p.BlockSizeBytes
}
