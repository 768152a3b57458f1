package mem

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAddressOutOfRange is returned when accessing beyond the capacity of a
// storage.
var ErrAddressOutOfRange = errors.New("address out of range")

// A Storage keeps the data of the guest system.
//
// The storage manages the data in units, similar to pages. A unit that has
// never been touched reads as zeros and takes no memory.
type Storage struct {
	sync.Mutex

	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity. A zero
// capacity covers the whole 64-bit address space.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		unitSize: 4096,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the size of the storage in bytes.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) checkRange(address, length uint64) error {
	if s.capacity == 0 {
		return nil
	}

	if address >= s.capacity || length > s.capacity-address {
		return fmt.Errorf("%w: %#x+%d, capacity %d",
			ErrAddressOutOfRange, address, length, s.capacity)
	}

	return nil
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// chunks calls f on each unit-aligned piece of [address, address+length).
func (s *Storage) chunks(
	address, length uint64,
	f func(baseAddr, inUnitAddr, offset, n uint64),
) {
	offset := uint64(0)

	for offset < length {
		baseAddr, inUnitAddr := s.parseAddress(address + offset)

		n := s.unitSize - inUnitAddr
		if length-offset < n {
			n = length - offset
		}

		f(baseAddr, inUnitAddr, offset, n)
		offset += n
	}
}

// Read returns length bytes starting at address.
func (s *Storage) Read(address, length uint64) ([]byte, error) {
	if err := s.checkRange(address, length); err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()

	res := make([]byte, length)

	s.chunks(address, length, func(base, inUnit, offset, n uint64) {
		if unit, ok := s.data[base]; ok {
			copy(res[offset:offset+n], unit[inUnit:inUnit+n])
		}
	})

	return res, nil
}

// Write stores data at address.
func (s *Storage) Write(address uint64, data []byte) error {
	return s.WriteMasked(address, data, nil)
}

// WriteMasked stores the bytes of data whose mask bit is set. A nil mask
// writes every byte.
func (s *Storage) WriteMasked(address uint64, data []byte, mask []bool) error {
	if mask != nil && len(mask) != len(data) {
		return fmt.Errorf("mask has %d bits for %d bytes", len(mask), len(data))
	}

	length := uint64(len(data))
	if err := s.checkRange(address, length); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	s.chunks(address, length, func(base, inUnit, offset, n uint64) {
		unit, ok := s.data[base]
		if !ok {
			unit = make([]byte, s.unitSize)
			s.data[base] = unit
		}

		for i := uint64(0); i < n; i++ {
			if mask == nil || mask[offset+i] {
				unit[inUnit+i] = data[offset+i]
			}
		}
	})

	return nil
}
