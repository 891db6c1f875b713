package cpu

import (
	"encoding/binary"
)

const (
	MEM_SIZE = 0x20000 // Default memory size in bytes.
)

// Memory is the flat byte-addressable machine memory. Words are stored
// little-endian. All accesses are bounds-checked before any byte is
// written, so a failed access never partially mutates state.
type Memory struct {
	Data []byte
}

// NewMemory creates a zeroed memory of the given size in bytes.
func NewMemory(size uint) *Memory {
	return &Memory{
		Data: make([]byte, size),
	}
}

// Reset zeroes the memory contents.
func (mem *Memory) Reset() {
	clear(mem.Data)
}

// Size returns the memory size in bytes.
func (mem *Memory) Size() uint32 {
	return uint32(len(mem.Data))
}

// inBounds reports whether a full word at addr lies inside the memory.
func (mem *Memory) inBounds(addr uint32) bool {
	return uint64(addr)+4 <= uint64(len(mem.Data))
}

// LoadWord reads the 32-bit word at addr.
func (mem *Memory) LoadWord(addr uint32) (value uint32, err error) {
	if !mem.inBounds(addr) {
		err = ErrAddressRange
		return
	}

	value = binary.LittleEndian.Uint32(mem.Data[addr:])
	return
}

// StoreWord writes the 32-bit word at addr.
func (mem *Memory) StoreWord(addr uint32, value uint32) (err error) {
	if !mem.inBounds(addr) {
		err = ErrAddressRange
		return
	}

	binary.LittleEndian.PutUint32(mem.Data[addr:], value)
	return
}
