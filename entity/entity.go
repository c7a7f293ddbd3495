// Package entity implements the 32-bit tagged reference format shared by the
// AVM compiler, linker and virtual machine.
//
// Every entity carries its class in the most significant byte. The remaining
// 24 bits are a class-specific payload:
//
//	INSTRUCTION  [class:8][opcode:8][flags:8][argc:8]
//	IMMEDIATE    [class:8][000][sign:1][magnitude:20]
//	others       [class:8][constant:1][global:1][000000][index:16]
//
// A bare class entity (payload all ones) names a class without referring to
// any table entry; it only appears as a DEF designator.
package entity

import "fmt"

// Entity is a class-tagged reference or a self-contained immediate value.
type Entity uint32

// Invalid is returned by every constructor that cannot encode its input.
const Invalid Entity = 0xFFFFFFFF

const (
	classShift         = 24
	payloadMask uint32 = 0x00FFFFFF
	barePayload        = payloadMask
)

const (
	// MaxIndex is the largest table index an entity can address.
	MaxIndex         = 0xFFFF
	indexMask uint32 = MaxIndex
)

const (
	// MaxImmediate is the largest magnitude an immediate can hold.
	MaxImmediate        = 0xFFFFF
	immSignBit   uint32 = 1 << 20
	immMask      uint32 = MaxImmediate
)

// Flags qualify a table-indexed entity.
type Flags uint32

const (
	// FlagGlobal marks an entity that indexes the machine's table rather than
	// the segment's own table (ports and registers).
	FlagGlobal Flags = 1 << 22

	// FlagConstant marks an anonymous literal constant (strings and numbers).
	FlagConstant Flags = 1 << 23

	flagMask = uint32(FlagGlobal | FlagConstant)
)

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewInstruction builds an instruction header entity.
func NewInstruction(op Opcode, flags uint8, argc uint8) Entity {
	return Entity(uint32(ClassInstruction)<<classShift |
		uint32(op)<<16 |
		uint32(flags)<<8 |
		uint32(argc))
}

// New builds a table-indexed entity. It returns Invalid for classes that
// do not index a table (INSTRUCTION, IMMEDIATE) and for indices outside
// [0, MaxIndex].
func New(class Class, index int) Entity {
	if !class.Valid() || class == ClassInstruction || class == ClassImmediate {
		return Invalid
	}
	if index < 0 || index > MaxIndex {
		return Invalid
	}
	return Entity(uint32(class)<<classShift | uint32(index))
}

// WithFlags returns e with the given flags set. Instruction, immediate,
// bare and invalid entities are returned unchanged.
func (e Entity) WithFlags(f Flags) Entity {
	if !e.Indexed() {
		return e
	}
	return e | Entity(uint32(f)&flagMask)
}

// NewImmediate packs a signed value into an immediate entity. Values whose
// magnitude exceeds MaxImmediate cannot be packed and yield Invalid.
func NewImmediate(val int64) Entity {
	code := uint32(ClassImmediate) << classShift
	v := val
	if v < 0 {
		if v < -MaxImmediate {
			return Invalid
		}
		v = -v
		code |= immSignBit
	}
	if v > MaxImmediate {
		return Invalid
	}
	return Entity(code | uint32(v)&immMask)
}

// FitsImmediate reports whether val can be encoded by NewImmediate.
func FitsImmediate(val int64) bool {
	return val >= -MaxImmediate && val <= MaxImmediate
}

// Bare returns the class-only entity used for class designators.
// INSTRUCTION has no designator: its all-ones payload is a valid header.
func Bare(class Class) Entity {
	if !class.Valid() || class == ClassInstruction {
		return Invalid
	}
	return Entity(uint32(class)<<classShift | barePayload)
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Class decodes the class tag.
func (e Entity) Class() Class {
	return Class(uint32(e) >> classShift & 0xFF)
}

// Payload returns the low 24 bits.
func (e Entity) Payload() uint32 {
	return uint32(e) & payloadMask
}

// Valid returns false for the Invalid sentinel and for unknown class tags.
func (e Entity) Valid() bool {
	return e != Invalid && e.Class().Valid()
}

// IsBare reports whether e is a class designator.
func (e Entity) IsBare() bool {
	return e.Valid() && e.Class() != ClassInstruction && e.Payload() == barePayload
}

// Indexed reports whether e refers to an entry of a class table.
func (e Entity) Indexed() bool {
	if !e.Valid() || e.IsBare() {
		return false
	}
	c := e.Class()
	return c != ClassInstruction && c != ClassImmediate
}

// Index returns the table index of a table-indexed entity, or -1.
func (e Entity) Index() int {
	if !e.Indexed() {
		return -1
	}
	return int(uint32(e) & indexMask)
}

// Flags returns the qualifier bits of a table-indexed entity.
func (e Entity) Flags() Flags {
	if !e.Indexed() {
		return 0
	}
	return Flags(uint32(e) & flagMask)
}

// Global reports whether e indexes a machine-global table.
func (e Entity) Global() bool {
	return e.Flags()&FlagGlobal != 0
}

// Constant reports whether e is an anonymous literal constant.
func (e Entity) Constant() bool {
	return e.Flags()&FlagConstant != 0
}

// Immediate unpacks an immediate value. The second result is false when e
// is not an immediate.
func (e Entity) Immediate() (int64, bool) {
	if e.Class() != ClassImmediate || !e.Valid() {
		return 0, false
	}
	v := int64(uint32(e) & immMask)
	if uint32(e)&immSignBit != 0 {
		v = -v
	}
	return v, true
}

// IsInstruction reports whether e is an instruction header.
func (e Entity) IsInstruction() bool {
	return e.Valid() && e.Class() == ClassInstruction
}

// Opcode returns the selector of an instruction header.
func (e Entity) Opcode() Opcode {
	if !e.IsInstruction() {
		return OpINVALID
	}
	return Opcode(uint32(e) >> 16 & 0xFF)
}

// InstFlags returns the flags byte of an instruction header.
func (e Entity) InstFlags() uint8 {
	if !e.IsInstruction() {
		return 0
	}
	return uint8(uint32(e) >> 8 & 0xFF)
}

// Argc returns the number of operand entities following an instruction header.
func (e Entity) Argc() int {
	if !e.IsInstruction() {
		return 0
	}
	return int(uint32(e) & 0xFF)
}

// String renders e for diagnostics and listings.
func (e Entity) String() string {
	switch {
	case e == Invalid:
		return "INVALID"
	case !e.Valid():
		return fmt.Sprintf("?%08X", uint32(e))
	case e.IsBare():
		return e.Class().String()
	case e.IsInstruction():
		if f := e.InstFlags(); f != 0 {
			return fmt.Sprintf("%s/%d[%02X]", e.Opcode(), e.Argc(), f)
		}
		return fmt.Sprintf("%s/%d", e.Opcode(), e.Argc())
	case e.Class() == ClassImmediate:
		v, _ := e.Immediate()
		return fmt.Sprintf("IMMEDIATE(%d)", v)
	}
	s := fmt.Sprintf("%s[%d]", e.Class(), e.Index())
	if e.Global() {
		s = "@" + s
	}
	if e.Constant() {
		s += "'"
	}
	return s
}
