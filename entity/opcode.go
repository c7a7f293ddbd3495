package entity

import "fmt"

// Opcode is the selector carried in an instruction header entity.
type Opcode uint8

// Structural
const (
	OpNOP   Opcode = 0x00 // no operation
	OpSTOR  Opcode = 0x01 // store values into a target
	OpINS   Opcode = 0x02 // insert
	OpGOTO  Opcode = 0x03 // unconditional jump
	OpJZ    Opcode = 0x04 // jump if zero
	OpJE    Opcode = 0x05 // jump if equal
	OpJNZ   Opcode = 0x06 // jump if not zero
	OpFORK  Opcode = 0x07 // start a process at a label
	OpKILL  Opcode = 0x08 // stop a process
	OpPUSH  Opcode = 0x09 // push onto the process stack
	OpPOP   Opcode = 0x0A // pop from the process stack
	OpLABEL Opcode = 0x0B // named code location
)

// Arithmetic
const (
	OpADD Opcode = 0x0C
	OpSUB Opcode = 0x0D
	OpMUL Opcode = 0x0E
	OpDIV Opcode = 0x0F
	OpPOW Opcode = 0x10
	OpOR  Opcode = 0x11
	OpAND Opcode = 0x12
	OpCMP Opcode = 0x13
	OpINC Opcode = 0x14
	OpDEC Opcode = 0x15
)

// I/O
const (
	OpFILE Opcode = 0x16
	OpIN   Opcode = 0x17
	OpOUT  Opcode = 0x18
	OpSIZE Opcode = 0x19
)

// OpINVALID marks compile-time directives that never reach the code stream.
const OpINVALID Opcode = 0xFF

var opcodeNames = map[Opcode]string{
	OpNOP:     "NOP",
	OpSTOR:    "STOR",
	OpINS:     "INS",
	OpGOTO:    "GOTO",
	OpJZ:      "JZ",
	OpJE:      "JE",
	OpJNZ:     "JNZ",
	OpFORK:    "FORK",
	OpKILL:    "KILL",
	OpPUSH:    "PUSH",
	OpPOP:     "POP",
	OpLABEL:   "LABEL",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpMUL:     "MUL",
	OpDIV:     "DIV",
	OpPOW:     "POW",
	OpOR:      "OR",
	OpAND:     "AND",
	OpCMP:     "CMP",
	OpINC:     "INC",
	OpDEC:     "DEC",
	OpFILE:    "FILE",
	OpIN:      "IN",
	OpOUT:     "OUT",
	OpSIZE:    "SIZE",
	OpINVALID: "INVALID",
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(op))
}

// Known reports whether op is a defined opcode other than OpINVALID.
func (op Opcode) Known() bool {
	_, ok := opcodeNames[op]
	return ok && op != OpINVALID
}

// IsJump returns true for the opcodes whose last operand is a jump target.
func (op Opcode) IsJump() bool {
	switch op {
	case OpGOTO, OpJZ, OpJE, OpJNZ, OpFORK:
		return true
	}
	return false
}
