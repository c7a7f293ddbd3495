package entity

import (
	"fmt"
	"strings"
)

// Class is the type discriminator stored in the high byte of every entity.
// Each class value is also the index of that class's table in a segment's
// table of tables.
type Class uint8

const (
	ClassInstruction Class = 0x00 // opcode header
	ClassError       Class = 0x01 // errors/exceptions
	ClassGroup       Class = 0x02 // grouping of other entities
	ClassRegister    Class = 0x03 // register of (nearly) arbitrary width
	ClassBuffer      Class = 0x04 // seekable memory buffer
	ClassPort        Class = 0x05 // I/O port (file, socket, ...)
	ClassString      Class = 0x06 // character string
	ClassLabel       Class = 0x07 // named code location
	ClassProcess     Class = 0x08 // thread ID
	ClassNumber      Class = 0x09 // numeric variable or wide constant
	ClassImmediate   Class = 0x0A // self-contained small integer
	ClassSegment     Class = 0x0B // program segment
	ClassUnresolved  Class = 0x0C // forward reference patched at link time

	ClassReserved Class = 0xFF
)

// ClassCount is the number of defined classes, and the size of a segment's
// table of tables.
const ClassCount = int(ClassUnresolved) + 1

var classNames = [ClassCount]string{
	ClassInstruction: "INSTRUCTION",
	ClassError:       "ERROR",
	ClassGroup:       "GROUP",
	ClassRegister:    "REGISTER",
	ClassBuffer:      "BUFFER",
	ClassPort:        "PORT",
	ClassString:      "STRING",
	ClassLabel:       "LABEL",
	ClassProcess:     "PROCESS",
	ClassNumber:      "NUMBER",
	ClassImmediate:   "IMMEDIATE",
	ClassSegment:     "SEGMENT",
	ClassUnresolved:  "UNRESOLVED",
}

// Valid reports whether c is one of the defined classes.
func (c Class) Valid() bool {
	return int(c) < ClassCount
}

// String returns the class keyword as written in assembly source.
func (c Class) String() string {
	if c.Valid() {
		return classNames[c]
	}
	if c == ClassReserved {
		return "RESERVED"
	}
	return fmt.Sprintf("Class(0x%02X)", uint8(c))
}

// ClassByName resolves a class keyword. The match is case-exact.
func ClassByName(name string) (Class, bool) {
	for i, n := range classNames {
		if n == name {
			return Class(i), true
		}
	}
	return ClassReserved, false
}

// Classes returns every defined class in tag order.
func Classes() []Class {
	out := make([]Class, ClassCount)
	for i := range out {
		out[i] = Class(i)
	}
	return out
}

// Set is a bit set of classes, used to describe the operand classes an
// opcode accepts in a given position.
type Set uint32

// SetOf builds a set from the given classes.
func SetOf(classes ...Class) Set {
	var s Set
	for _, c := range classes {
		if c.Valid() {
			s |= 1 << c
		}
	}
	return s
}

// Has reports whether c is a member of s.
func (s Set) Has(c Class) bool {
	return c.Valid() && s&(1<<c) != 0
}

// With returns s extended by the given classes.
func (s Set) With(classes ...Class) Set {
	return s | SetOf(classes...)
}

// String lists the members in tag order, e.g. "REGISTER|STRING".
func (s Set) String() string {
	var parts []string
	for i := 0; i < ClassCount; i++ {
		if s&(1<<i) != 0 {
			parts = append(parts, classNames[i])
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
