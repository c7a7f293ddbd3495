package machine

import (
	"fmt"

	"github.com/chazu/avm/entity"
)

// Record is an entry of a class table. Every record carries the symbolic
// name it was defined under; anonymous constants have an empty name.
type Record interface {
	Symbol() string
}

// byName is the equality predicate shared by every class table.
func byName[T Record](entry T, key any) bool {
	name, ok := key.(string)
	return ok && name != "" && entry.Symbol() == name
}

// Mode describes how a register may be accessed by compiled code.
type Mode uint8

const (
	ReadWrite Mode = iota
	ReadOnly
)

func (m Mode) String() string {
	if m == ReadOnly {
		return "R"
	}
	return "R/W"
}

// Register is a named storage cell of the machine or of a segment.
type Register struct {
	Name  string
	Mode  Mode
	Width int
}

func (r *Register) Symbol() string { return r.Name }

// Writable reports whether compiled code may store into the register.
func (r *Register) Writable() bool { return r.Mode == ReadWrite }

// Port is an I/O endpoint. Built-in ports map to the standard streams.
type Port struct {
	Name string
	FD   int
	Path string
}

func (p *Port) Symbol() string { return p.Name }

// String is a character string, either named by DEF or an anonymous literal.
type String struct {
	Name string
	Text string
}

func (s *String) Symbol() string { return s.Name }

// Number is a numeric variable or a constant too wide for an immediate.
type Number struct {
	Name  string
	Width int
	Value int64
}

func (n *Number) Symbol() string { return n.Name }

// Label is a named offset into a segment's instruction table.
type Label struct {
	Name    string
	Segment int
	Offset  int
}

func (l *Label) Symbol() string { return l.Name }

// Buffer is a seekable memory area.
type Buffer struct {
	Name     string
	Capacity int
}

func (b *Buffer) Symbol() string { return b.Name }

// Group collects other entities under one name.
type Group struct {
	Name    string
	Members []entity.Entity
}

func (g *Group) Symbol() string { return g.Name }

// Unresolved is a forward reference left for the linker to patch.
type Unresolved struct {
	Name string
	File string
	Line int
}

func (u *Unresolved) Symbol() string { return u.Name }

func (u *Unresolved) String() string {
	if u.File == "" {
		return u.Name
	}
	return fmt.Sprintf("%s (%s:%d)", u.Name, u.File, u.Line)
}

// Opaque stands in for classes whose records the compiler never creates
// (ERROR, PROCESS). Their tables exist so that every class is addressable.
type Opaque struct {
	Name string
}

func (o *Opaque) Symbol() string { return o.Name }
