// Package compiler turns the instruction stream reported by the parser into
// encoded entities appended to a segment.
//
// The parser drives a Compiler through three calls per source instruction:
// Begin, then Param once per operand, then End. End resolves every operand
// to an entity, validates the operand classes for the opcode, and emits the
// instruction header followed by the operand entities. Names that are not
// yet defined compile to UNRESOLVED references for the linker.
package compiler

import (
	"github.com/chazu/avm/entity"
	"github.com/chazu/avm/machine"
	"github.com/tliron/commonlog"
)

type symbol struct {
	entity entity.Entity
	owner  *machine.Segment
}

// Compiler holds the state of one compiler run: the machine, the segment
// being populated, the entity map and the instruction in flight.
type Compiler struct {
	machine  *machine.Machine
	registry *Registry
	log      commonlog.Logger

	seg     *machine.Segment
	file    string
	symbols map[string]symbol
	op      *Op
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRegistry replaces the built-in instruction set.
func WithRegistry(r *Registry) Option {
	return func(c *Compiler) { c.registry = r }
}

// WithLogger replaces the default "avm.compiler" logger.
func WithLogger(l commonlog.Logger) Option {
	return func(c *Compiler) { c.log = l }
}

// New creates a compiler that populates segments of m.
func New(m *machine.Machine, opts ...Option) *Compiler {
	c := &Compiler{
		machine: m,
		symbols: make(map[string]symbol),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = DefaultRegistry()
	}
	if c.log == nil {
		c.log = commonlog.GetLogger("avm.compiler")
	}
	return c
}

// Machine returns the machine the compiler populates.
func (c *Compiler) Machine() *machine.Machine { return c.machine }

// Registry returns the instruction set in use.
func (c *Compiler) Registry() *Registry { return c.registry }

// Segment returns the segment under construction, or nil.
func (c *Compiler) Segment() *machine.Segment { return c.seg }

// Symbol looks up a name in the entity map.
func (c *Compiler) Symbol(name string) (entity.Entity, bool) {
	s, ok := c.symbols[name]
	return s.entity, ok
}

// BeginFile starts a new segment for the named source file. Any segment
// still open is finished first.
func (c *Compiler) BeginFile(name string) (*machine.Segment, error) {
	if c.op != nil {
		return nil, errorf(ErrState, c.op, "%s: instruction still open at start of %s", c.op.Token, name)
	}
	c.Finish()
	seg, err := c.machine.NewSegment(name)
	if err != nil {
		return nil, &Error{Kind: ErrAllocation, File: name, Msg: err.Error()}
	}
	c.seg = seg
	c.file = name
	c.log.Debugf("segment %s (id %d)", seg.Name, seg.ID)
	return seg, nil
}

// Begin starts an instruction. A segment is started implicitly if none is
// open.
func (c *Compiler) Begin(token, file string, line int) error {
	if c.op != nil {
		return errorf(ErrState, c.op, "%s: instruction still open when %s began", c.op.Token, token)
	}
	if c.seg == nil {
		if _, err := c.BeginFile(file); err != nil {
			return err
		}
	}

	def, ok := c.registry.Lookup(token)
	if !ok {
		return errorf(ErrUnknownOpcode, &Op{Token: token, File: file, Line: line},
			"Instruction \"%s\" is not a supported opcode or alias.", token)
	}
	if def.Alias() {
		c.log.Infof("OP: %s (%s)", token, def.Opcode)
	} else {
		c.log.Infof("OP: %s", token)
	}

	c.op = &Op{Def: def, Token: token, File: file, Line: line}
	return nil
}

// Param appends an operand to the instruction in flight.
func (c *Compiler) Param(kind ParamKind, text string) error {
	if c.op == nil {
		return errorf(ErrState, nil, "parameter %q outside of an instruction", text)
	}
	if len(c.op.Params) >= MaxParams {
		return errorf(ErrArity, c.op, "%s: too many arguments (limit %d)", c.op.Token, MaxParams)
	}
	c.log.Debugf("   param: %s (%s)", text, kind)
	c.op.Params = append(c.op.Params, Param{Text: text, Kind: kind})
	return nil
}

// End compiles the instruction in flight. The op is consumed whether or
// not compilation succeeds; a failed instruction leaves the instruction
// table as it was.
func (c *Compiler) End() error {
	op := c.op
	if op == nil {
		return errorf(ErrState, nil, "end of instruction without a beginning")
	}
	c.op = nil

	if got := len(op.Params); got < op.Def.MinArgs {
		return errorf(ErrArity, op, "Not enough parameters for operation \"%s\" (expected %d, got %d).",
			op.Token, op.Def.MinArgs, got)
	}
	return op.Def.Compile(c, op)
}

// Abort discards the instruction in flight, if any.
func (c *Compiler) Abort() {
	c.op = nil
}

// Finish closes the current segment and returns it for linking. The entity
// map is kept; it spans the whole compiler run.
func (c *Compiler) Finish() *machine.Segment {
	seg := c.seg
	c.seg = nil
	c.op = nil
	c.file = ""
	return seg
}

func (c *Compiler) define(name string, e entity.Entity) {
	c.symbols[name] = symbol{entity: e, owner: c.seg}
}

func (c *Compiler) record(e entity.Entity) (machine.Record, bool) {
	if e.Global() {
		return c.machine.Record(e)
	}
	return c.seg.Record(e)
}
