package compiler

import (
	"sort"

	"github.com/chazu/avm/entity"
)

// CompileFunc validates a fully populated op and emits it into the
// compiler's current segment.
type CompileFunc func(c *Compiler, op *Op) error

// Def describes one instruction token.
type Def struct {
	Token   string
	Opcode  entity.Opcode
	MinArgs int
	Compile CompileFunc
}

// Alias reports whether the token encodes another token's opcode.
func (d *Def) Alias() bool {
	return d.Opcode != entity.OpINVALID && d.Opcode.String() != d.Token
}

// Directive reports whether the token is compile-time only.
func (d *Def) Directive() bool {
	return d.Opcode == entity.OpINVALID
}

// Registry maps instruction tokens to their definitions.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry builds a registry from a static definition list. Later
// entries replace earlier ones with the same token.
func NewRegistry(defs []Def) *Registry {
	r := &Registry{defs: make(map[string]*Def, len(defs))}
	for i := range defs {
		d := defs[i]
		r.defs[d.Token] = &d
	}
	return r
}

// Lookup finds a token. The match is case-sensitive.
func (r *Registry) Lookup(token string) (*Def, bool) {
	d, ok := r.defs[token]
	return d, ok
}

// Tokens lists the registered tokens in sorted order.
func (r *Registry) Tokens() []string {
	out := make([]string, 0, len(r.defs))
	for t := range r.defs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int { return len(r.defs) }

// Builtins is the instruction set understood by the assembler.
var Builtins = []Def{
	// Directives
	{"DEF", entity.OpINVALID, 2, compileDEF},
	{"WIDTH", entity.OpINVALID, 2, compileWIDTH},

	// Structural
	{"NOP", entity.OpNOP, 0, compileNOP},
	{"STOR", entity.OpSTOR, 2, compileSTOR},
	{"GOTO", entity.OpGOTO, 1, compileGOTO},
	{"JMP", entity.OpGOTO, 1, compileGOTO},
	{"JZ", entity.OpJZ, 2, compileCondJump},
	{"JNZ", entity.OpJNZ, 2, compileCondJump},
	{"FORK", entity.OpFORK, 1, compileFORK},
	{"KILL", entity.OpKILL, 1, compileKILL},
	{"PUSH", entity.OpPUSH, 1, compilePUSH},
	{"POP", entity.OpPOP, 1, compilePOP},
	{"LABEL", entity.OpLABEL, 1, compileLABEL},

	// Arithmetic
	{"ADD", entity.OpADD, 1, compileArith},
	{"SUB", entity.OpSUB, 1, compileArith},
	{"MUL", entity.OpMUL, 1, compileArith},
	{"DIV", entity.OpDIV, 1, compileArith},
	{"POW", entity.OpPOW, 1, compileArith},
	{"OR", entity.OpOR, 1, compileArith},
	{"AND", entity.OpAND, 1, compileArith},
	{"CMP", entity.OpCMP, 1, compileArith},
	{"INC", entity.OpINC, 1, compileStep},
	{"DEC", entity.OpDEC, 1, compileStep},

	// I/O
	{"IN", entity.OpIN, 2, compileIN},
	{"OUT", entity.OpOUT, 2, compileOUT},
	{"SIZE", entity.OpSIZE, 2, compileSIZE},
}

// DefaultRegistry returns a registry holding Builtins.
func DefaultRegistry() *Registry {
	return NewRegistry(Builtins)
}
