package compiler

import (
	"github.com/chazu/avm/entity"
)

// MaxParams bounds the number of parameters a single instruction may carry.
const MaxParams = 64

// ParamKind is the lexical kind of a raw operand, as reported by the parser.
type ParamKind uint8

const (
	ParamString   ParamKind = iota // quoted string literal
	ParamName                      // bare symbolic name
	ParamNumber                    // numeric literal
	ParamClass                     // class-name keyword
	ParamRegister                  // known register name
	ParamPort                      // @port name
)

var paramKindNames = [...]string{
	ParamString:   "string",
	ParamName:     "name",
	ParamNumber:   "number",
	ParamClass:    "class",
	ParamRegister: "register",
	ParamPort:     "port",
}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return "unknown"
}

// Resolution is the outcome of resolving one parameter: either a definite
// entity, or a deferred reference to a name the linker must patch. Deferred
// resolutions still carry the UNRESOLVED entity emitted on the wire.
type Resolution struct {
	Entity   entity.Entity
	Deferred string
}

// IsDeferred reports whether the resolution awaits the link stage.
func (r Resolution) IsDeferred() bool { return r.Deferred != "" }

// Param is one raw operand of an instruction.
type Param struct {
	Text string
	Kind ParamKind
	Resolution

	resolved bool
}

// Resolved reports whether the resolver has already run on p.
func (p *Param) Resolved() bool { return p.resolved }

// Op is the instruction under construction between Begin and End.
type Op struct {
	Def    *Def
	Token  string
	File   string
	Line   int
	Params []Param
}

// Entities returns the resolved entity of every parameter, in order.
func (op *Op) Entities() []entity.Entity {
	out := make([]entity.Entity, len(op.Params))
	for i := range op.Params {
		out[i] = op.Params[i].Entity
	}
	return out
}
