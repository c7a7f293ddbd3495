package compiler

import (
	"github.com/chazu/avm/entity"
	"github.com/chazu/avm/machine"
)

// Operand class sets. UNRESOLVED is accepted everywhere and checked by the
// linker once the name is known.
var (
	numeric   = entity.SetOf(entity.ClassRegister, entity.ClassNumber, entity.ClassImmediate)
	storable  = entity.SetOf(entity.ClassRegister, entity.ClassString, entity.ClassNumber)
	locations = storable.With(entity.ClassBuffer)
	values    = locations.With(entity.ClassImmediate, entity.ClassGroup, entity.ClassLabel)
	labels    = entity.SetOf(entity.ClassLabel)
	ports     = entity.SetOf(entity.ClassPort)
	processes = numeric.With(entity.ClassProcess)

	definable = entity.SetOf(entity.ClassString, entity.ClassNumber, entity.ClassRegister,
		entity.ClassPort, entity.ClassBuffer, entity.ClassGroup)
)

// widths accepted by WIDTH, in bits.
var widths = map[int64]bool{8: true, 16: true, 32: true, 64: true}

// ---------------------------------------------------------------------------
// Validation helpers
// ---------------------------------------------------------------------------

// arity bounds the parameter count; max < 0 means unbounded.
func arity(op *Op, min, max int) error {
	n := len(op.Params)
	if n < min {
		return errorf(ErrArity, op, "%s: Not enough parameters (expected at least %d, got %d).", op.Token, min, n)
	}
	if max >= 0 && n > max {
		return errorf(ErrArity, op, "%s: too many arguments (expected at most %d, got %d).", op.Token, max, n)
	}
	return nil
}

// check validates the class of parameter i against allowed.
func check(op *Op, i int, allowed entity.Set) error {
	p := op.Params[i]
	e := p.Entity
	if e.IsBare() {
		return errorf(ErrClassMismatch, op, "%s: Parameter %d (\"%s\") is a class name, not a value.",
			op.Token, i+1, p.Text)
	}
	if e.Class() == entity.ClassUnresolved || allowed.Has(e.Class()) {
		return nil
	}
	return errorf(ErrClassMismatch, op, "%s: Parameter %d (\"%s\") is %s, expected %s.",
		op.Token, i+1, p.Text, e.Class(), allowed)
}

// writable reports whether compiled code may store into e. Literal
// constants and read-only registers are not writable.
func (c *Compiler) writable(e entity.Entity) bool {
	switch e.Class() {
	case entity.ClassUnresolved, entity.ClassBuffer:
		return true
	case entity.ClassString, entity.ClassNumber:
		return !e.Constant()
	case entity.ClassRegister:
		rec, ok := c.record(e)
		if !ok {
			return false
		}
		r, isReg := rec.(*machine.Register)
		return isReg && r.Writable()
	}
	return false
}

// checkTarget validates that parameter i is a writable member of allowed.
func (c *Compiler) checkTarget(op *Op, i int, allowed entity.Set) error {
	if err := check(op, i, allowed); err != nil {
		return err
	}
	if !c.writable(op.Params[i].Entity) {
		return errorf(ErrClassMismatch, op, "%s: Target \"%s\" is not writable.", op.Token, op.Params[i].Text)
	}
	return nil
}

func (c *Compiler) checkLabel(op *Op, i int) error {
	if err := check(op, i, labels); err != nil {
		return errorf(ErrClassMismatch, op, "%s: Target \"%s\" is not a valid LABEL.", op.Token, op.Params[i].Text)
	}
	return nil
}

// emit appends the instruction header and every resolved parameter.
func (c *Compiler) emit(op *Op) error {
	words := make([]entity.Entity, 0, len(op.Params)+1)
	words = append(words, entity.NewInstruction(op.Def.Opcode, 0, uint8(len(op.Params))))
	words = append(words, op.Entities()...)
	if err := c.seg.Emit(words...); err != nil {
		return errorf(ErrAllocation, op, "%s: %v", op.Token, err)
	}
	for _, p := range op.Params {
		if p.IsDeferred() {
			c.log.Debugf("   deferred: %s (%s)", p.Deferred, p.Entity)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Directives
// ---------------------------------------------------------------------------

// compileDEF handles "DEF class, name". The class is a class keyword or a
// numeric class tag.
func compileDEF(c *Compiler, op *Op) error {
	if err := arity(op, 2, 2); err != nil {
		return err
	}
	if k := op.Params[0].Kind; k != ParamClass && k != ParamNumber {
		return errorf(ErrClassMismatch, op, "DEF: \"%s\" is not a class designator.", op.Params[0].Text)
	}
	class, err := c.designator(op)
	if err != nil {
		return err
	}
	if !definable.Has(class) {
		return errorf(ErrClassMismatch, op, "DEF: \"%s\" is not a definable class (expected %s).",
			op.Params[0].Text, definable)
	}

	target := op.Params[1]
	switch target.Kind {
	case ParamName, ParamPort, ParamRegister:
	default:
		return errorf(ErrClassMismatch, op, "DEF: \"%s\" is not a symbol name.", target.Text)
	}
	name := target.Text

	if c.defined(class, name) {
		return errorf(ErrDuplicate, op, "DEF: Symbol \"%s\" is already defined.", name)
	}

	var e entity.Entity
	switch class {
	case entity.ClassString:
		e, err = c.seg.AddString(name, "")
	case entity.ClassNumber:
		e, err = c.seg.AddNumber(name, 0)
	case entity.ClassRegister:
		e, err = c.seg.AddRegister(name, machine.ReadWrite)
	case entity.ClassPort:
		e, err = c.seg.AddPort(name)
	case entity.ClassBuffer:
		e, err = c.seg.AddBuffer(name)
	case entity.ClassGroup:
		e, err = c.seg.AddGroup(name)
	}
	if err != nil {
		return errorf(ErrAllocation, op, "DEF: %s %s: %v", class, name, err)
	}

	c.define(name, e)
	c.log.Debugf("   defined %s as %s", name, e)
	return nil
}

// designator decodes DEF's class parameter. Numeric class tags are parsed
// directly so a rejected designator never reaches the constant tables.
func (c *Compiler) designator(op *Op) (entity.Class, error) {
	p := op.Params[0]
	if p.Kind == ParamNumber {
		v, _, err := ParseNumber(p.Text)
		if err != nil {
			return entity.ClassReserved, errorf(ErrNumeric, op, "DEF: %v", err)
		}
		if v < 0 || v >= int64(entity.ClassCount) {
			return entity.ClassReserved, nil
		}
		return entity.Class(v), nil
	}
	r, err := c.Resolve(op, 0)
	if err != nil {
		return entity.ClassReserved, err
	}
	return r.Entity.Class(), nil
}

// defined reports whether name is taken: in the entity map, in the tables
// a new symbol of class would live in, or as a register or port name. The
// parser classifies register and port names before the entity map is ever
// consulted, so no other class may claim them.
func (c *Compiler) defined(class entity.Class, name string) bool {
	if _, ok := c.symbols[name]; ok {
		return true
	}
	if _, ok := c.seg.Lookup(class, name); ok {
		return true
	}
	if _, ok := c.seg.Lookup(entity.ClassRegister, name); ok {
		return true
	}
	if _, ok := c.seg.Lookup(entity.ClassPort, name); ok {
		return true
	}
	if _, _, ok := c.machine.Register(name); ok {
		return true
	}
	_, _, ok := c.machine.Port(name)
	return ok
}

// compileWIDTH handles "WIDTH name, bits", setting the storage width of a
// NUMBER defined in the current segment.
func compileWIDTH(c *Compiler, op *Op) error {
	if err := arity(op, 2, 2); err != nil {
		return err
	}
	name := op.Params[0].Text
	sym, ok := c.symbols[name]
	if !ok || sym.owner != c.seg {
		return errorf(ErrUnresolved, op, "WIDTH: \"%s\" is not defined in this segment.", name)
	}
	if sym.entity.Class() != entity.ClassNumber {
		return errorf(ErrClassMismatch, op, "WIDTH: \"%s\" is %s, expected NUMBER.", name, sym.entity.Class())
	}
	if op.Params[1].Kind != ParamNumber {
		return errorf(ErrNumeric, op, "WIDTH: \"%s\" is not a bit count.", op.Params[1].Text)
	}
	bits, _, err := ParseNumber(op.Params[1].Text)
	if err != nil {
		return errorf(ErrNumeric, op, "WIDTH: %v", err)
	}
	if !widths[bits] {
		return errorf(ErrNumeric, op, "WIDTH: %d is not a supported width (8, 16, 32 or 64).", bits)
	}

	rec, _ := c.seg.Record(sym.entity)
	rec.(*machine.Number).Width = int(bits)
	return nil
}

// compileLABEL records the current end of the instruction table under a
// name. Labels compile to nothing.
func compileLABEL(c *Compiler, op *Op) error {
	if err := arity(op, 1, 1); err != nil {
		return err
	}
	p := op.Params[0]
	if p.Kind != ParamName {
		return errorf(ErrClassMismatch, op, "LABEL: \"%s\" is not a valid label name.", p.Text)
	}
	if c.defined(entity.ClassLabel, p.Text) {
		return errorf(ErrDuplicate, op, "LABEL: Symbol \"%s\" is already defined.", p.Text)
	}

	offset := c.seg.Code().Len()
	e, err := c.seg.AddLabel(p.Text, offset)
	if err != nil {
		return errorf(ErrAllocation, op, "LABEL: %s: %v", p.Text, err)
	}
	c.define(p.Text, e)
	c.log.Debugf("   label %s at %04X", p.Text, offset)
	return nil
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

func compileNOP(c *Compiler, op *Op) error {
	if err := arity(op, 0, 0); err != nil {
		return err
	}
	return c.emit(op)
}

// compileSTOR handles "STOR target, value...".
func compileSTOR(c *Compiler, op *Op) error {
	if err := arity(op, 2, -1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if op.Params[0].Entity.Class() == entity.ClassPort {
		return errorf(ErrClassMismatch, op, "STOR: Target \"%s\" is a PORT; use OUT to write to ports.",
			op.Params[0].Text)
	}
	if err := c.checkTarget(op, 0, storable); err != nil {
		return err
	}
	for i := 1; i < len(op.Params); i++ {
		if err := check(op, i, values); err != nil {
			return err
		}
	}
	return c.emit(op)
}

// compileArith handles the two-address and three-address arithmetic forms.
// With a third parameter the result goes there and the first operand may be
// any numeric, including an immediate.
func compileArith(c *Compiler, op *Op) error {
	if err := arity(op, 1, 3); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	switch len(op.Params) {
	case 3:
		if err := check(op, 0, numeric); err != nil {
			return err
		}
		if err := check(op, 1, numeric); err != nil {
			return err
		}
		if err := c.checkTarget(op, 2, numeric); err != nil {
			return err
		}
	case 2:
		if err := c.checkTarget(op, 0, numeric); err != nil {
			return err
		}
		if err := check(op, 1, numeric); err != nil {
			return err
		}
	default:
		if err := c.checkTarget(op, 0, numeric); err != nil {
			return err
		}
	}
	return c.emit(op)
}

// compileStep handles INC and DEC.
func compileStep(c *Compiler, op *Op) error {
	if err := arity(op, 1, 1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := c.checkTarget(op, 0, numeric); err != nil {
		return err
	}
	return c.emit(op)
}

// compileGOTO handles GOTO and its JMP alias.
func compileGOTO(c *Compiler, op *Op) error {
	if err := arity(op, 1, 1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := c.checkLabel(op, 0); err != nil {
		return err
	}
	return c.emit(op)
}

// compileCondJump handles "JZ value, label" and "JNZ value, label".
func compileCondJump(c *Compiler, op *Op) error {
	if err := arity(op, 2, 2); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := check(op, 0, numeric); err != nil {
		return err
	}
	if err := c.checkLabel(op, 1); err != nil {
		return err
	}
	return c.emit(op)
}

func compileFORK(c *Compiler, op *Op) error {
	if err := arity(op, 1, 1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := c.checkLabel(op, 0); err != nil {
		return err
	}
	return c.emit(op)
}

func compileKILL(c *Compiler, op *Op) error {
	if err := arity(op, 1, 1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := check(op, 0, processes); err != nil {
		return err
	}
	return c.emit(op)
}

func compilePUSH(c *Compiler, op *Op) error {
	if err := arity(op, 1, 1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := check(op, 0, values); err != nil {
		return err
	}
	return c.emit(op)
}

func compilePOP(c *Compiler, op *Op) error {
	if err := arity(op, 1, 1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := c.checkTarget(op, 0, locations); err != nil {
		return err
	}
	return c.emit(op)
}

// compileIN handles "IN port, target...".
func compileIN(c *Compiler, op *Op) error {
	if err := arity(op, 2, -1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := check(op, 0, ports); err != nil {
		return errorf(ErrClassMismatch, op, "IN: Source \"%s\" is not a PORT object.", op.Params[0].Text)
	}
	for i := 1; i < len(op.Params); i++ {
		if err := c.checkTarget(op, i, locations); err != nil {
			return err
		}
	}
	return c.emit(op)
}

// compileOUT handles "OUT port, value...".
func compileOUT(c *Compiler, op *Op) error {
	if err := arity(op, 2, -1); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := check(op, 0, ports); err != nil {
		return errorf(ErrClassMismatch, op, "OUT: Target \"%s\" is not a PORT object.", op.Params[0].Text)
	}
	for i := 1; i < len(op.Params); i++ {
		if err := check(op, i, values); err != nil {
			return err
		}
	}
	return c.emit(op)
}

// compileSIZE handles "SIZE object, target", storing the size of object
// into a writable numeric.
func compileSIZE(c *Compiler, op *Op) error {
	if err := arity(op, 2, 2); err != nil {
		return err
	}
	if err := c.resolveAll(op); err != nil {
		return err
	}
	if err := check(op, 0, values.With(entity.ClassPort)); err != nil {
		return err
	}
	if err := c.checkTarget(op, 1, numeric); err != nil {
		return errorf(ErrClassMismatch, op, "SIZE: Reference \"%s\" is not a numeric storage location.",
			op.Params[1].Text)
	}
	return c.emit(op)
}
