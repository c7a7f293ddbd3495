package compiler

import (
	"strings"

	"github.com/chazu/avm/entity"
)

// Resolve turns parameter i of op into an entity. Resolving a parameter
// twice returns the first result.
func (c *Compiler) Resolve(op *Op, i int) (Resolution, error) {
	if i < 0 || i >= len(op.Params) {
		return Resolution{Entity: entity.Invalid}, errorf(ErrArity, op, "%s: no parameter %d", op.Token, i+1)
	}
	p := &op.Params[i]
	if p.Resolved() {
		return p.Resolution, nil
	}

	var (
		r   Resolution
		err error
	)
	switch p.Kind {
	case ParamString:
		r, err = c.resolveString(op, p.Text)
	case ParamNumber:
		r, err = c.resolveNumber(op, p.Text)
	case ParamRegister:
		r, err = c.resolveRegister(op, p.Text)
	case ParamPort:
		r, err = c.resolvePort(op, p.Text)
	case ParamName:
		r, err = c.resolveName(op, p.Text)
	case ParamClass:
		r, err = c.resolveClass(op, p.Text)
	default:
		err = errorf(ErrState, op, "%s: parameter %q has unknown kind %d", op.Token, p.Text, p.Kind)
	}
	if err != nil {
		return Resolution{Entity: entity.Invalid}, err
	}
	p.Resolution = r
	p.resolved = true
	return r, nil
}

func (c *Compiler) resolveAll(op *Op) error {
	for i := range op.Params {
		if _, err := c.Resolve(op, i); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) resolveString(op *Op, text string) (Resolution, error) {
	e, err := c.seg.AddString("", Unquote(text))
	if err != nil {
		return Resolution{}, errorf(ErrAllocation, op, "%s: string literal: %v", op.Token, err)
	}
	return Resolution{Entity: e}, nil
}

func (c *Compiler) resolveNumber(op *Op, text string) (Resolution, error) {
	v, _, err := ParseNumber(text)
	if err != nil {
		return Resolution{}, errorf(ErrNumeric, op, "%s: %v", op.Token, err)
	}
	if entity.FitsImmediate(v) {
		return Resolution{Entity: entity.NewImmediate(v)}, nil
	}
	e, err := c.seg.AddNumber("", v)
	if err != nil {
		return Resolution{}, errorf(ErrAllocation, op, "%s: numeric constant: %v", op.Token, err)
	}
	return Resolution{Entity: e}, nil
}

func (c *Compiler) resolveRegister(op *Op, name string) (Resolution, error) {
	if e, ok := c.seg.Lookup(entity.ClassRegister, name); ok {
		return Resolution{Entity: e}, nil
	}
	if e, _, ok := c.machine.Register(name); ok {
		return Resolution{Entity: e}, nil
	}
	return Resolution{}, errorf(ErrUnresolved, op, "%s: Register \"%s\" is not defined.", op.Token, name)
}

func (c *Compiler) resolvePort(op *Op, name string) (Resolution, error) {
	if e, ok := c.seg.Lookup(entity.ClassPort, name); ok {
		return Resolution{Entity: e}, nil
	}
	if e, _, ok := c.machine.Port(name); ok {
		return Resolution{Entity: e}, nil
	}
	return Resolution{}, errorf(ErrUnresolved, op, "%s: Port \"%s\" is not defined.", op.Token, name)
}

// resolveName consults the entity map. Symbols owned by another segment
// are indexed in that segment's tables, so from here they are forward
// references like any undefined name.
func (c *Compiler) resolveName(op *Op, name string) (Resolution, error) {
	if sym, ok := c.symbols[name]; ok && sym.owner == c.seg {
		return Resolution{Entity: sym.entity}, nil
	}
	if e, _, ok := c.machine.Register(name); ok {
		return Resolution{Entity: e}, nil
	}
	if e, _, ok := c.machine.Port(name); ok {
		return Resolution{Entity: e}, nil
	}

	if e, ok := c.seg.Lookup(entity.ClassUnresolved, name); ok {
		return Resolution{Entity: e, Deferred: name}, nil
	}
	file := op.File
	if file == "" {
		file = c.file
	}
	e, err := c.seg.AddUnresolved(name, file, op.Line)
	if err != nil {
		return Resolution{}, errorf(ErrAllocation, op, "%s: unresolved reference: %v", op.Token, err)
	}
	return Resolution{Entity: e, Deferred: name}, nil
}

func (c *Compiler) resolveClass(op *Op, name string) (Resolution, error) {
	class, ok := entity.ClassByName(name)
	if !ok {
		return Resolution{}, errorf(ErrClassMismatch, op, "%s: \"%s\" is not a class name.", op.Token, name)
	}
	e := entity.Bare(class)
	if e == entity.Invalid {
		return Resolution{}, errorf(ErrClassMismatch, op, "%s: Class %s cannot be used as a designator.", op.Token, name)
	}
	return Resolution{Entity: e}, nil
}

// Unquote strips the surrounding double quotes of a string literal and
// decodes its escape sequences. Unknown escapes keep the escaped character.
func Unquote(text string) string {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	if !strings.ContainsRune(text, '\\') {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '\\' || i+1 == len(text) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch text[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(text[i])
		}
	}
	return b.String()
}
