// Package parser reads line-oriented assembly source and reports each
// instruction to a Sink as a Begin, Param..., End sequence.
//
// Syntax, one instruction per line:
//
//	TOKEN param[, param...]   ; comment
//
// A parameter is a quoted string, a numeric literal, a class keyword, a
// register name, an @port name, or a bare symbolic name. Comments start
// with ';' or '#' outside of string literals.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/avm/compiler"
	"github.com/chazu/avm/entity"
	"github.com/tliron/commonlog"
)

// ErrSyntax is wrapped by every error the reader itself produces.
var ErrSyntax = errors.New("syntax error")

var log = commonlog.GetLogger("avm.parser")

// Sink receives the instruction stream.
type Sink interface {
	Begin(token, file string, line int) error
	Param(kind compiler.ParamKind, text string) error
	End() error
}

// Registers tells the reader which bare names are register names.
type Registers interface {
	IsRegister(name string) bool
}

// Field is one parameter of a source line.
type Field struct {
	Kind compiler.ParamKind
	Text string
}

// Instruction is one non-empty source line.
type Instruction struct {
	Line   int
	Token  string
	Params []Field
}

func (in *Instruction) String() string {
	texts := make([]string, len(in.Params))
	for i, p := range in.Params {
		texts[i] = p.Text
	}
	if len(texts) == 0 {
		return in.Token
	}
	return in.Token + " " + strings.Join(texts, ", ")
}

// Reader splits source text into instructions.
type Reader struct {
	scanner *bufio.Scanner
	file    string
	line    int
	regs    Registers
}

// NewReader creates a reader for the named source. regs may be nil, in
// which case no name is classified as a register.
func NewReader(r io.Reader, file string, regs Registers) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
		file:    file,
		regs:    regs,
	}
}

// File returns the source name used in diagnostics.
func (r *Reader) File() string { return r.file }

// Next returns the next instruction, or io.EOF.
func (r *Reader) Next() (*Instruction, error) {
	for r.scanner.Scan() {
		r.line++
		in, err := ParseLine(r.scanner.Text(), r.regs)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", r.file, r.line, err)
		}
		if in == nil {
			continue
		}
		in.Line = r.line
		return in, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", r.file, err)
	}
	return nil, io.EOF
}

// ParseLine parses one line. Blank and comment-only lines yield nil.
func ParseLine(text string, regs Registers) (*Instruction, error) {
	body, err := stripComment(text)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}

	token, rest := body, ""
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		token, rest = body[:i], strings.TrimSpace(body[i+1:])
	}
	in := &Instruction{Token: token}
	if rest == "" {
		return in, nil
	}

	parts, err := splitParams(rest)
	if err != nil {
		return nil, err
	}
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%s: parameter %d is empty: %w", token, i+1, ErrSyntax)
		}
		in.Params = append(in.Params, Field{Kind: Classify(p, regs), Text: p})
	}
	return in, nil
}

// stripComment drops everything from the first comment character that is
// not inside a string literal.
func stripComment(text string) (string, error) {
	quoted := false
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '\\' && quoted:
			i++
		case c == '"':
			quoted = !quoted
		case (c == ';' || c == '#') && !quoted:
			return text[:i], nil
		}
	}
	if quoted {
		return "", fmt.Errorf("unterminated string literal: %w", ErrSyntax)
	}
	return text, nil
}

// splitParams splits on commas outside string literals and trims each part.
func splitParams(s string) ([]string, error) {
	var (
		parts  []string
		start  int
		quoted bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && quoted:
			i++
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string literal: %w", ErrSyntax)
	}
	return append(parts, strings.TrimSpace(s[start:])), nil
}

// Classify determines the lexical kind of a parameter.
func Classify(text string, regs Registers) compiler.ParamKind {
	switch {
	case strings.HasPrefix(text, `"`):
		return compiler.ParamString
	case compiler.IsNumeric(text):
		return compiler.ParamNumber
	case strings.HasPrefix(text, "@"):
		return compiler.ParamPort
	}
	if _, ok := entity.ClassByName(text); ok {
		return compiler.ParamClass
	}
	if regs != nil && regs.IsRegister(text) {
		return compiler.ParamRegister
	}
	return compiler.ParamName
}

type aborter interface {
	Abort()
}

// Compile feeds every instruction of src to sink. It stops at the first
// error; instructions reported before it stay compiled. The result is the
// number of instructions the sink accepted.
func Compile(src io.Reader, file string, regs Registers, sink Sink) (int, error) {
	r := NewReader(src, file, regs)
	n := 0
	for {
		in, err := r.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		log.Debugf("%s:%d: %s", file, in.Line, in)
		if err := Feed(sink, file, in); err != nil {
			return n, err
		}
		n++
	}
}

// Feed reports one instruction to sink.
func Feed(sink Sink, file string, in *Instruction) error {
	if err := sink.Begin(in.Token, file, in.Line); err != nil {
		return err
	}
	for _, p := range in.Params {
		if err := sink.Param(p.Kind, p.Text); err != nil {
			if a, ok := sink.(aborter); ok {
				a.Abort()
			}
			return err
		}
	}
	return sink.End()
}
