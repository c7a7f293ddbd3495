package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/avm/compiler"
	"github.com/chazu/avm/machine"
	"github.com/chazu/avm/parser"
	"github.com/lmorg/readline"
)

const replFile = "<repl>"

// interactive assembles one instruction per line, printing the words each
// instruction emits. Lines starting with '.' are commands.
func interactive(c *compiler.Compiler, opts options) error {
	seg, err := c.BeginFile("repl")
	if err != nil {
		return err
	}
	s := &session{c: c, seg: seg, out: os.Stdout}

	rl := readline.NewInstance()
	rl.SetPrompt("avm> ")
	fmt.Println("AVM interactive assembler. Type .help for commands.")

	for {
		text, err := rl.Readline()
		if err != nil {
			// Ctrl-C or Ctrl-D
			break
		}
		quit, err := s.handle(text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if compiler.IsFatal(err) {
				return err
			}
		}
		if quit {
			break
		}
	}

	if opts.dump {
		return machine.Dump(os.Stdout, c.Machine(), seg)
	}
	return nil
}

// session is the state of one interactive run. line counts source lines
// only; commands do not advance it.
type session struct {
	c    *compiler.Compiler
	seg  *machine.Segment
	out  io.Writer
	line int
}

func (s *session) handle(text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	if strings.HasPrefix(text, ".") {
		return s.command(text)
	}

	s.line++
	in, err := parser.ParseLine(text, s.c.Machine())
	if err != nil {
		return false, fmt.Errorf("%s:%d: %w", replFile, s.line, err)
	}
	if in == nil {
		return false, nil
	}
	in.Line = s.line

	before := s.seg.Code().Len()
	if err := parser.Feed(s.c, replFile, in); err != nil {
		return false, err
	}
	s.printWords(before)
	return false, nil
}

func (s *session) command(text string) (bool, error) {
	switch text {
	case ".quit", ".exit":
		return true, nil
	case ".dump":
		return false, machine.Dump(s.out, s.c.Machine(), s.seg)
	case ".dis":
		return false, machine.Disassemble(s.out, s.seg)
	case ".ops":
		fmt.Fprint(s.out, opsListing(s.c.Registry()))
		return false, nil
	case ".help":
		fmt.Fprintln(s.out, "  .dis    disassemble the code so far")
		fmt.Fprintln(s.out, "  .dump   show machine and segment tables")
		fmt.Fprintln(s.out, "  .ops    list supported instructions")
		fmt.Fprintln(s.out, "  .quit   leave the assembler")
		return false, nil
	}
	return false, fmt.Errorf("unknown command %s", text)
}

// opsListing lists the registered tokens, directives apart from the
// instructions that reach the code stream.
func opsListing(r *compiler.Registry) string {
	var directives, instructions []string
	for _, tok := range r.Tokens() {
		d, _ := r.Lookup(tok)
		if d.Directive() {
			directives = append(directives, tok)
		} else {
			instructions = append(instructions, tok)
		}
	}
	return fmt.Sprintf("directives:   %s\ninstructions: %s\n",
		strings.Join(directives, " "), strings.Join(instructions, " "))
}

func (s *session) printWords(from int) {
	code := s.seg.Code()
	if code.Len() == from {
		return
	}
	var words []string
	for i := from; i < code.Len(); i++ {
		e, _ := code.Get(i)
		words = append(words, fmt.Sprintf("%08X", uint32(e)))
	}
	fmt.Fprintf(s.out, "%04X  %s\n", from, strings.Join(words, " "))
}
