package machine

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/avm/entity"
	"github.com/jedib0t/go-pretty/v6/table"
)

// wordsPerRow is the number of code words printed per listing row.
const wordsPerRow = 8

// Dump writes a human-readable listing of the machine's global tables and
// of segment s.
func Dump(w io.Writer, m *Machine, s *Segment) error {
	var sections []string

	if m != nil {
		regs := table.NewWriter()
		regs.SetTitle("Machine registers")
		regs.AppendHeader(table.Row{"#", "Name", "Mode", "Width"})
		for i, r := range m.registers.All() {
			regs.AppendRow(table.Row{i, r.Name, r.Mode, r.Width})
		}
		sections = append(sections, regs.Render())

		ports := table.NewWriter()
		ports.SetTitle("Machine ports")
		ports.AppendHeader(table.Row{"#", "Name", "FD", "Path"})
		for i, p := range m.ports.All() {
			ports.AppendRow(table.Row{i, p.Name, p.FD, p.Path})
		}
		sections = append(sections, ports.Render())
	}

	if s != nil {
		sections = append(sections, dumpSymbols(s)...)
		sections = append(sections, dumpCode(s))
	}

	_, err := io.WriteString(w, strings.Join(sections, "\n\n")+"\n")
	return err
}

func dumpSymbols(s *Segment) []string {
	var out []string

	if s.strings.Len() > 0 {
		t := table.NewWriter()
		t.SetTitle(fmt.Sprintf("Segment %s: strings", s.Name))
		t.AppendHeader(table.Row{"#", "Name", "Text"})
		for i, str := range s.strings.All() {
			t.AppendRow(table.Row{i, str.Name, fmt.Sprintf("%q", str.Text)})
		}
		out = append(out, t.Render())
	}

	if s.numbers.Len() > 0 {
		t := table.NewWriter()
		t.SetTitle(fmt.Sprintf("Segment %s: numbers", s.Name))
		t.AppendHeader(table.Row{"#", "Name", "Width", "Value"})
		for i, n := range s.numbers.All() {
			t.AppendRow(table.Row{i, n.Name, n.Width, n.Value})
		}
		out = append(out, t.Render())
	}

	if s.labels.Len() > 0 {
		t := table.NewWriter()
		t.SetTitle(fmt.Sprintf("Segment %s: labels", s.Name))
		t.AppendHeader(table.Row{"#", "Name", "Offset"})
		for i, l := range s.labels.All() {
			t.AppendRow(table.Row{i, l.Name, fmt.Sprintf("%04X", l.Offset)})
		}
		out = append(out, t.Render())
	}

	if s.registers.Len()+s.ports.Len()+s.buffers.Len()+s.groups.Len() > 0 {
		t := table.NewWriter()
		t.SetTitle(fmt.Sprintf("Segment %s: definitions", s.Name))
		t.AppendHeader(table.Row{"Entity", "Name"})
		for i, r := range s.registers.All() {
			t.AppendRow(table.Row{entity.New(entity.ClassRegister, i), r.Name})
		}
		for i, p := range s.ports.All() {
			t.AppendRow(table.Row{entity.New(entity.ClassPort, i), p.Name})
		}
		for i, b := range s.buffers.All() {
			t.AppendRow(table.Row{entity.New(entity.ClassBuffer, i), b.Name})
		}
		for i, g := range s.groups.All() {
			t.AppendRow(table.Row{entity.New(entity.ClassGroup, i), g.Name})
		}
		out = append(out, t.Render())
	}

	if s.unresolved.Len() > 0 {
		t := table.NewWriter()
		t.SetTitle(fmt.Sprintf("Segment %s: unresolved", s.Name))
		t.AppendHeader(table.Row{"#", "Name", "Source"})
		for i, u := range s.unresolved.All() {
			t.AppendRow(table.Row{i, u.Name, fmt.Sprintf("%s:%d", u.File, u.Line)})
		}
		out = append(out, t.Render())
	}

	return out
}

func dumpCode(s *Segment) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Segment %s (id %d): %d words", s.Name, s.ID, s.code.Len()))
	header := table.Row{"Offset"}
	for i := 0; i < wordsPerRow; i++ {
		header = append(header, fmt.Sprintf("+%d", i))
	}
	t.AppendHeader(header)

	words := s.code.Entries()
	for off := 0; off < len(words); off += wordsPerRow {
		row := table.Row{fmt.Sprintf("%04X", off)}
		for i := off; i < off+wordsPerRow && i < len(words); i++ {
			row = append(row, fmt.Sprintf("%08X", uint32(words[i])))
		}
		t.AppendRow(row)
	}
	return t.Render()
}

// Disassemble writes one line per instruction of s, decoding each header
// and its operand entities.
func Disassemble(w io.Writer, s *Segment) error {
	words := s.code.Entries()
	for off := 0; off < len(words); {
		hdr := words[off]
		if !hdr.IsInstruction() {
			if _, err := fmt.Fprintf(w, "%04X  %08X  ; stray operand %s\n", off, uint32(hdr), hdr); err != nil {
				return err
			}
			off++
			continue
		}
		op := hdr.Opcode()
		args := make([]string, 0, hdr.Argc())
		end := off + 1 + hdr.Argc()
		for i := off + 1; i < end && i < len(words); i++ {
			args = append(args, describe(s, words[i]))
		}
		line := fmt.Sprintf("%04X  %-6s %s", off, op, strings.Join(args, ", "))
		switch {
		case !op.Known():
			line += "  ; unknown opcode"
		case op.IsJump() && end <= len(words):
			if l, ok := s.Record(words[end-1]); ok {
				if label, isLabel := l.(*Label); isLabel {
					line += fmt.Sprintf("  -> %04X", label.Offset)
				}
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		off = end
	}
	return nil
}

func describe(s *Segment, e entity.Entity) string {
	rec, ok := s.Record(e)
	if !ok || rec.Symbol() == "" {
		if str, isStr := rec.(*String); isStr {
			return fmt.Sprintf("%s=%q", e, str.Text)
		}
		if num, isNum := rec.(*Number); isNum {
			return fmt.Sprintf("%s=%d", e, num.Value)
		}
		return e.String()
	}
	return fmt.Sprintf("%s(%s)", e, rec.Symbol())
}
