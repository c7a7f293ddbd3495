package machine

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/avm/entity"
	"github.com/chazu/avm/table"
)

func newTestMachine(t *testing.T, opts ...Option) *Machine {
	t.Helper()
	m, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// ---------------------------------------------------------------------------
// Machine
// ---------------------------------------------------------------------------

func TestBuiltinRegisters(t *testing.T) {
	m := newTestMachine(t)

	tests := []struct {
		name     string
		writable bool
	}{
		{"CS", false},
		{"IP", false},
		{"GR0", true},
		{"GR15", true},
	}
	for _, tt := range tests {
		e, r, ok := m.Register(tt.name)
		if !ok {
			t.Errorf("Register(%q) not found", tt.name)
			continue
		}
		if e.Class() != entity.ClassRegister || !e.Global() {
			t.Errorf("Register(%q) entity = %s", tt.name, e)
		}
		if r.Writable() != tt.writable {
			t.Errorf("Register(%q).Writable() = %v, want %v", tt.name, r.Writable(), tt.writable)
		}
	}
	if _, _, ok := m.Register("GR16"); ok {
		t.Error("GR16 should not exist")
	}
	if m.Registers().Len() != 2+GeneralRegisters {
		t.Errorf("register count = %d", m.Registers().Len())
	}
}

func TestBuiltinPorts(t *testing.T) {
	m := newTestMachine(t)
	for fd, name := range []string{"@stdin", "@stdout", "@stderr"} {
		e, p, ok := m.Port(name)
		if !ok {
			t.Fatalf("Port(%q) not found", name)
		}
		if p.FD != fd {
			t.Errorf("%s FD = %d, want %d", name, p.FD, fd)
		}
		if e.Index() != fd || !e.Global() {
			t.Errorf("%s entity = %s", name, e)
		}
	}
}

func TestMachineOptions(t *testing.T) {
	m := newTestMachine(t,
		WithRegister("ACC", ReadWrite),
		WithPorts(map[string]string{"@log": "out.log", "@audit": "audit.log"}))

	if !m.IsRegister("ACC") {
		t.Error("ACC not registered")
	}
	_, p, ok := m.Port("@log")
	if !ok || p.Path != "out.log" {
		t.Errorf("@log = %+v, %v", p, ok)
	}
	// Extra ports follow the built-ins in name order.
	e, _, _ := m.Port("@audit")
	if e.Index() != 3 {
		t.Errorf("@audit index = %d, want 3", e.Index())
	}

	if _, err := New(WithRegister("CS", ReadWrite)); err == nil {
		t.Error("redefining CS should fail")
	}
}

func TestNewSegmentAssignsIDs(t *testing.T) {
	m := newTestMachine(t)
	a, err := m.NewSegment("a.avm")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.NewSegment("b.avm")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != 0 || b.ID != 1 {
		t.Errorf("IDs = %d, %d; want 0, 1", a.ID, b.ID)
	}
	if err := m.Attach(a); err == nil {
		t.Error("attaching twice should fail")
	}
	if !a.Linked() {
		t.Error("attached segment reports unlinked")
	}
}

// ---------------------------------------------------------------------------
// Segment
// ---------------------------------------------------------------------------

func TestSegmentTablesExistForEveryClass(t *testing.T) {
	m := newTestMachine(t)
	s, _ := m.NewSegment("s")

	for _, c := range entity.Classes() {
		tbl := s.Table(c)
		if tbl == nil {
			t.Errorf("no table for %s", c)
			continue
		}
		if tbl.Name() != c.String() {
			t.Errorf("table for %s named %q", c, tbl.Name())
		}
	}
	if s.Table(entity.ClassReserved) != nil {
		t.Error("reserved class has a table")
	}
	if s.Code().Cap() != CodeCapacity {
		t.Errorf("code capacity = %d, want %d", s.Code().Cap(), CodeCapacity)
	}
	if s.Strings().Cap() != table.DefaultCapacity {
		t.Errorf("string capacity = %d", s.Strings().Cap())
	}
}

func TestSegmentAddAndLookup(t *testing.T) {
	m := newTestMachine(t)
	s, _ := m.NewSegment("s")

	named, err := s.AddString("greeting", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if named.Constant() {
		t.Error("named string flagged constant")
	}
	lit, _ := s.AddString("", "literal")
	if !lit.Constant() || lit.Index() != 1 {
		t.Errorf("literal entity = %s", lit)
	}

	got, ok := s.Lookup(entity.ClassString, "greeting")
	if !ok || got != named {
		t.Errorf("Lookup(greeting) = %s, %v", got, ok)
	}
	if _, ok := s.Lookup(entity.ClassString, ""); ok {
		t.Error("anonymous strings must not be found by name")
	}
	if _, ok := s.Lookup(entity.ClassNumber, "greeting"); ok {
		t.Error("lookup crossed class tables")
	}
	if _, ok := s.Lookup(entity.ClassImmediate, "x"); ok {
		t.Error("immediates have no named records")
	}

	rec, ok := s.Record(lit)
	if !ok || rec.(*String).Text != "literal" {
		t.Errorf("Record(%s) = %v", lit, rec)
	}
}

func TestLabelRecordsSegment(t *testing.T) {
	m := newTestMachine(t)
	m.NewSegment("first")
	s, _ := m.NewSegment("second")
	e, _ := s.AddLabel("loop", 12)
	rec, _ := s.Record(e)
	l := rec.(*Label)
	if l.Segment != 1 || l.Offset != 12 {
		t.Errorf("label = %+v", l)
	}
}

func TestEmitIsAllOrNothing(t *testing.T) {
	m := newTestMachine(t, WithTableLimit(4))
	s, _ := m.NewSegment("s")

	hdr := entity.NewInstruction(entity.OpSTOR, 0, 2)
	if err := s.Emit(hdr, entity.NewImmediate(1), entity.NewImmediate(2)); err != nil {
		t.Fatal(err)
	}
	err := s.Emit(hdr, entity.NewImmediate(1), entity.NewImmediate(2))
	if !errors.Is(err, table.ErrCapacity) {
		t.Fatalf("Emit error = %v, want ErrCapacity", err)
	}
	if s.Code().Len() != 3 {
		t.Errorf("failed Emit left %d words", s.Code().Len())
	}
}

func TestSegmentClose(t *testing.T) {
	m := newTestMachine(t)
	s, _ := m.NewSegment("s")
	s.AddNumber("n", 1)
	s.Emit(entity.NewInstruction(entity.OpNOP, 0, 0))
	s.Close()
	if s.Numbers().Len() != 0 || s.Code().Len() != 0 {
		t.Error("Close left entries behind")
	}
}

// ---------------------------------------------------------------------------
// Dump
// ---------------------------------------------------------------------------

func TestDump(t *testing.T) {
	m := newTestMachine(t)
	s, _ := m.NewSegment("demo")
	s.AddString("greeting", "hi")
	s.AddLabel("start", 0)
	s.AddUnresolved("later", "demo.avm", 3)
	reg, _, _ := m.Register("GR0")
	s.Emit(entity.NewInstruction(entity.OpSTOR, 0, 2), reg, entity.NewImmediate(5))

	var buf bytes.Buffer
	if err := Dump(&buf, m, s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"GR15", "@stderr", "greeting", "start", "later", "00010002", "0A000005"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q", want)
		}
	}
}

func TestDisassemble(t *testing.T) {
	m := newTestMachine(t)
	s, _ := m.NewSegment("demo")
	reg, _, _ := m.Register("GR1")
	str, _ := s.AddString("", "hi")
	s.Emit(entity.NewInstruction(entity.OpSTOR, 0, 2), reg, str)
	s.Emit(entity.NewInstruction(entity.OpNOP, 0, 0))

	var buf bytes.Buffer
	if err := Disassemble(&buf, s); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "STOR") || !strings.Contains(lines[0], `"hi"`) {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0003") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestDisassembleJumpsAndUnknownOpcodes(t *testing.T) {
	m := newTestMachine(t)
	s, _ := m.NewSegment("loop")
	s.Emit(entity.NewInstruction(entity.OpNOP, 0, 0))
	top, _ := s.AddLabel("top", 1)
	s.Emit(entity.NewInstruction(entity.OpGOTO, 0, 1), top)
	s.Emit(entity.NewInstruction(entity.Opcode(0x7E), 0, 0))

	var buf bytes.Buffer
	if err := Disassemble(&buf, s); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "GOTO") || !strings.HasSuffix(lines[1], "-> 0001") {
		t.Errorf("jump line = %q, want target offset 0001", lines[1])
	}
	if !strings.HasSuffix(lines[2], "; unknown opcode") {
		t.Errorf("line 2 = %q", lines[2])
	}
	if strings.Contains(lines[0], "unknown") {
		t.Errorf("NOP flagged as unknown: %q", lines[0])
	}
}
