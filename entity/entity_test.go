package entity

import "testing"

// ---------------------------------------------------------------------------
// Table-indexed entities
// ---------------------------------------------------------------------------

func TestNewRoundTrip(t *testing.T) {
	indices := []int{0, 1, 2, 15, 16, 255, 256, 4096, MaxIndex - 1, MaxIndex}

	for _, c := range Classes() {
		if c == ClassInstruction || c == ClassImmediate {
			continue
		}
		for _, idx := range indices {
			e := New(c, idx)
			if e == Invalid {
				t.Errorf("New(%s, %d) = Invalid", c, idx)
				continue
			}
			if e.Class() != c {
				t.Errorf("New(%s, %d).Class() = %s", c, idx, e.Class())
			}
			if e.Index() != idx {
				t.Errorf("New(%s, %d).Index() = %d", c, idx, e.Index())
			}
			if e.Flags() != 0 {
				t.Errorf("New(%s, %d).Flags() = %x, want 0", c, idx, e.Flags())
			}
		}
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		class Class
		index int
	}{
		{ClassString, -1},
		{ClassString, MaxIndex + 1},
		{ClassInstruction, 0},
		{ClassImmediate, 3},
		{Class(0x40), 1},
		{ClassReserved, 0},
	}
	for _, tt := range tests {
		if got := New(tt.class, tt.index); got != Invalid {
			t.Errorf("New(%s, %d) = %08X, want Invalid", tt.class, tt.index, uint32(got))
		}
	}
}

func TestClassTagIsHighByte(t *testing.T) {
	e := New(ClassLabel, 0x1234)
	if uint32(e) != 0x07001234 {
		t.Errorf("New(LABEL, 0x1234) = %08X, want 07001234", uint32(e))
	}
	if e.Class() != Class(uint32(e)>>24) {
		t.Error("Class() disagrees with the top byte")
	}
}

func TestFlags(t *testing.T) {
	e := New(ClassPort, 2).WithFlags(FlagGlobal)
	if !e.Global() {
		t.Error("Global() = false after WithFlags(FlagGlobal)")
	}
	if e.Constant() {
		t.Error("Constant() = true, want false")
	}
	if e.Index() != 2 || e.Class() != ClassPort {
		t.Errorf("flags disturbed class/index: %s", e)
	}

	s := New(ClassString, 9).WithFlags(FlagConstant)
	if !s.Constant() || s.Global() {
		t.Errorf("string constant flags = %x", s.Flags())
	}

	imm := NewImmediate(4)
	if imm.WithFlags(FlagConstant) != imm {
		t.Error("WithFlags must not change immediates")
	}
}

// ---------------------------------------------------------------------------
// Immediates
// ---------------------------------------------------------------------------

func TestImmediateRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 5, -5, 1000, -1000, 0x7FFFF, 0x80000, MaxImmediate, -MaxImmediate}

	for _, v := range tests {
		e := NewImmediate(v)
		if e == Invalid {
			t.Errorf("NewImmediate(%d) = Invalid", v)
			continue
		}
		if e.Class() != ClassImmediate {
			t.Errorf("NewImmediate(%d).Class() = %s", v, e.Class())
		}
		got, ok := e.Immediate()
		if !ok || got != v {
			t.Errorf("NewImmediate(%d).Immediate() = %d, %v", v, got, ok)
		}
		if e.Payload()&0xE00000 != 0 {
			t.Errorf("NewImmediate(%d) has upper payload bits set: %08X", v, uint32(e))
		}
		if e.Index() != -1 {
			t.Errorf("immediate must not index a table, Index() = %d", e.Index())
		}
	}
}

func TestImmediateRejectsLargeMagnitudes(t *testing.T) {
	tests := []int64{MaxImmediate + 1, -(MaxImmediate + 1), 1 << 32, -(1 << 40), 1<<63 - 1, -1 << 63}
	for _, v := range tests {
		if got := NewImmediate(v); got != Invalid {
			t.Errorf("NewImmediate(%d) = %08X, want Invalid", v, uint32(got))
		}
		if FitsImmediate(v) {
			t.Errorf("FitsImmediate(%d) = true", v)
		}
	}
}

func TestImmediateEncoding(t *testing.T) {
	if got := uint32(NewImmediate(5)); got != 0x0A000005 {
		t.Errorf("NewImmediate(5) = %08X, want 0A000005", got)
	}
	if got := uint32(NewImmediate(-5)); got != 0x0A100005 {
		t.Errorf("NewImmediate(-5) = %08X, want 0A100005", got)
	}
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

func TestInstructionRoundTrip(t *testing.T) {
	for op := range opcodeNames {
		for _, flags := range []uint8{0, 1, 0x80, 0xFF} {
			for _, argc := range []uint8{0, 1, 3, 64, 255} {
				e := NewInstruction(op, flags, argc)
				if !e.IsInstruction() {
					t.Fatalf("NewInstruction(%s) is not an instruction", op)
				}
				if e.Opcode() != op || e.InstFlags() != flags || e.Argc() != int(argc) {
					t.Errorf("NewInstruction(%s, %d, %d) decoded as (%s, %d, %d)",
						op, flags, argc, e.Opcode(), e.InstFlags(), e.Argc())
				}
			}
		}
	}
}

func TestInstructionLayout(t *testing.T) {
	e := NewInstruction(OpSTOR, 0, 2)
	if uint32(e) != 0x00010002 {
		t.Errorf("STOR/2 = %08X, want 00010002", uint32(e))
	}
	if e.String() != "STOR/2" {
		t.Errorf("String() = %q", e.String())
	}
}

// ---------------------------------------------------------------------------
// Bare class entities and the variant view
// ---------------------------------------------------------------------------

func TestBare(t *testing.T) {
	e := Bare(ClassString)
	if !e.IsBare() {
		t.Fatal("IsBare() = false")
	}
	if e.Class() != ClassString {
		t.Errorf("Class() = %s", e.Class())
	}
	if e.Indexed() || e.Index() != -1 {
		t.Error("bare entity must not index a table")
	}
	if Bare(Class(99)) != Invalid {
		t.Error("Bare of an unknown class must be Invalid")
	}
	if Bare(ClassInstruction) != Invalid {
		t.Error("INSTRUCTION has no bare designator")
	}
}

func TestDecodeAllOnesInstruction(t *testing.T) {
	e := NewInstruction(OpINVALID, 0xFF, 0xFF)
	if uint32(e) != 0x00FFFFFF {
		t.Fatalf("header = %08X", uint32(e))
	}
	if e.IsBare() {
		t.Error("instruction header reported as bare")
	}
	d := Decode(e)
	if d.Kind != KindInstruction || d.Opcode != OpINVALID || d.InstFlags != 0xFF || d.Argc != 0xFF {
		t.Errorf("Decode = %+v", d)
	}
	if d.Encode() != e {
		t.Errorf("Encode() = %08X", uint32(d.Encode()))
	}
}

func TestDecodeEncode(t *testing.T) {
	samples := []Entity{
		NewInstruction(OpOUT, 0, 3),
		NewImmediate(-77),
		New(ClassNumber, 4).WithFlags(FlagConstant),
		New(ClassPort, 1).WithFlags(FlagGlobal),
		New(ClassUnresolved, 0),
		Bare(ClassPort),
	}
	for _, e := range samples {
		d := Decode(e)
		if d.Kind == KindInvalid {
			t.Errorf("Decode(%s) = invalid", e)
			continue
		}
		if got := d.Encode(); got != e {
			t.Errorf("Decode(%08X).Encode() = %08X", uint32(e), uint32(got))
		}
	}
	if Decode(Invalid).Kind != KindInvalid {
		t.Error("Decode(Invalid) must be KindInvalid")
	}
}

func TestClassByName(t *testing.T) {
	for _, c := range Classes() {
		got, ok := ClassByName(c.String())
		if !ok || got != c {
			t.Errorf("ClassByName(%q) = %s, %v", c.String(), got, ok)
		}
	}
	for _, name := range []string{"string", "Register", "", "FOO"} {
		if _, ok := ClassByName(name); ok {
			t.Errorf("ClassByName(%q) matched", name)
		}
	}
}

func TestSet(t *testing.T) {
	s := SetOf(ClassRegister, ClassString)
	if !s.Has(ClassRegister) || !s.Has(ClassString) || s.Has(ClassNumber) {
		t.Errorf("membership wrong for %s", s)
	}
	if s.String() != "REGISTER|STRING" {
		t.Errorf("String() = %q", s.String())
	}
	if s.With(ClassNumber).String() != "REGISTER|STRING|NUMBER" {
		t.Errorf("With() = %q", s.With(ClassNumber))
	}
	if s.Has(ClassReserved) {
		t.Error("reserved class can never be a member")
	}
}
