package entity

// Kind enumerates the in-memory variants of an entity.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInstruction
	KindImmediate
	KindReference
	KindBare
)

func (k Kind) String() string {
	switch k {
	case KindInstruction:
		return "instruction"
	case KindImmediate:
		return "immediate"
	case KindReference:
		return "reference"
	case KindBare:
		return "bare"
	}
	return "invalid"
}

// Decoded is the unpacked form of an entity. Only the fields relevant to
// Kind are populated; Encode is the exact inverse of Decode for every valid
// entity.
type Decoded struct {
	Kind  Kind
	Class Class

	// KindReference
	Index int
	Flags Flags

	// KindImmediate
	Value int64

	// KindInstruction
	Opcode    Opcode
	InstFlags uint8
	Argc      uint8
}

// Decode unpacks e into its variant form.
func Decode(e Entity) Decoded {
	if !e.Valid() {
		return Decoded{Kind: KindInvalid, Class: ClassReserved}
	}
	d := Decoded{Class: e.Class()}
	switch {
	case e.IsBare():
		d.Kind = KindBare
	case e.IsInstruction():
		d.Kind = KindInstruction
		d.Opcode = e.Opcode()
		d.InstFlags = e.InstFlags()
		d.Argc = uint8(e.Argc())
	case d.Class == ClassImmediate:
		d.Kind = KindImmediate
		d.Value, _ = e.Immediate()
	default:
		d.Kind = KindReference
		d.Index = e.Index()
		d.Flags = e.Flags()
	}
	return d
}

// Encode packs d back into the wire format.
func (d Decoded) Encode() Entity {
	switch d.Kind {
	case KindInstruction:
		return NewInstruction(d.Opcode, d.InstFlags, d.Argc)
	case KindImmediate:
		return NewImmediate(d.Value)
	case KindReference:
		e := New(d.Class, d.Index)
		if e == Invalid {
			return Invalid
		}
		return e.WithFlags(d.Flags)
	case KindBare:
		return Bare(d.Class)
	}
	return Invalid
}
