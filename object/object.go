// Package object defines the object file a compiled segment is handed to
// the linker in. Objects are encoded as canonical CBOR, so the same segment
// always produces the same bytes apart from its build ID and timestamp.
package object

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/chazu/avm/entity"
	"github.com/chazu/avm/machine"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Magic identifies an AVM object.
const Magic = "AVMO"

// Version is the object format revision written by Marshal.
const Version = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("object: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Object is the serialized form of one segment. Record slices are in table
// index order, so entity indices in Code address them directly.
type Object struct {
	Magic   string   `cbor:"1,keyasint"`
	Version int      `cbor:"2,keyasint"`
	Name    string   `cbor:"3,keyasint"`
	Segment int      `cbor:"4,keyasint"`
	BuildID string   `cbor:"5,keyasint"`
	Created int64    `cbor:"6,keyasint"`
	Entry   string   `cbor:"7,keyasint,omitempty"`
	Digest  [32]byte `cbor:"8,keyasint"`
	Code    []uint32 `cbor:"9,keyasint"`

	Strings    []String     `cbor:"10,keyasint,omitempty"`
	Numbers    []Number     `cbor:"11,keyasint,omitempty"`
	Labels     []Label      `cbor:"12,keyasint,omitempty"`
	Registers  []Register   `cbor:"13,keyasint,omitempty"`
	Ports      []Port       `cbor:"14,keyasint,omitempty"`
	Buffers    []string     `cbor:"15,keyasint,omitempty"`
	Groups     []string     `cbor:"16,keyasint,omitempty"`
	Unresolved []Unresolved `cbor:"17,keyasint,omitempty"`
}

type String struct {
	Name string `cbor:"1,keyasint,omitempty"`
	Text string `cbor:"2,keyasint"`
}

type Number struct {
	Name  string `cbor:"1,keyasint,omitempty"`
	Width int    `cbor:"2,keyasint"`
	Value int64  `cbor:"3,keyasint"`
}

type Label struct {
	Name   string `cbor:"1,keyasint"`
	Offset int    `cbor:"2,keyasint"`
}

type Register struct {
	Name     string `cbor:"1,keyasint"`
	ReadOnly bool   `cbor:"2,keyasint,omitempty"`
	Width    int    `cbor:"3,keyasint"`
}

type Port struct {
	Name string `cbor:"1,keyasint"`
	Path string `cbor:"2,keyasint,omitempty"`
}

type Unresolved struct {
	Name string `cbor:"1,keyasint"`
	File string `cbor:"2,keyasint,omitempty"`
	Line int    `cbor:"3,keyasint,omitempty"`
}

// FromSegment snapshots seg. entry names the label execution starts at;
// it may be empty for library segments.
func FromSegment(seg *machine.Segment, entry string) (*Object, error) {
	if entry != "" {
		if _, ok := seg.Lookup(entity.ClassLabel, entry); !ok {
			return nil, fmt.Errorf("object: entry point %q is not a label of %s", entry, seg.Name)
		}
	}

	obj := &Object{
		Magic:   Magic,
		Version: Version,
		Name:    seg.Name,
		Segment: seg.ID,
		BuildID: uuid.NewString(),
		Created: time.Now().Unix(),
		Entry:   entry,
	}

	for _, e := range seg.Code().All() {
		obj.Code = append(obj.Code, uint32(e))
	}
	obj.Seal()

	for _, s := range seg.Strings().All() {
		obj.Strings = append(obj.Strings, String{Name: s.Name, Text: s.Text})
	}
	for _, n := range seg.Numbers().All() {
		obj.Numbers = append(obj.Numbers, Number{Name: n.Name, Width: n.Width, Value: n.Value})
	}
	for _, l := range seg.Labels().All() {
		obj.Labels = append(obj.Labels, Label{Name: l.Name, Offset: l.Offset})
	}
	for _, r := range seg.Registers().All() {
		obj.Registers = append(obj.Registers, Register{Name: r.Name, ReadOnly: !r.Writable(), Width: r.Width})
	}
	for _, p := range seg.Ports().All() {
		obj.Ports = append(obj.Ports, Port{Name: p.Name, Path: p.Path})
	}
	for _, b := range seg.Buffers().All() {
		obj.Buffers = append(obj.Buffers, b.Name)
	}
	for _, g := range seg.Groups().All() {
		obj.Groups = append(obj.Groups, g.Name)
	}
	for _, u := range seg.Unresolved().All() {
		obj.Unresolved = append(obj.Unresolved, Unresolved{Name: u.Name, File: u.File, Line: u.Line})
	}
	return obj, nil
}

// Words returns the code stream as big-endian 32-bit words.
func (o *Object) Words() []byte {
	var buf bytes.Buffer
	buf.Grow(4 * len(o.Code))
	for _, w := range o.Code {
		binary.Write(&buf, binary.BigEndian, w)
	}
	return buf.Bytes()
}

// Seal records the digest of the current code stream.
func (o *Object) Seal() {
	o.Digest = sha256.Sum256(o.Words())
}

// Entities decodes the code stream.
func (o *Object) Entities() []entity.Entity {
	out := make([]entity.Entity, len(o.Code))
	for i, w := range o.Code {
		out[i] = entity.Entity(w)
	}
	return out
}

// Verify checks the header and that the digest matches the code.
func (o *Object) Verify() error {
	if o.Magic != Magic {
		return fmt.Errorf("object: bad magic %q", o.Magic)
	}
	if o.Version != Version {
		return fmt.Errorf("object: unsupported version %d", o.Version)
	}
	if sha256.Sum256(o.Words()) != o.Digest {
		return fmt.Errorf("object: %s: code digest mismatch", o.Name)
	}
	return nil
}

// Marshal serializes an object to CBOR bytes.
func Marshal(o *Object) ([]byte, error) {
	return cborEncMode.Marshal(o)
}

// Unmarshal deserializes and verifies an object.
func Unmarshal(data []byte) (*Object, error) {
	var o Object
	if err := cbor.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("object: unmarshal: %w", err)
	}
	if err := o.Verify(); err != nil {
		return nil, err
	}
	return &o, nil
}
