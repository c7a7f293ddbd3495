package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schemaSource constrains avm.toml beyond what the TOML decoder checks.
const schemaSource = `
#Ident: =~"^[A-Za-z_][A-Za-z0-9_.-]*$"

#Manifest: {
	project: {
		name:        #Ident
		entrypoint?: #Ident
	}
	source: {
		files?: [...string]
		dirs?: [...string]
	}
	output: {
		path?:    string
		library?: string
	}
	machine: {
		registers?: [...=~"^[A-Z][A-Z0-9_]*$"]
		ports?: [=~"^@[A-Za-z_][A-Za-z0-9_]*$"]: string
	}
	log: {
		verbosity?: int & >=0 & <=5
		file?:      string
	}
}
`

// Validate checks m against the manifest schema.
func Validate(m *Manifest) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling manifest schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	val := ctx.Encode(m)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
