package spec

import (
	_ "embed"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// validateSchema checks the raw document against the embedded CUE schema
// before any Go-side decoding. The schema pins the top-level shape (required
// keys, no unknown keys, scalar field types); structural rules for list
// entries stay in the Go parser where they produce richer errors.
func validateSchema(path string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return newError(ErrCodeSchema, "internal schema error: %s", cueerrors.Details(err, nil))
	}
	schema = schema.LookupPath(cue.ParsePath("#Spec"))
	if err := schema.Err(); err != nil {
		return newError(ErrCodeSchema, "internal schema error: %s", cueerrors.Details(err, nil))
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return newError(ErrCodeParse, "%s", cueerrors.Details(err, nil))
	}

	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return newError(ErrCodeParse, "%s", cueerrors.Details(err, nil))
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return newError(ErrCodeSchema, "%s", cueerrors.Details(err, nil))
	}
	return nil
}
