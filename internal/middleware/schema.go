package middleware

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

// Schema is a compiled CUE constraint over a whole store state.
type Schema struct {
	value cue.Value
}

// CompileSchema compiles CUE source. filename is used for error positions.
//
//	schema, err := CompileSchema("app.cue", `
//		counter:    int & >=0
//		todos:      [...{id: int, text: string, completed: bool}]
//		visibility: "all" | "active" | "completed"
//	`)
func CompileSchema(filename, src string) (Schema, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Schema{}, formatCUEError(err)
	}
	return Schema{value: v}, nil
}

// LoadSchema reads and compiles a .cue file.
func LoadSchema(path string) (Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("load schema: %w", err)
	}
	return CompileSchema(path, string(src))
}

// Validate encodes state into CUE, unifies it with the schema and requires
// the result to be concrete. A violation is returned as *SchemaError.
func (s Schema) Validate(state any) error {
	if !s.value.Exists() {
		return errors.New("validate: schema not compiled")
	}

	encoded := s.value.Context().Encode(state)
	if err := encoded.Err(); err != nil {
		return fmt.Errorf("validate: encode state: %w", err)
	}

	if err := s.value.Unify(encoded).Validate(cue.Concrete(true)); err != nil {
		return newSchemaError(err)
	}
	return nil
}

// SchemaGuard validates every state the reducer produces, including the
// bootstrap state. A violation rejects the transition: Dispatch returns the
// *SchemaError and the store keeps its previous state. An invalid initial
// state fails store creation.
func SchemaGuard[S any](schema Schema) engine.Enhancer[S] {
	return func(next engine.Creator[S]) engine.Creator[S] {
		return func(reducer engine.Reducer[S], preloaded *S) (engine.Store[S], error) {
			guarded := func(state S, action ir.Action) S {
				nextState := reducer(state, action)
				if err := schema.Validate(nextState); err != nil {
					var se *SchemaError
					if errors.As(err, &se) {
						se.ActionType = action.Type
					}
					engine.Reject(err)
				}
				return nextState
			}
			return next(guarded, preloaded)
		}
	}
}

// SchemaError reports a state that does not satisfy the schema.
type SchemaError struct {
	ActionType string
	Path       string
	Message    string
	Pos        token.Pos
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("SCHEMA_VIOLATION: ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.ActionType != "" {
		fmt.Fprintf(&b, " (action=%s)", e.ActionType)
	}
	return b.String()
}

// IsSchemaViolation checks if err is or wraps a *SchemaError.
func IsSchemaViolation(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

func newSchemaError(err error) *SchemaError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	se := &SchemaError{
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	return se
}

// SchemaCompileError reports CUE source that failed to compile.
type SchemaCompileError struct {
	Message string
	Pos     token.Pos
}

func (e *SchemaCompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &SchemaCompileError{Message: first.Error(), Pos: positions[0]}
	}
	return err
}
