package journal

import (
	"database/sql"
	"fmt"

	"github.com/roach88/statecell/internal/ir"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
// A nil payload is stored as "{}".
func marshalPayload(payload ir.IRObject) (string, error) {
	if payload == nil {
		payload = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored payload JSON. An empty object reads back
// as nil so round-tripped actions compare equal to ir.NewAction output.
func unmarshalPayload(data string) (ir.IRObject, error) {
	var obj ir.IRObject
	if err := obj.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if len(obj) == 0 {
		return nil, nil
	}
	return obj, nil
}

func marshalState(state any) (sql.NullString, error) {
	if state == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(state)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal state: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalState(data sql.NullString) (any, error) {
	if !data.Valid {
		return nil, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return ir.FromIRValue(v), nil
}
