package cursorkit

import (
	"encoding/json"
	"fmt"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/model"
	"github.com/xeipuuv/gojsonschema"
)

// Validator checks a record. It returns nil for a valid record and the validation outcome otherwise.
// A Validator can serve as a $validate directive, whose result is stored on the record's _error field.
type Validator func(rec model.Record) any

// JSONSchema creates a validator from a json schema document - https://json-schema.org/
// Invalid records yield the list of schema errors.
func JSONSchema(schemaContent []byte) (Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaContent))
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to load json schema")
	}
	return func(rec model.Record) any {
		bits, err := json.Marshal(rec)
		if err != nil {
			return []string{err.Error()}
		}
		result, err := schema.Validate(gojsonschema.NewBytesLoader(bits))
		if err != nil {
			return []string{err.Error()}
		}
		if result.Valid() {
			return nil
		}
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return errs
	}, nil
}

// MustJSONSchema is JSONSchema that panics on an invalid schema
func MustJSONSchema(schemaContent []byte) Validator {
	v, err := JSONSchema(schemaContent)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateBatch validates every record and returns the outcome of the invalid ones by position.
// An empty map means every record is valid.
func ValidateBatch(records []model.Record, validate Validator) map[int]any {
	outcome := map[int]any{}
	if validate == nil {
		return outcome
	}
	for i, rec := range records {
		if res := validate(rec); res != nil {
			outcome[i] = res
		}
	}
	return outcome
}

// ValidationError rejects a batch holding invalid records
type ValidationError struct {
	Errors map[int]any `json:"errors"`
}

func (v *ValidationError) Error() string {
	bits, _ := json.Marshal(v)
	return fmt.Sprintf("invalid records: %s", bits)
}
