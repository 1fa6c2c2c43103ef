package util

import (
	"encoding/json"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/ghodss/yaml"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

var validate = validator.New()

// ValidateStruct validates the struct's validate tags
func ValidateStruct(val any) error {
	return errors.Wrap(validate.Struct(val), errors.Validation, "")
}

// Decode decodes the input into the output based on json tags. Strings are weakly converted to
// numbers and booleans, and single values to one element slices.
func Decode(input any, output any) error {
	config := &mapstructure.DecoderConfig{
		WeaklyTypedInput:     true,
		Result:               output,
		TagName:              "json",
		IgnoreUntaggedFields: true,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// DecodeParams decodes a provider's loosely typed params into T, then validates T
func DecodeParams[T any](params map[string]any) (T, error) {
	var out T
	if err := Decode(params, &out); err != nil {
		return out, errors.Wrap(err, errors.Validation, "invalid params")
	}
	if err := ValidateStruct(&out); err != nil {
		return out, err
	}
	return out, nil
}

// JSONString returns a json string of the input
func JSONString(input any) string {
	bits, _ := json.Marshal(input)
	return string(bits)
}

// YAMLToJSON converts yaml to json. JSON input is returned unchanged.
func YAMLToJSON(content []byte) ([]byte, error) {
	if gjson.ValidBytes(content) {
		return content, nil
	}
	return yaml.YAMLToJSON(content)
}

func JSONToYAML(content []byte) ([]byte, error) {
	return yaml.JSONToYAML(content)
}
