// Package javascript compiles javascript sources into record hooks: filters, $let updaters and $validate
// validators. A source is either a function declaration, called with the record, or a bare expression
// evaluated with the record bound to `record`.
package javascript

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/model"
	"github.com/dop251/goja"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cast"
)

// Function is a compiled javascript function
type Function func(input any) (any, error)

// Script is javascript source
type Script string

// FunctionName returns the name of the first function the script declares
func (s Script) FunctionName() string {
	scanner := bufio.NewScanner(strings.NewReader(string(s)))
	scanner.Split(bufio.ScanWords)
	isNext := false
	for scanner.Scan() {
		word := scanner.Text()
		if word == "function" {
			isNext = true
			continue
		}
		if isNext {
			before, _, found := strings.Cut(word, "(")
			if found {
				return strings.TrimSpace(before)
			}
			isNext = false
		}
	}
	return ""
}

// Parse compiles the script. Calls are serialized since a goja runtime is not safe for concurrent use.
func (s Script) Parse() (Function, error) {
	src := s
	name := s.FunctionName()
	if name == "" {
		name = "expression"
		src = Script(fmt.Sprintf("function %s(record) { return (%s); }", name, strings.TrimSpace(string(s))))
	}
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := vm.Set("ksuid", newID); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "")
	}
	if _, err := vm.RunString(string(src)); err != nil {
		return nil, errors.Wrap(err, errors.Validation, "invalid script")
	}
	var function func(any) (any, error)
	if err := vm.ExportTo(vm.Get(name), &function); err != nil {
		return nil, errors.Wrap(err, errors.Validation, "%s is not a function", name)
	}
	var mu sync.Mutex
	return func(input any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		out, err := function(input)
		if err != nil {
			return nil, errors.Wrap(err, errors.Validation, "script %s failed", name)
		}
		return out, nil
	}, nil
}

// Filter compiles src into a record predicate. A failing script matches nothing.
func Filter(src string) (func(rec model.Record) bool, error) {
	fn, err := Script(src).Parse()
	if err != nil {
		return nil, err
	}
	return func(rec model.Record) bool {
		out, err := fn(map[string]any(rec))
		if err != nil {
			return false
		}
		return cast.ToBool(out)
	}, nil
}

// Let compiles src into a $let updater. The script may mutate the record in place or return a replacement
// object; any other return value keeps the (mutated) record.
func Let(src string) (func(rec model.Record) model.Record, error) {
	fn, err := Script(src).Parse()
	if err != nil {
		return nil, err
	}
	return func(rec model.Record) model.Record {
		out, err := fn(map[string]any(rec))
		if err != nil {
			return nil
		}
		if m, ok := out.(map[string]any); ok {
			return m
		}
		return nil
	}, nil
}

// Validate compiles src into a $validate validator. null and undefined mean the record is valid; any other
// value, or the script's error message, is the validation outcome.
func Validate(src string) (func(rec model.Record) any, error) {
	fn, err := Script(src).Parse()
	if err != nil {
		return nil, err
	}
	return func(rec model.Record) any {
		out, err := fn(map[string]any(rec))
		if err != nil {
			return err.Error()
		}
		return out
	}, nil
}

func newID() string {
	return ksuid.New().String()
}
