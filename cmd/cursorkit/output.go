package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/autom8ter/cursorkit"
	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/util"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

type outputFlags struct {
	format   string
	template string
	path     string
	columns  []string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "output", "o", "json", "output format: json, tsv or template")
	cmd.Flags().StringVar(&o.template, "template", "", "go template (with sprig functions) rendered against the result when --output=template")
	cmd.Flags().StringVar(&o.path, "path", "", "gjson path selecting part of the json output, ex: records.#.name")
	cmd.Flags().StringSliceVar(&o.columns, "columns", nil, "tsv columns, defaults to the fields of the first record")
}

// write renders result, or its records as a table when the format is tsv
func (o *outputFlags) write(w io.Writer, records []model.Record, result any) error {
	switch o.format {
	case "tsv":
		if records == nil {
			return errors.New(errors.Validation, "tsv output needs records")
		}
		_, err := fmt.Fprintln(w, cursorkit.TSV(records, o.columns))
		return err
	case "template":
		if o.template == "" {
			return errors.New(errors.Validation, "--template is required with --output=template")
		}
		// templates address the json field names
		var data any
		if err := json.Unmarshal([]byte(util.JSONString(result)), &data); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to encode output")
		}
		out, err := cursorkit.Render(o.template, data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err
	case "json", "":
		bits, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errors.Wrap(err, errors.Internal, "failed to encode output")
		}
		if o.path != "" {
			res := gjson.GetBytes(bits, o.path)
			if !res.Exists() {
				return errors.New(errors.NotFound, "nothing at path %s", o.path)
			}
			bits = []byte(res.Raw)
		}
		_, err = fmt.Fprintln(w, string(bits))
		return err
	default:
		return errors.New(errors.Validation, "unknown output format %s", o.format)
	}
}
