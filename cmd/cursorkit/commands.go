package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/autom8ter/cursorkit"
	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	transport "github.com/autom8ter/cursorkit/transport/http"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

type queryFlags struct {
	selector  string
	skip      int
	count     int
	direction string
	fields    []string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&q.selector, "selector", "s", "{}", "json selector, ex: {\"age\": {\"$gte\": 18}}")
	cmd.Flags().IntVar(&q.skip, "skip", 0, "number of cursor positions to skip")
	cmd.Flags().IntVar(&q.count, "count", 0, "maximum number of records (0 is unbounded)")
	cmd.Flags().StringVar(&q.direction, "direction", "next", "cursor direction: next or prev")
	cmd.Flags().StringSliceVar(&q.fields, "fields", nil, "fields to project found records onto")
}

func (q *queryFlags) parse(store string) (memset.Selector, *cursorkit.Context, error) {
	sel, err := memset.ParseSelector(q.selector)
	if err != nil {
		return nil, nil, err
	}
	c := cursorkit.NewContext(store)
	c.Skip = q.skip
	c.Count = q.count
	c.Direction = model.Direction(q.direction)
	c.Fields = q.fields
	return sel, c, nil
}

func findCmd(flags *globalFlags) *cobra.Command {
	var (
		query queryFlags
		out   outputFlags
	)
	cmd := &cobra.Command{
		Use:   "find [store]",
		Short: "find the records matching a selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), flags, func(ctx context.Context, _ fileConfig, db *cursorkit.DB) error {
				sel, c, err := query.parse(args[0])
				if err != nil {
					return err
				}
				res, err := db.Find(ctx, sel, c).Await(ctx)
				if err != nil {
					return err
				}
				return out.write(cmd.OutOrStdout(), res.Records, res)
			})
		},
	}
	query.register(cmd)
	out.register(cmd)
	return cmd
}

func insertCmd(flags *globalFlags) *cobra.Command {
	var (
		file   string
		upsert bool
		out    outputFlags
	)
	cmd := &cobra.Command{
		Use:   "insert [store]",
		Short: "insert a json array (or newline delimited json objects) of records read from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return errors.Wrap(err, errors.Validation, "failed to open %s", file)
				}
				defer f.Close()
				r = f
			}
			bits, err := io.ReadAll(r)
			if err != nil {
				return errors.Wrap(err, errors.Validation, "failed to read records")
			}
			records, err := parseRecords(bits)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), flags, func(ctx context.Context, _ fileConfig, db *cursorkit.DB) error {
				store, err := db.Store(args[0])
				if err != nil {
					return err
				}
				c := cursorkit.NewContext(args[0])
				c.Upsert = upsert
				res, err := store.Insert(ctx, records, c).Await(ctx)
				if err != nil {
					return err
				}
				return out.write(cmd.OutOrStdout(), res.Records, res)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file holding the records, - reads stdin")
	cmd.Flags().BoolVar(&upsert, "upsert", false, "replace records whose primary key already exists")
	out.register(cmd)
	return cmd
}

// parseRecords accepts a json array of objects, a single object or newline delimited objects
func parseRecords(bits []byte) ([]model.Record, error) {
	content := strings.TrimSpace(string(bits))
	if content == "" {
		return nil, nil
	}
	var records []model.Record
	if strings.HasPrefix(content, "[") {
		if !gjson.Valid(content) {
			return nil, errors.New(errors.Validation, "invalid json records")
		}
		for _, item := range gjson.Parse(content).Array() {
			rec, ok := item.Value().(map[string]any)
			if !ok {
				return nil, errors.New(errors.Validation, "records must be json objects: %s", item.Raw)
			}
			records = append(records, rec)
		}
		return records, nil
	}
	dec := json.NewDecoder(strings.NewReader(content))
	for dec.More() {
		var rec model.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.Wrap(err, errors.Validation, "invalid json record")
		}
		records = append(records, rec)
	}
	return records, nil
}

func updateCmd(flags *globalFlags) *cobra.Command {
	var (
		query  queryFlags
		out    outputFlags
		set    string
		inc    string
		patch  string
		upsert bool
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "update [store]",
		Short: "update the records matching a selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, c, err := query.parse(args[0])
			if err != nil {
				return err
			}
			if c.Set, err = memset.ParseSelector(set); err != nil {
				return err
			}
			if inc != "" {
				if err := json.Unmarshal([]byte(inc), &c.Inc); err != nil {
					return errors.Wrap(err, errors.Validation, "invalid $inc")
				}
			}
			if patch != "" {
				if err := json.Unmarshal([]byte(patch), &c.Patch); err != nil {
					return errors.Wrap(err, errors.Validation, "invalid patch")
				}
			}
			c.Upsert = upsert
			c.Force = force
			return withDB(cmd.Context(), flags, func(ctx context.Context, _ fileConfig, db *cursorkit.DB) error {
				res, err := db.Update(ctx, sel, c).Await(ctx)
				if err != nil {
					return err
				}
				return out.write(cmd.OutOrStdout(), res.Records, res)
			})
		},
	}
	query.register(cmd)
	out.register(cmd)
	cmd.Flags().StringVar(&set, "set", "{}", "json $set directive, ex: {\"name\": \"@nickname\"}")
	cmd.Flags().StringVar(&inc, "inc", "", "json $inc directive, ex: {\"visits\": 1}")
	cmd.Flags().StringVar(&patch, "patch", "", "json record inserted by an upsert matching nothing")
	cmd.Flags().BoolVar(&upsert, "upsert", false, "insert the patch when nothing matches")
	cmd.Flags().BoolVar(&force, "force", false, "update records regardless of their tag")
	return cmd
}

func removeCmd(flags *globalFlags) *cobra.Command {
	var (
		query queryFlags
		out   outputFlags
		force bool
		ids   []string
	)
	cmd := &cobra.Command{
		Use:   "remove [store]",
		Short: "remove the records matching a selector, or delete records by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), flags, func(ctx context.Context, _ fileConfig, db *cursorkit.DB) error {
				if len(ids) > 0 {
					keys, err := db.RemoveItem(ctx, parseIDs(ids), cursorkit.NewContext(args[0])).Await(ctx)
					if err != nil {
						return err
					}
					return out.write(cmd.OutOrStdout(), nil, keys)
				}
				sel, c, err := query.parse(args[0])
				if err != nil {
					return err
				}
				c.Force = force
				res, err := db.Remove(ctx, sel, c).Await(ctx)
				if err != nil {
					return err
				}
				return out.write(cmd.OutOrStdout(), res.Records, res)
			})
		},
	}
	query.register(cmd)
	out.register(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "physically delete instead of tagging records removed")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "primary keys to delete, numeric ids are parsed as numbers")
	return cmd
}

// parseIDs parses each id as a json value so that numeric keys stay numbers
func parseIDs(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		res := gjson.Parse(id)
		if res.Type == gjson.Number {
			out = append(out, res.Float())
			continue
		}
		out = append(out, id)
	}
	return out
}

func countCmd(flags *globalFlags) *cobra.Command {
	var (
		selector string
		mix      bool
	)
	cmd := &cobra.Command{
		Use:   "count [store]",
		Short: "count the records of a store, or the ones matching a selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := memset.ParseSelector(selector)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), flags, func(ctx context.Context, _ fileConfig, db *cursorkit.DB) error {
				store, err := db.Store(args[0])
				if err != nil {
					return err
				}
				c := cursorkit.NewContext(args[0])
				c.Mix = mix
				n, err := store.Count(ctx, sel, c).Await(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "s", "{}", "json selector")
	cmd.Flags().BoolVar(&mix, "mix", false, "evaluate the whole selector instead of its first index condition")
	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the database over http",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), flags, func(ctx context.Context, cfg fileConfig, db *cursorkit.DB) error {
				params := cfg.HTTP
				if params.Title == "" {
					params.Title = db.Name()
				}
				if params.Version == "" {
					params.Version = "v0.0.0"
				}
				if port != 0 {
					params.Port = port
				}
				if params.Port == 0 {
					params.Port = 8080
				}
				srv, err := transport.New(db, params)
				if err != nil {
					return err
				}
				return srv.Serve(ctx)
			})
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default 8080)")
	return cmd
}
