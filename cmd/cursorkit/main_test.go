package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autom8ter/cursorkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testSchema = `
name: cli
version: 1
stores:
  - name: items
    primaryKey: id
    indexes:
      - x
`

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	cmd := rootCmd()
	out := bytes.NewBuffer(nil)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.yaml", testSchema)
	config := writeFile(t, dir, "cursorkit.toml", `
provider = "badger"
chunk_size = 500
log_level = "warn"
schema = "`+schema+`"

[params]
storage_path = "./data"

[http]
title = "cli"
version = "v1.0.0"
port = 9090
`)
	cfg, err := loadConfig(&globalFlags{configPath: config, storage: filepath.Join(dir, "db")})
	require.NoError(t, err)
	assert.Equal(t, "cli", cfg.Name)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "db"), cfg.Params["storage_path"])
	assert.Equal(t, 9090, cfg.HTTP.Port)
	require.NotNil(t, cfg.Schema)
	assert.Equal(t, "items", cfg.Schema.Stores[0].Name)

	_, err = loadConfig(&globalFlags{configPath: filepath.Join(dir, "missing.toml")})
	assert.Error(t, err)
}

func TestParseRecords(t *testing.T) {
	records, err := parseRecords([]byte(`[{"id": 1}, {"id": 2}]`))
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{"id": float64(1)}, {"id": float64(2)}}, records)

	records, err = parseRecords([]byte("{\"id\": 1}\n{\"id\": 2}\n"))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = parseRecords([]byte(`[1, 2]`))
	assert.Error(t, err)

	records, err = parseRecords([]byte("  "))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []any{float64(1), "abc"}, parseIDs([]string{"1", "abc"}))
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.yaml", testSchema)
	global := []string{"--schema", schema, "--storage", filepath.Join(dir, "db")}
	args := func(extra ...string) []string {
		return append(extra, global...)
	}

	out, err := run(t, `[{"id": 1, "x": 5, "name": "a"}, {"id": 2, "x": 15, "name": "b"}]`, args("insert", "items")...)
	require.NoError(t, err, out)
	assert.Equal(t, int64(1), gjson.Get(out, "chunks").Int())

	out, err = run(t, "", args("find", "items", "-s", `{"x": {"$gt": 10}}`, "--path", "records.#.name")...)
	require.NoError(t, err, out)
	assert.JSONEq(t, `["b"]`, out)

	out, err = run(t, "", args("find", "items", "-o", "tsv", "--columns", "id,name")...)
	require.NoError(t, err, out)
	assert.Equal(t, "id\tname\n1\ta\n2\tb\n", out)

	out, err = run(t, "", args("find", "items", "-o", "template", "--template", `{{ range .records }}{{ .name | upper }}{{ end }}`)...)
	require.NoError(t, err, out)
	assert.Equal(t, "AB", out)

	out, err = run(t, "", args("update", "items", "-s", `{"id": 1}`, "--set", `{"name": "z"}`, "--inc", `{"x": 1}`)...)
	require.NoError(t, err, out)
	assert.Equal(t, "z", gjson.Get(out, "records.0.name").String())
	assert.Equal(t, int64(6), gjson.Get(out, "records.0.x").Int())

	out, err = run(t, "", args("count", "items", "-s", `{"x": {"$gte": 0}}`)...)
	require.NoError(t, err, out)
	assert.Equal(t, "2\n", out)

	out, err = run(t, "", args("remove", "items", "--id", "2")...)
	require.NoError(t, err, out)
	out, err = run(t, "", args("count", "items")...)
	require.NoError(t, err, out)
	assert.Equal(t, "1\n", out)

	_, err = run(t, "", args("count", "items", "-s", `{"name": "z"}`)...)
	assert.Error(t, err)

	_, err = run(t, "", args("find", "items", "-o", "xml")...)
	assert.Error(t, err)
}
