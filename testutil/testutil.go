// Package testutil provides an in-memory database seeded with fake records for tests
package testutil

import (
	"context"
	"time"

	_ "embed"

	"github.com/autom8ter/cursorkit"
	"github.com/autom8ter/cursorkit/model"
	"github.com/brianvoe/gofakeit/v6"
)

var (
	//go:embed testdata/schema.yaml
	schemaContent []byte
	//go:embed testdata/user.json
	userSchema []byte
	// Schema holds an items store (indexed on x, name, _tag, sku and name+x), a users store validated by a json
	// schema and an auto increment events store
	Schema model.Schema
)

func init() {
	s, err := model.ParseSchema(schemaContent)
	if err != nil {
		panic(err)
	}
	for i, store := range s.Stores {
		if store.Name == "users" {
			s.Stores[i].JSONSchema = userSchema
		}
	}
	Schema = s
}

// NewUser returns a fake user record without a primary key
func NewUser() model.Record {
	return model.Record{
		"name": gofakeit.Name(),
		"contact": map[string]any{
			"email": gofakeit.Email(),
		},
		"language":  gofakeit.Language(),
		"gender":    gofakeit.Gender(),
		"age":       gofakeit.IntRange(0, 100),
		"timestamp": gofakeit.DateRange(time.Now().Truncate(7200*time.Hour), time.Now()),
	}
}

// NewItems returns n item records with ids 1..n and x = id
func NewItems(n int) []model.Record {
	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{
			"id":   i + 1,
			"x":    i + 1,
			"name": gofakeit.Noun(),
		}
	}
	return records
}

// TestDB opens an in-memory database with Schema, runs fn and closes the database
func TestDB(fn func(ctx context.Context, db *cursorkit.DB), opts ...func(cfg *cursorkit.Config)) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	schema := Schema
	cfg := cursorkit.Config{
		Name:     schema.Name,
		Provider: "badger",
		Params: map[string]any{
			"storage_path": "",
		},
		LogLevel: "error",
		Schema:   &schema,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	db, err := cursorkit.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	fn(ctx, db)
	return nil
}
