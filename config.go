package cursorkit

import (
	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/util"
)

// DefaultChunkSize is the number of records a bulk insert writes per transaction
const DefaultChunkSize = 10000

// Config configures a database instance
type Config struct {
	// Name is the database name
	Name string `json:"name" yaml:"name" toml:"name" validate:"required"`
	// Provider is the registered kv provider to open (badger, tikv, sqlite). Defaults to badger.
	Provider string `json:"provider" yaml:"provider" toml:"provider"`
	// Params are handed to the kv provider, ex: storage_path for badger
	Params map[string]any `json:"params" yaml:"params" toml:"params"`
	// ChunkSize is the number of records a bulk insert writes per transaction
	ChunkSize int `json:"chunkSize" yaml:"chunkSize" toml:"chunk_size" validate:"min=0"`
	// LogLevel is one of debug, info, warn or error
	LogLevel string `json:"logLevel" yaml:"logLevel" toml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	// Schema describes the database's stores. Opening a database with a schema of a higher version upgrades it.
	Schema *model.Schema `json:"schema,omitempty" yaml:"schema,omitempty" toml:"-"`
	// Logger overrides the default zap logger
	Logger Logger `json:"-" yaml:"-" toml:"-"`
}

// ConfigFromMap decodes a config from a generic map
func ConfigFromMap(m map[string]any) (Config, error) {
	var c Config
	if err := util.Decode(m, &c); err != nil {
		return Config{}, errors.Wrap(err, errors.Validation, "invalid config")
	}
	return c, nil
}

// Validate validates the config
func (c Config) Validate() error {
	if err := util.ValidateStruct(&c); err != nil {
		return err
	}
	if c.Schema != nil {
		if c.Schema.Name != "" && c.Schema.Name != c.Name {
			return errors.New(errors.Validation, "schema %s does not belong to database %s", c.Schema.Name, c.Name)
		}
		s := *c.Schema
		s.Name = c.Name
		return s.Validate()
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = "badger"
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}
