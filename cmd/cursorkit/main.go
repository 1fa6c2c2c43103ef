package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/autom8ter/cursorkit"
	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/model"
	transport "github.com/autom8ter/cursorkit/transport/http"
	"github.com/spf13/cobra"
)

// fileConfig is the toml configuration file of the cli
type fileConfig struct {
	cursorkit.Config
	// SchemaPath is the path of the yaml schema document
	SchemaPath string           `toml:"schema"`
	HTTP       transport.Config `toml:"http"`
}

type globalFlags struct {
	configPath string
	schemaPath string
	provider   string
	name       string
	storage    string
	logLevel   string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:          "cursorkit",
		Short:        "query and modify cursorkit stores with $ operator selectors",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a toml config file")
	cmd.PersistentFlags().StringVar(&flags.schemaPath, "schema", "", "path to a yaml schema (overrides the config file)")
	cmd.PersistentFlags().StringVar(&flags.provider, "provider", "", "kv provider: badger, sqlite or tikv")
	cmd.PersistentFlags().StringVar(&flags.name, "name", "", "database name")
	cmd.PersistentFlags().StringVar(&flags.storage, "storage", "", "storage path of the badger or sqlite provider")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.AddCommand(
		findCmd(flags),
		insertCmd(flags),
		updateCmd(flags),
		removeCmd(flags),
		countCmd(flags),
		serveCmd(flags),
	)
	return cmd
}

// loadConfig reads the config file, then applies the flags over it
func loadConfig(flags *globalFlags) (fileConfig, error) {
	var cfg fileConfig
	if flags.configPath != "" {
		if _, err := toml.DecodeFile(flags.configPath, &cfg); err != nil {
			return fileConfig{}, errors.Wrap(err, errors.Validation, "failed to read config %s", flags.configPath)
		}
	}
	if flags.schemaPath != "" {
		cfg.SchemaPath = flags.schemaPath
	}
	if flags.provider != "" {
		cfg.Provider = flags.provider
	}
	if flags.name != "" {
		cfg.Name = flags.name
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	if flags.storage != "" {
		if cfg.Params == nil {
			cfg.Params = map[string]any{}
		}
		switch cfg.Provider {
		case "sqlite":
			cfg.Params["path"] = flags.storage
		default:
			cfg.Params["storage_path"] = flags.storage
		}
	}
	if cfg.SchemaPath != "" {
		bits, err := os.ReadFile(cfg.SchemaPath)
		if err != nil {
			return fileConfig{}, errors.Wrap(err, errors.Validation, "failed to read schema %s", cfg.SchemaPath)
		}
		schema, err := model.ParseSchema(bits)
		if err != nil {
			return fileConfig{}, err
		}
		cfg.Schema = &schema
		if cfg.Name == "" {
			cfg.Name = schema.Name
		}
	}
	return cfg, nil
}

func withDB(ctx context.Context, flags *globalFlags, fn func(ctx context.Context, cfg fileConfig, db *cursorkit.DB) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	db, err := cursorkit.Open(ctx, cfg.Config, nil)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())
	return fn(ctx, cfg, db)
}
