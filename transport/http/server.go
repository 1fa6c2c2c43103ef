// Package http serves a database over a REST api described by a generated openapi specification.
// Every inbound request is validated against the specification before it reaches a handler.
package http

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/autom8ter/cursorkit"
	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/util"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"
)

//go:embed openapi.yaml.tmpl
var openapiTemplate string

// Config are the server's params
type Config struct {
	Title        string   `json:"title" yaml:"title" toml:"title" validate:"required"`
	Version      string   `json:"version" yaml:"version" toml:"version" validate:"required"`
	Description  string   `json:"description" yaml:"description" toml:"description"`
	Port         int      `json:"port" yaml:"port" toml:"port" validate:"required"`
	AllowOrigins []string `json:"allowOrigins" yaml:"allowOrigins" toml:"allow_origins"`
}

// Server serves a database over http
type Server struct {
	params        Config
	db            *cursorkit.DB
	router        *mux.Router
	upgrader      websocket.Upgrader
	spec          []byte
	specMu        sync.RWMutex
	openapiRouter routers.Router
}

// New creates a server for db and registers its routes
func New(db *cursorkit.DB, params Config) (*Server, error) {
	if err := util.ValidateStruct(params); err != nil {
		return nil, err
	}
	if len(params.AllowOrigins) == 0 {
		params.AllowOrigins = []string{"*"}
	}
	s := &Server{
		params:   params,
		db:       db,
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
	if err := s.refreshSpec(); err != nil {
		return nil, err
	}
	s.router.Use(
		handlers.CORS(
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedOrigins(params.AllowOrigins),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		),
		s.openAPIValidator(),
		s.loggerWare(),
		handlers.RecoveryHandler(),
	)
	s.router.HandleFunc("/openapi.yaml", s.specHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/openapi.json", s.specHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/stores", s.storesHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/stores/{store}/find", s.findHandler()).Methods(http.MethodPost)
	s.router.HandleFunc("/stores/{store}/update", s.updateHandler()).Methods(http.MethodPost)
	s.router.HandleFunc("/stores/{store}/remove", s.removeHandler()).Methods(http.MethodPost)
	s.router.HandleFunc("/stores/{store}/insert", s.insertHandler()).Methods(http.MethodPost)
	s.router.HandleFunc("/stores/{store}/count", s.countHandler()).Methods(http.MethodPost, http.MethodGet)
	s.router.HandleFunc("/stores/{store}/changes", s.changesHandler()).Methods(http.MethodGet)
	return s, nil
}

// Handler returns the server's http handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Spec returns the openapi specification in yaml
func (s *Server) Spec() []byte {
	s.specMu.RLock()
	defer s.specMu.RUnlock()
	return s.spec
}

func (s *Server) refreshSpec() error {
	spec, err := getSpec(s.params, s.db)
	if err != nil {
		return err
	}
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return errors.Wrap(err, errors.Internal, "failed to load openapi spec")
	}
	if err := doc.Validate(loader.Context); err != nil {
		return errors.Wrap(err, errors.Internal, "invalid openapi spec")
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return errors.Wrap(err, errors.Internal, "failed to route openapi spec")
	}
	s.specMu.Lock()
	defer s.specMu.Unlock()
	s.spec = spec
	s.openapiRouter = router
	return nil
}

func getSpec(config Config, db *cursorkit.DB) ([]byte, error) {
	t, err := template.New("").Funcs(sprig.TxtFuncMap()).Parse(openapiTemplate)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "")
	}
	var schemas []map[string]any
	for _, name := range db.StoreNames() {
		desc, err := db.Descriptor(name)
		if err != nil {
			return nil, err
		}
		schema := []byte(`{"type":"object"}`)
		if len(desc.JSONSchema) > 0 {
			schema = desc.JSONSchema
		}
		// generated keys are not required on insert
		required := cast.ToStringSlice(gjson.GetBytes(schema, "required").Value())
		required = lo.Without(required, desc.PrimaryKey)
		if len(required) > 0 {
			schema, err = sjson.SetBytes(schema, "required", required)
		} else {
			schema, err = sjson.DeleteBytes(schema, "required")
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "")
		}
		if schema, err = sjson.DeleteBytes(schema, "$schema"); err != nil {
			return nil, errors.Wrap(err, errors.Internal, "")
		}
		yamlSchema, err := util.JSONToYAML(schema)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "")
		}
		schemas = append(schemas, map[string]any{
			"store":  name,
			"schema": string(yamlSchema),
		})
	}
	buf := bytes.NewBuffer(nil)
	err = t.Execute(buf, map[string]any{
		"title":       config.Title,
		"description": config.Description,
		"version":     config.Version,
		"stores":      db.StoreNames(),
		"schemas":     schemas,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to render openapi spec")
	}
	return buf.Bytes(), nil
}

// Serve listens on the configured port until ctx is done
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", s.params.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	egp, ctx := errgroup.WithContext(ctx)
	egp.Go(func() error {
		s.db.Logger().Info(ctx, "serving", map[string]any{"port": s.params.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	egp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return egp.Wait()
}
