package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/autom8ter/cursorkit"
	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/javascript"
	"github.com/autom8ter/cursorkit/memset"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/cursorkit/util"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
)

// Request is the body of a store operation
type Request struct {
	Selector memset.Selector `json:"selector,omitempty"`
	// Records are the records of an insert
	Records []model.Record `json:"records,omitempty"`
	// Params are the operation's parameters: skip, count, direction, fields, $set, $inc, patch...
	Params cursorkit.Context `json:"params,omitempty"`
	// Filter is a javascript predicate applied to matched records
	Filter string `json:"filter,omitempty"`
	// Let is a javascript $let updater
	Let string `json:"let,omitempty"`
	// Validate is a javascript $validate validator
	Validate string `json:"validate,omitempty"`
}

// CountResponse is the body of a count response
type CountResponse struct {
	Count int `json:"count"`
}

func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	e := errors.Extract(err)
	if code := e.Code; code >= 400 && code < 600 {
		status = int(code)
	} else {
		e = &errors.Error{Code: errors.Internal, Messages: e.Messages, Err: e.Err}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(e.RemoveError())
}

func respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// decode reads the request body and compiles its javascript hooks into the operation context
func decode(r *http.Request) (*Request, *cursorkit.Context, error) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, errors.Wrap(err, errors.Validation, "failed to decode request")
	}
	c := req.Params.Clone()
	c.Store = mux.Vars(r)["store"]
	if req.Filter != "" {
		filter, err := javascript.Filter(req.Filter)
		if err != nil {
			return nil, nil, err
		}
		c.Filter = filter
	}
	if req.Let != "" {
		let, err := javascript.Let(req.Let)
		if err != nil {
			return nil, nil, err
		}
		c.Let = let
	}
	if req.Validate != "" {
		validate, err := javascript.Validate(req.Validate)
		if err != nil {
			return nil, nil, err
		}
		c.Validate = validate
	}
	return &req, c, nil
}

func (s *Server) specHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := s.Spec()
		if strings.HasSuffix(r.URL.Path, ".json") {
			bits, err := util.YAMLToJSON(spec)
			if err != nil {
				httpError(w, errors.Wrap(err, errors.Internal, "failed to convert spec from yaml to json"))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(bits)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(spec)
	}
}

func (s *Server) storesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var stores []model.StoreDescriptor
		for _, name := range s.db.StoreNames() {
			desc, err := s.db.Descriptor(name)
			if err != nil {
				httpError(w, err)
				return
			}
			stores = append(stores, desc)
		}
		respond(w, stores)
	}
}

func (s *Server) findHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, c, err := decode(r)
		if err != nil {
			httpError(w, err)
			return
		}
		res, err := s.db.Find(r.Context(), req.Selector, c).Await(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		respond(w, res)
	}
}

func (s *Server) updateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, c, err := decode(r)
		if err != nil {
			httpError(w, err)
			return
		}
		res, err := s.db.Update(r.Context(), req.Selector, c).Await(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		respond(w, res)
	}
}

func (s *Server) removeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, c, err := decode(r)
		if err != nil {
			httpError(w, err)
			return
		}
		res, err := s.db.Remove(r.Context(), req.Selector, c).Await(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		respond(w, res)
	}
}

func (s *Server) insertHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, c, err := decode(r)
		if err != nil {
			httpError(w, err)
			return
		}
		store, err := s.db.Store(c.Store)
		if err != nil {
			httpError(w, err)
			return
		}
		res, err := store.Insert(r.Context(), req.Records, c).Await(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		respond(w, res)
	}
}

func (s *Server) countHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			sel memset.Selector
			c   = cursorkit.NewContext(mux.Vars(r)["store"])
			err error
		)
		if r.Method == http.MethodPost {
			var req *Request
			if req, c, err = decode(r); err != nil {
				httpError(w, err)
				return
			}
			sel = req.Selector
		} else {
			if raw := r.URL.Query().Get("selector"); raw != "" {
				if sel, err = memset.ParseSelector(raw); err != nil {
					httpError(w, err)
					return
				}
			}
			c.Mix = cast.ToBool(r.URL.Query().Get("mix"))
		}
		store, err := s.db.Store(c.Store)
		if err != nil {
			httpError(w, err)
			return
		}
		n, err := store.Count(r.Context(), sel, c).Await(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		respond(w, CountResponse{Count: n})
	}
}

func (s *Server) changesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := mux.Vars(r)["store"]
		if _, err := s.db.Descriptor(store); err != nil {
			httpError(w, err)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.db.Logger().Error(r.Context(), "failed to upgrade change stream", err, map[string]any{"store": store})
			return
		}
		defer conn.Close()
		egp, ctx := errgroup.WithContext(context.Background())
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		egp.Go(func() error {
			// the client never writes: a failed read means it went away
			defer cancel()
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return nil
				}
			}
		})
		egp.Go(func() error {
			defer cancel()
			return s.db.ChangeStream(ctx, store, func(ctx context.Context, change model.Change) (bool, error) {
				if err := conn.WriteJSON(change); err != nil {
					return false, nil
				}
				return true, nil
			})
		})
		if err := egp.Wait(); err != nil {
			s.db.Logger().Error(r.Context(), "change stream failed", err, map[string]any{"store": store})
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
