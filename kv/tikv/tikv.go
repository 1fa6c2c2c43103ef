package tikv

import (
	"context"
	"fmt"

	"github.com/autom8ter/cursorkit/kv"
	"github.com/autom8ter/cursorkit/kv/registry"
	"github.com/autom8ter/cursorkit/util"
	"github.com/tikv/client-go/v2/txnkv"
)

func init() {
	registry.Register("tikv", func(params map[string]interface{}) (kv.DB, error) {
		opts, err := util.DecodeParams[Options](params)
		if err != nil {
			return nil, err
		}
		return Open(opts)
	})
}

// Options are the params of the tikv provider
type Options struct {
	// PDAddrs are the placement driver endpoints. A single address is accepted as a string.
	PDAddrs []string `json:"pd_addr" validate:"required,min=1,dive,required"`
}

type tikvKV struct {
	db *txnkv.Client
}

// New connects to the tikv cluster behind the placement driver at pdAddr
func New(pdAddr string) (kv.DB, error) {
	if pdAddr == "" {
		return nil, fmt.Errorf("empty pd address")
	}
	return Open(Options{PDAddrs: []string{pdAddr}})
}

// Open connects to the tikv cluster behind the given placement drivers
func Open(o Options) (kv.DB, error) {
	client, err := txnkv.NewClient(o.PDAddrs)
	if err != nil {
		return nil, fmt.Errorf("connect to pd %v: %w", o.PDAddrs, err)
	}
	return &tikvKV{
		db: client,
	}, nil
}

func (b *tikvKV) Tx(isUpdate bool, fn func(kv.Tx) error) error {
	return kv.RunTx(context.Background(), b, isUpdate, fn)
}

func (b *tikvKV) NewTx(isUpdate bool) (kv.Tx, error) {
	tx, err := b.db.Begin()
	if err != nil {
		return nil, err
	}
	return &tikvTx{txn: tx, isUpdate: isUpdate}, nil
}

func (b *tikvKV) Close() error {
	return b.db.Close()
}
