package client

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/rpc/common"
	"github.com/ValentinKolb/dIdx/rpc/serializer"
	"github.com/ValentinKolb/dIdx/rpc/transport"
)

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It connects the transport and returns a store.IStore
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Add(key uint64) error {
	_, err := i.invoke(common.NewIdxAddRequest(key))
	return err
}

func (i *rpcStore) Delete(key uint64) error {
	_, err := i.invoke(common.NewIdxDeleteRequest(key))
	return err
}

func (i *rpcStore) Has(key uint64) (bool, error) {
	resp, err := i.invoke(common.NewIdxHasRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Len() (uint64, error) {
	resp, err := i.invoke(common.NewIdxLenRequest())
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (i *rpcStore) Range(from, to uint64, limit int) ([]uint64, error) {
	resp, err := i.invoke(common.NewIdxRangeRequest(from, to, limit))
	if err != nil {
		return nil, err
	}
	if resp.Keys == nil {
		return []uint64{}, nil
	}
	return resp.Keys, nil
}

func (i *rpcStore) Dump() ([]byte, error) {
	resp, err := i.invoke(common.NewIdxDumpRequest())
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (i *rpcStore) GetDBInfo() (db.DatabaseInfo, error) {
	resp, err := i.invoke(common.NewIdxInfoRequest())
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	var info db.DatabaseInfo
	if err := json.Unmarshal(resp.Value, &info); err != nil {
		return db.DatabaseInfo{}, fmt.Errorf("RPC client - invalid db info: %w", err)
	}
	return info, nil
}
