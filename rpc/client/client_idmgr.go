package client

import (
	"github.com/ValentinKolb/dIdx/lib/idmgr"
	"github.com/ValentinKolb/dIdx/rpc/common"
	"github.com/ValentinKolb/dIdx/rpc/serializer"
	"github.com/ValentinKolb/dIdx/rpc/transport"
)

// NewRPCIDManager creates a new RPC IIDManager
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It connects the transport and returns an idmgr.IIDManager
func NewRPCIDManager(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (idmgr.IIDManager, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcIDManager{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcIDManager struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the idmgr package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcIDManager) Allocate() (uint64, error) {
	resp, err := i.invoke(common.NewIDAllocateRequest())
	if err != nil {
		return 0, err
	}
	return resp.Key, nil
}

func (i *rpcIDManager) Reserve(id uint64) (bool, error) {
	resp, err := i.invoke(common.NewIDReserveRequest(id))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcIDManager) Release(id uint64) (bool, error) {
	resp, err := i.invoke(common.NewIDReleaseRequest(id))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}
