package server

import (
	"fmt"

	"github.com/ValentinKolb/dIdx/lib/idmgr"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/rpc/common"
)

func NewIDManagerServerAdapter() IRPCServerAdapter {
	return &idMgrServerAdapter{}
}

type idMgrServerAdapter struct{}

func (adapter *idMgrServerAdapter) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse(store.NewError(store.RetCInternalError, "handler: store is nil"))
	}

	// the manager is stateless, all state lives in the store
	ids := idmgr.NewIDManager(s)

	switch req.MsgType {
	case common.MsgTIDAllocate:
		id, err := ids.Allocate()
		return common.NewIDAllocateResponse(id, err)
	case common.MsgTIDReserve:
		ok, err := ids.Reserve(req.Key)
		return common.NewIDReserveResponse(ok, err)
	case common.MsgTIDRelease:
		ok, err := ids.Release(req.Key)
		return common.NewIDReleaseResponse(ok, err)
	case common.MsgTIdxLen, common.MsgTIdxHas, common.MsgTIdxRange:
		// read access to the id set goes through the index adapter
		return NewIndexStoreServerAdapter().Handle(req, s)
	default:
		return common.NewErrorResponse(store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("RPC IDManagerAdapter - Unsupported message type: %s", req.MsgType)))
	}
}
