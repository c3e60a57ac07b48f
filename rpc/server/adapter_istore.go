package server

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/rpc/common"
)

func NewIndexStoreServerAdapter() IRPCServerAdapter {
	return &indexStoreServerAdapter{}
}

type indexStoreServerAdapter struct{}

func (adapter *indexStoreServerAdapter) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse(store.NewError(store.RetCInternalError, "handler: store is nil"))
	}

	switch req.MsgType {
	case common.MsgTIdxAdd:
		return common.NewIdxAddResponse(s.Add(req.Key))
	case common.MsgTIdxDelete:
		return common.NewIdxDeleteResponse(s.Delete(req.Key))
	case common.MsgTIdxHas:
		ok, err := s.Has(req.Key)
		return common.NewIdxHasResponse(ok, err)
	case common.MsgTIdxLen:
		n, err := s.Len()
		return common.NewIdxLenResponse(n, err)
	case common.MsgTIdxRange:
		keys, err := s.Range(req.From, req.To, int(req.Limit))
		return common.NewIdxRangeResponse(keys, err)
	case common.MsgTIdxDump:
		dot, err := s.Dump()
		return common.NewIdxDumpResponse(dot, err)
	case common.MsgTIdxInfo:
		info, err := s.GetDBInfo()
		if err != nil {
			return common.NewIdxInfoResponse(nil, err)
		}
		data, err := json.Marshal(info)
		if err != nil {
			return common.NewIdxInfoResponse(nil, store.NewError(store.RetCInternalError, err.Error()))
		}
		return common.NewIdxInfoResponse(data, nil)
	default:
		return common.NewErrorResponse(store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("RPC IndexStoreAdapter - Unsupported message type: %s", req.MsgType)))
	}
}
