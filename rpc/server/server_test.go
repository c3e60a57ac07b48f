package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/rpc/common"
	"github.com/ValentinKolb/dIdx/rpc/serializer"
	"github.com/ValentinKolb/dIdx/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureTransport records the handler instead of serving it
type captureTransport struct {
	handler transport.ServerHandleFunc
}

func (c *captureTransport) RegisterHandler(handler transport.ServerHandleFunc) { c.handler = handler }
func (c *captureTransport) Listen(common.ServerConfig) error                   { return nil }
func (c *captureTransport) Close() error                                       { return nil }

func newTestServer(t *testing.T, shards ...common.ServerShard) (*rpcServer, *captureTransport) {
	t.Helper()
	tr := &captureTransport{}
	s := NewRPCServer(common.ServerConfig{
		Shards:        shards,
		DataDir:       t.TempDir(),
		TimeoutSecond: 5,
		LogLevel:      "error",
	}, tr, serializer.NewBinarySerializer())
	require.NoError(t, s.init())
	t.Cleanup(func() { _ = s.Close() })
	return s, tr
}

func call(t *testing.T, tr *captureTransport, shardID uint64, req *common.Message) common.Message {
	t.Helper()
	ser := serializer.NewBinarySerializer()
	data, err := ser.Serialize(*req)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, ser.Deserialize(tr.handler(shardID, data), &resp))
	return resp
}

func TestServerIndexShard(t *testing.T) {
	_, tr := newTestServer(t, common.ServerShard{ShardID: 1, Type: common.ShardTypeLocalIStore})

	for _, k := range []uint64{30, 10, 20} {
		resp := call(t, tr, 1, common.NewIdxAddRequest(k))
		require.Empty(t, resp.Err)
		assert.Equal(t, common.MsgTIdxAdd, resp.MsgType)
	}

	resp := call(t, tr, 1, common.NewIdxAddRequest(20))
	assert.Equal(t, uint64(store.RetCDuplicateKey), resp.Code)
	assert.NotEmpty(t, resp.Err)

	resp = call(t, tr, 1, common.NewIdxHasRequest(10))
	assert.True(t, resp.Ok)

	resp = call(t, tr, 1, common.NewIdxLenRequest())
	assert.Equal(t, uint64(3), resp.Count)

	resp = call(t, tr, 1, common.NewIdxRangeRequest(15, 100, 1))
	assert.Equal(t, []uint64{20}, resp.Keys)

	resp = call(t, tr, 1, common.NewIdxDeleteRequest(20))
	assert.Empty(t, resp.Err)

	resp = call(t, tr, 1, common.NewIdxRangeRequest(0, 100, 0))
	assert.Equal(t, []uint64{10, 30}, resp.Keys)

	resp = call(t, tr, 1, common.NewIdxDumpRequest())
	assert.Contains(t, string(resp.Value), "digraph")

	resp = call(t, tr, 1, common.NewIdxInfoRequest())
	var info db.DatabaseInfo
	require.NoError(t, json.Unmarshal(resp.Value, &info))
	assert.Equal(t, db.ImplRBIdx, info.DbType)

	// id operations are not served by an index shard
	resp = call(t, tr, 1, common.NewIDAllocateRequest())
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, uint64(store.RetCInvalidOperation), resp.Code)
}

func TestServerIDShard(t *testing.T) {
	_, tr := newTestServer(t, common.ServerShard{ShardID: 2, Type: common.ShardTypeLocalIIDManager})

	resp := call(t, tr, 2, common.NewIDAllocateRequest())
	require.Empty(t, resp.Err)
	id := resp.Key

	resp = call(t, tr, 2, common.NewIDReserveRequest(id))
	require.Empty(t, resp.Err)
	assert.False(t, resp.Ok)

	resp = call(t, tr, 2, common.NewIDReleaseRequest(id))
	assert.True(t, resp.Ok)

	resp = call(t, tr, 2, common.NewIDReleaseRequest(id))
	assert.False(t, resp.Ok)

	resp = call(t, tr, 2, common.NewIDReserveRequest(42))
	assert.True(t, resp.Ok)

	resp = call(t, tr, 2, common.NewIdxLenRequest())
	assert.Equal(t, uint64(1), resp.Count)

	// writes through the index adapter are rejected
	resp = call(t, tr, 2, common.NewIdxAddRequest(7))
	assert.Equal(t, common.MsgTError, resp.MsgType)
}

func TestServerRequestErrors(t *testing.T) {
	_, tr := newTestServer(t, common.ServerShard{ShardID: 1, Type: common.ShardTypeLocalIStore})

	resp := call(t, tr, 99, common.NewIdxLenRequest())
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Err, "shard 99 not found")

	var msg common.Message
	require.NoError(t, serializer.NewBinarySerializer().Deserialize(tr.handler(1, []byte{0xff}), &msg))
	assert.Equal(t, common.MsgTError, msg.MsgType)
	assert.Equal(t, uint64(store.RetCInvalidOperation), msg.Code)
}

func TestServerSetupErrors(t *testing.T) {
	s := NewRPCServer(common.ServerConfig{
		Shards: []common.ServerShard{
			{ShardID: 1, Type: common.ShardTypeLocalIStore},
			{ShardID: 1, Type: common.ShardTypeLocalIIDManager},
		},
		DataDir:  t.TempDir(),
		LogLevel: "error",
	}, &captureTransport{}, serializer.NewBinarySerializer())
	err := s.init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate shard id 1")
	require.NoError(t, s.Close())

	s = NewRPCServer(common.ServerConfig{
		Shards:   []common.ServerShard{{ShardID: 1, Type: "btree"}},
		LogLevel: "error",
	}, &captureTransport{}, serializer.NewBinarySerializer())
	assert.Error(t, s.init())

	s = NewRPCServer(common.ServerConfig{LogLevel: "loud"}, &captureTransport{}, serializer.NewBinarySerializer())
	assert.Error(t, s.init())
}

func TestAdminAPI(t *testing.T) {
	s, tr := newTestServer(t,
		common.ServerShard{ShardID: 2, Type: common.ShardTypeLocalIIDManager},
		common.ServerShard{ShardID: 1, Type: common.ShardTypeLocalIStore},
	)
	call(t, tr, 1, common.NewIdxAddRequest(5))
	router := s.adminRouter()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get("/shards")
	require.Equal(t, http.StatusOK, rec.Code)
	var shards []shardDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shards))
	assert.Equal(t, []shardDescription{{ID: 1, Type: "lstore"}, {ID: 2, Type: "idmgr(lstore)"}}, shards)

	rec = get("/shards/1/info")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db_type":"rbidx"`)

	rec = get("/shards/1/dot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digraph")

	assert.Equal(t, http.StatusBadRequest, get("/shards/abc/info").Code)
	assert.Equal(t, http.StatusNotFound, get("/shards/9/dot").Code)

	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `didx_rpc_requests_total{shard="1",type="idx_add"}`)
	assert.Contains(t, rec.Body.String(), "didx_rpc_request_duration_seconds")
}
