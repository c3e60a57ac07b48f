package client

import (
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/idmgr"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/rpc/common"
	"github.com/ValentinKolb/dIdx/rpc/serializer"
	"github.com/ValentinKolb/dIdx/rpc/server"
	"github.com/ValentinKolb/dIdx/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// invokeRPCRequest
// --------------------------------------------------------------------------

// replyTransport answers every request with a fixed message
type replyTransport struct {
	reply common.Message
	err   error
}

func (r *replyTransport) Connect(common.ClientConfig) error { return nil }
func (r *replyTransport) Close() error                      { return nil }
func (r *replyTransport) Send(uint64, []byte) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return serializer.NewJSONSerializer().Serialize(r.reply)
}

func TestInvokeRPCRequest(t *testing.T) {
	ser := serializer.NewJSONSerializer()

	tests := []struct {
		name     string
		reply    common.Message
		wantCode store.RetCode
		wantErr  bool
	}{
		{
			name:  "success",
			reply: common.Message{MsgType: common.MsgTIdxLen, Count: 3},
		},
		{
			name:     "duplicate key",
			reply:    *common.NewIdxAddResponse(store.NewError(store.RetCDuplicateKey, "db: duplicate key")),
			wantCode: store.RetCDuplicateKey,
			wantErr:  true,
		},
		{
			name:     "error without code",
			reply:    common.Message{MsgType: common.MsgTError, Err: "boom"},
			wantCode: store.RetCInternalError,
			wantErr:  true,
		},
		{
			name:    "unexpected type",
			reply:   common.Message{MsgType: common.MsgTIdxHas},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := invokeRPCRequest(1, common.NewIdxLenRequest(), &replyTransport{reply: tt.reply}, ser)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, uint64(3), resp.Count)
				return
			}
			require.Error(t, err)
			if tt.wantCode != store.RetCSuccess {
				assert.Equal(t, tt.wantCode, store.CodeOf(err))
			}
		})
	}
}

func TestDuplicateKeySurvivesTransport(t *testing.T) {
	s := &rpcStore{rpcClientAdapter{
		shardId:    1,
		transport:  &replyTransport{reply: *common.NewIdxAddResponse(store.NewError(store.RetCDuplicateKey, "dup"))},
		serializer: serializer.NewJSONSerializer(),
	}}

	err := s.Add(1)
	require.Error(t, err)
	assert.True(t, store.IsDuplicateKey(err))
}

// --------------------------------------------------------------------------
// End to end over a unix socket
// --------------------------------------------------------------------------

func startServer(t *testing.T, shards ...common.ServerShard) common.ClientConfig {
	t.Helper()
	dir := t.TempDir()
	socket := filepath.Join(dir, "rpc.sock")

	srv := server.NewRPCServer(common.ServerConfig{
		Shards:        shards,
		DataDir:       filepath.Join(dir, "data"),
		TimeoutSecond: 5,
		LogLevel:      "error",
		Transport:     common.ServerTransportConfig{Endpoint: socket, WorkersPerConn: 4},
	}, unix.NewUnixServerTransport(), serializer.NewBinarySerializer())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{socket},
			RetryCount:             2,
			ConnectionsPerEndpoint: 2,
		},
	}
}

func connectStore(t *testing.T, shardID uint64, config common.ClientConfig) store.IStore {
	t.Helper()
	tr := unix.NewUnixClientTransport()
	var s store.IStore
	require.Eventually(t, func() bool {
		var err error
		s, err = NewRPCStore(shardID, config, tr, serializer.NewBinarySerializer())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { _ = tr.Close() })
	return s
}

func TestRPCStore(t *testing.T) {
	config := startServer(t, common.ServerShard{ShardID: 1, Type: common.ShardTypeLocalIStore})
	s := connectStore(t, 1, config)

	for _, k := range []uint64{40, 10, 30, 20} {
		require.NoError(t, s.Add(k))
	}

	err := s.Add(30)
	require.Error(t, err)
	assert.True(t, store.IsDuplicateKey(err))

	ok, err := s.Has(10)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(10))
	require.NoError(t, s.Delete(10))

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	keys, err := s.Range(0, 35, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{20, 30}, keys)

	keys, err = s.Range(100, 200, 0)
	require.NoError(t, err)
	assert.Empty(t, keys)

	dot, err := s.Dump()
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph")

	info, err := s.GetDBInfo()
	require.NoError(t, err)
	assert.Equal(t, db.ImplRBIdx, info.DbType)
}

func TestRPCIDManager(t *testing.T) {
	config := startServer(t, common.ServerShard{ShardID: 7, Type: common.ShardTypeLocalIIDManager})

	tr := unix.NewUnixClientTransport()
	t.Cleanup(func() { _ = tr.Close() })

	var ids idmgr.IIDManager
	require.Eventually(t, func() bool {
		var err error
		ids, err = NewRPCIDManager(7, config, tr, serializer.NewBinarySerializer())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	seen := make([]uint64, 0, 50)
	for i := 0; i < 50; i++ {
		id, err := ids.Allocate()
		require.NoError(t, err)
		seen = append(seen, id)
	}
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	for i := 1; i < len(seen); i++ {
		assert.NotEqual(t, seen[i-1], seen[i])
	}

	ok, err := ids.Reserve(seen[0])
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ids.Release(seen[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ids.Reserve(seen[0])
	require.NoError(t, err)
	assert.True(t, ok)

	// the id shard can be inspected with the index client
	s := connectStore(t, 7, config)
	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(50), n)
}

func TestUnknownShard(t *testing.T) {
	config := startServer(t, common.ServerShard{ShardID: 1, Type: common.ShardTypeLocalIStore})
	s := connectStore(t, 2, config)

	_, err := s.Len()
	require.Error(t, err)
	assert.Equal(t, store.RetCInvalidOperation, store.CodeOf(err))
}
