package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/db/engines/rbidx"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/lib/store/dstore"
	"github.com/ValentinKolb/dIdx/lib/store/lstore"
	"github.com/ValentinKolb/dIdx/rpc/common"
	"github.com/ValentinKolb/dIdx/rpc/serializer"
	"github.com/ValentinKolb/dIdx/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("rpc")

var requestDuration = metrics.GetOrCreateHistogram("didx_rpc_request_duration_seconds")

// serverShard is a struct that represents a shard in the RPC server
// It contains the shard ID, the store it encapsulates and the adapter
// that handles requests for the store
type serverShard struct {
	ID      uint64
	Type    common.ServerShardType
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]

	// mu guards the fields below
	mu       sync.Mutex
	nodeHost *dragonboat.NodeHost
	admin    *http.Server
	locals   []db.IndexDB // indexes of local shards, closed by Close
}

// --------------------------------------------------------------------------
// Request Handling
// --------------------------------------------------------------------------

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		start := time.Now()
		var msg common.Message

		respMsg := s.handle(shardId, req, &msg)

		metrics.GetOrCreateCounter(
			fmt.Sprintf(`didx_rpc_requests_total{shard="%d",type=%q}`, shardId, msg.MsgType),
		).Inc()
		requestDuration.UpdateDuration(start)

		val, err := s.serializer.Serialize(*respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response for shard %d: %v", shardId, err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse(
				store.NewError(store.RetCInternalError, fmt.Sprintf("failed to serialize response: %s", err)),
			))
		}
		return val
	})
}

// handle decodes the request into msg and lets the shard's adapter answer it
func (s *rpcServer) handle(shardId uint64, req []byte, msg *common.Message) *common.Message {
	shard, ok := s.shards.Load(shardId)
	if !ok {
		return common.NewErrorResponse(
			store.NewError(store.RetCInvalidOperation, fmt.Sprintf("shard %d not found", shardId)),
		)
	}

	if err := s.serializer.Deserialize(req, msg); err != nil {
		return common.NewErrorResponse(
			store.NewError(store.RetCInvalidOperation, fmt.Sprintf("failed to deserialize request: %s", err)),
		)
	}

	return shard.Adapter.Handle(msg, shard.Store)
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

// openIndex opens the index file of a shard below the data dir.
// Without a data dir the index lives in a temporary file.
func (s *rpcServer) openIndex(name string) (db.IndexDB, error) {
	opts := rbidx.DefaultOptions()
	opts.Name = name
	if s.config.TimeoutSecond > 0 {
		opts.Timeout = time.Duration(s.config.TimeoutSecond) * time.Second
	}
	if s.config.DataDir != "" {
		opts.Path = filepath.Join(s.config.DataDir, name+".idx")
	}
	return rbidx.NewIndexDB(opts)
}

// openLocalIndex opens an index and remembers it for Close
func (s *rpcServer) openLocalIndex(name string) (db.IndexDB, error) {
	database, err := s.openIndex(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.locals = append(s.locals, database)
	s.mu.Unlock()
	return database, nil
}

// adapterFor returns the adapter serving a shard type
func adapterFor(t common.ServerShardType) (IRPCServerAdapter, error) {
	switch t {
	case common.ShardTypeLocalIStore, common.ShardTypeRemoteIStore:
		return NewIndexStoreServerAdapter(), nil
	case common.ShardTypeLocalIIDManager, common.ShardTypeRemoteIIDManager:
		return NewIDManagerServerAdapter(), nil
	default:
		return nil, fmt.Errorf("invalid shard type: %s", t)
	}
}

// createShard creates the store of one shard
func (s *rpcServer) createShard(shardConfig common.ServerShard) (serverShard, error) {
	adapter, err := adapterFor(shardConfig.Type)
	if err != nil {
		return serverShard{}, err
	}

	shard := serverShard{ID: shardConfig.ShardID, Type: shardConfig.Type, Adapter: adapter}

	if !shardConfig.Type.IsRemote() {
		shard.Store, err = lstore.NewLocalStore(s.openLocalIndex, fmt.Sprintf("shard-%d", shardConfig.ShardID))
		if err != nil {
			return serverShard{}, fmt.Errorf("failed to open local store for shard %d: %w", shardConfig.ShardID, err)
		}
		Logger.Infof("created %s for shard %d", shardConfig.Type, shardConfig.ShardID)
		return shard, nil
	}

	if s.nodeHost == nil {
		return serverShard{}, fmt.Errorf("node host is nil, cannot create remote store")
	}

	// Start Raft for the shard
	if err := s.nodeHost.StartConcurrentReplica(
		s.config.ClusterMembers,
		false,
		dstore.CreateStateMachineFactory(s.openIndex),
		s.config.ToDragonboatConfig(shardConfig.ShardID),
	); err != nil {
		return serverShard{}, fmt.Errorf("failed to start shard %d: %w", shardConfig.ShardID, err)
	}

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second
	shard.Store = dstore.NewDistributedStore(s.nodeHost, shardConfig.ShardID, timeout)
	Logger.Infof("created %s for shard %d (replica %d)", shardConfig.Type, shardConfig.ShardID, s.config.ReplicaID)
	return shard, nil
}

func (s *rpcServer) init() error {
	if err := common.InitLoggers(s.config); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", s.config.String())

	if s.config.DataDir != "" {
		if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	seen := make(map[uint64]bool, len(s.config.Shards))
	for _, shardConfig := range s.config.Shards {
		if seen[shardConfig.ShardID] {
			return fmt.Errorf("duplicate shard id %d", shardConfig.ShardID)
		}
		seen[shardConfig.ShardID] = true
	}

	// Only create the NodeHost if we have remote shards
	if s.config.HasRemoteShard() {
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.mu.Lock()
		s.nodeHost = nodeHost
		s.mu.Unlock()
	}

	/*
		Note: A single RPC Server can have any number of remote and or local shards.
		Each shard is an index store or an id manager. The shards are created
		concurrently, the first failing shard aborts the setup.
	*/

	var g errgroup.Group
	for _, shardConfig := range s.config.Shards {
		g.Go(func() error {
			shard, err := s.createShard(shardConfig)
			if err != nil {
				return err
			}
			s.shards.Store(shard.ID, shard)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	Logger.Infof("dIdx setup completed successfully (%d shards)", s.shards.Size())

	s.registerTransportHandler()
	return nil
}

// sortedShards returns all shards ordered by id
func (s *rpcServer) sortedShards() []serverShard {
	shards := make([]serverShard, 0, s.shards.Size())
	s.shards.Range(func(_ uint64, shard serverShard) bool {
		shards = append(shards, shard)
		return true
	})
	sort.Slice(shards, func(i, j int) bool { return shards[i].ID < shards[j].ID })
	return shards
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer.
// If an admin endpoint is configured, the admin http api is started as well.
// Serve blocks until Close is called.
func (s *rpcServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}

	if s.config.AdminEndpoint != "" {
		admin := &http.Server{
			Addr:              s.config.AdminEndpoint,
			Handler:           s.adminRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.mu.Lock()
		s.admin = admin
		s.mu.Unlock()

		go func() {
			AdminLogger.Infof("Starting admin api on %s", s.config.AdminEndpoint)
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				AdminLogger.Errorf("admin api stopped: %v", err)
			}
		}()
	}

	return s.transport.Listen(s.config)
}

// Close stops the transport and the admin api and closes all shards
func (s *rpcServer) Close() error {
	var errs []error
	if err := s.transport.Close(); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.admin != nil {
		if err := s.admin.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.nodeHost != nil {
		// closes the state machines and their indexes
		s.nodeHost.Close()
		s.nodeHost = nil
	}

	for _, database := range s.locals {
		if err := database.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.locals = nil

	if len(errs) > 0 {
		return fmt.Errorf("failed to close server: %v", errs)
	}
	return nil
}
