package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the server util)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

// SocketConf holds the socket buffer sizes (0 keeps the system default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds options only applied to tcp connections
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 disables keep-alive
	TCPLingerSec    int // only values > 0 are applied
}

// ServerTransportConfig configures the server side of a transport
type ServerTransportConfig struct {
	Endpoint       string
	WorkersPerConn int // concurrent requests per connection, at least 1
	BufferSize     int // size of the pooled read buffers
	SocketConf
	TCPConf
}

// ClientTransportConfig configures the client side of a transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeLocalIStore      ServerShardType = "lstore"
	ShardTypeRemoteIStore     ServerShardType = "dstore"
	ShardTypeLocalIIDManager  ServerShardType = "idmgr(lstore)"
	ShardTypeRemoteIIDManager ServerShardType = "idmgr(dstore)"
)

// ShardTypes lists all shard types in the form accepted by ParseShardType
var ShardTypes = []ServerShardType{
	ShardTypeLocalIStore,
	ShardTypeRemoteIStore,
	ShardTypeLocalIIDManager,
	ShardTypeRemoteIIDManager,
}

// ParseShardType converts the textual shard type (e.g. "idmgr(lstore)") to a ServerShardType
func ParseShardType(s string) (ServerShardType, error) {
	for _, t := range ShardTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid shard type: %s (expected one of: dstore, lstore, idmgr(dstore), idmgr(lstore))", s)
}

// IsRemote returns true if the shard is replicated via raft
func (t ServerShardType) IsRemote() bool {
	return t == ShardTypeRemoteIStore || t == ShardTypeRemoteIIDManager
}

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type selects the store and the adapter of the shard
	Type ServerShardType
}

// ServerConfig holds all configuration parameters for the RPC server and the RAFT cluster.
type ServerConfig struct {
	// Shards served by this node
	Shards []ServerShard

	// Dragonboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string // index files and raft data
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// request timeout
	TimeoutSecond int64

	// RPC transport settings
	Transport ServerTransportConfig

	// Admin http api (empty disables it)
	AdminEndpoint string

	// Logging configuration
	LogLevel      string
	LogFile       string // empty logs to stdout only
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// HasRemoteShard checks if the configuration contains any remote shards
func (c *ServerConfig) HasRemoteShard() bool {
	for _, shard := range c.Shards {
		if shard.Type.IsRemote() {
			return true
		}
	}
	return false
}

// sectionWriter renders the String() output of the config types
type sectionWriter struct {
	sb strings.Builder
}

func (w *sectionWriter) section(title string) {
	w.sb.WriteString("\n")
	w.sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func (w *sectionWriter) field(name, value string) {
	w.sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	w := &sectionWriter{}

	// RPC settings
	w.section("RPC Server")
	w.field("Endpoint", c.Transport.Endpoint)
	w.field("Workers Per Connection", strconv.Itoa(max(1, c.Transport.WorkersPerConn)))
	w.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.AdminEndpoint != "" {
		w.field("Admin Endpoint", c.AdminEndpoint)
	}

	// Logging configuration
	w.section("Logging")
	w.field("Log Level", c.LogLevel)
	if c.LogFile != "" {
		w.field("Log File", c.LogFile)
		w.field("Rotation", fmt.Sprintf("%d MB, %d backups, %d days", c.LogMaxSizeMB, c.LogMaxBackups, c.LogMaxAgeDays))
	}

	// Storage
	w.section("Storage")
	w.field("Data Directory", c.DataDir)

	// Shards
	w.section("Shards")
	for _, shard := range c.Shards {
		w.field(strconv.FormatUint(shard.ShardID, 10), string(shard.Type))
	}

	if c.HasRemoteShard() {
		// Node Identity
		w.section("Node Identity")
		w.field("RAFT Address", c.ClusterMembers[c.ReplicaID])
		w.field("Node ID", strconv.FormatUint(c.ReplicaID, 10))

		// RAFT parameters
		w.section("RAFT Parameters")
		w.field("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
		w.field("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
		w.field("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
		w.field("Check Quorum", fmt.Sprintf("%t", true))
		w.field("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
		w.field("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))

		// Cluster configuration
		w.section("Cluster")
		w.sb.WriteString("  Initial Members:\n")

		// Sort keys for consistent output
		keys := make([]uint64, 0, len(c.ClusterMembers))
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			w.sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.ClusterMembers[k]))
		}
	}
	return w.sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	w := &sectionWriter{}

	// General Client Settings
	w.section("Client Configuration")
	w.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	w.field("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	w.field("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))

	// Endpoints
	w.section("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		w.field(strconv.Itoa(i), endpoint)
	}

	return w.sb.String()
}
