package common

import (
	"strings"
	"testing"
)

func TestParseShardType(t *testing.T) {
	for _, typ := range ShardTypes {
		parsed, err := ParseShardType(string(typ))
		if err != nil || parsed != typ {
			t.Errorf("ParseShardType(%q) = %q, %v", typ, parsed, err)
		}
	}
	if _, err := ParseShardType("lockmgr(lstore)"); err == nil {
		t.Errorf("expected error for unknown shard type")
	}
}

func TestHasRemoteShard(t *testing.T) {
	c := ServerConfig{Shards: []ServerShard{
		{ShardID: 1, Type: ShardTypeLocalIStore},
		{ShardID: 2, Type: ShardTypeLocalIIDManager},
	}}
	if c.HasRemoteShard() {
		t.Errorf("local shards reported as remote")
	}

	c.Shards = append(c.Shards, ServerShard{ShardID: 3, Type: ShardTypeRemoteIIDManager})
	if !c.HasRemoteShard() {
		t.Errorf("remote shard not detected")
	}
}

func TestServerConfigString(t *testing.T) {
	c := ServerConfig{
		Shards:         []ServerShard{{ShardID: 100, Type: ShardTypeRemoteIStore}},
		RTTMillisecond: 100,
		DataDir:        "data",
		ReplicaID:      2,
		ClusterMembers: map[uint64]string{2: "localhost:63002", 1: "localhost:63001"},
		TimeoutSecond:  5,
		Transport:      ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
		AdminEndpoint:  "0.0.0.0:9090",
		LogLevel:       "info",
	}

	s := c.String()
	for _, want := range []string{"0.0.0.0:8080", "0.0.0.0:9090", "dstore", "localhost:63002", "Election RTT"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() misses %q:\n%s", want, s)
		}
	}
	if strings.Index(s, "Node 1") > strings.Index(s, "Node 2") {
		t.Errorf("cluster members are not sorted:\n%s", s)
	}
}

func TestToDragonboatConfig(t *testing.T) {
	c := ServerConfig{ReplicaID: 3, SnapshotEntries: 10, CompactionOverhead: 5}
	dc := c.ToDragonboatConfig(100)
	if dc.ShardID != 100 || dc.ReplicaID != 3 || !dc.CheckQuorum {
		t.Errorf("unexpected config %+v", dc)
	}
	if dc.ElectionRTT != electionRTTFactor*dc.HeartbeatRTT {
		t.Errorf("election rtt %d is not %d heartbeats", dc.ElectionRTT, electionRTTFactor)
	}
}
