package internal

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTHas       QueryType = iota // Check if a key is in the index.
	QueryTLen                        // Count the keys in the index.
	QueryTRange                      // List keys in a closed interval.
	QueryTDump                       // Render the tree structure as Graphviz digraph.
	QueryTGetDBInfo                  // Retrieve metadata about the database underlying the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTHas:
		return "Has"
	case QueryTLen:
		return "Len"
	case QueryTRange:
		return "Range"
	case QueryTDump:
		return "Dump"
	case QueryTGetDBInfo:
		return "GetDBInfo"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or ReadStale.
// The result types are bool (Has), uint64 (Len), []uint64 (Range), []byte (Dump)
// and db.DatabaseInfo (GetDBInfo).
type Query struct {
	Type  QueryType // The type of Query to perform.
	Key   uint64    // The key for Has, the lower bound for Range.
	To    uint64    // The upper bound for Range.
	Limit int       // The maximum number of keys returned by Range (<= 0 for no limit).
}
