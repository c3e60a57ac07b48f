package db

import (
	"errors"
	"io"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplRBIdx Implementation = "rbidx"
)

var (
	// ErrDuplicateKey is returned by Add when the key is already indexed.
	ErrDuplicateKey = errors.New("db: duplicate key")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("db: closed")
	// ErrTimeout is returned when a request was not answered in time.
	ErrTimeout = errors.New("db: request timed out")
	// ErrUnsupported is returned for operations an implementation does not offer.
	ErrUnsupported = errors.New("db: operation not supported")
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureAdd    Feature = 1 << iota // Support for Add operations
	FeatureDelete                     // Support for Delete operations
	FeatureHas                        // Support for Has operations
	FeatureLen                        // Support for Len operations
	FeatureRange                      // Support for Range operations
	FeatureDump                       // Support for Dump operations
	FeatureCheck                      // Support for Check operations
	FeatureSave                       // Support for Save operations
	FeatureLoad                       // Support for Load operations
)

// AllFeatures lists every known feature flag in declaration order.
var AllFeatures = []Feature{
	FeatureAdd, FeatureDelete, FeatureHas, FeatureLen, FeatureRange,
	FeatureDump, FeatureCheck, FeatureSave, FeatureLoad,
}

func (f Feature) String() string {
	switch f {
	case FeatureAdd:
		return "Add"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureLen:
		return "Len"
	case FeatureRange:
		return "Range"
	case FeatureDump:
		return "Dump"
	case FeatureCheck:
		return "Check"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// IndexDB defines an interface for ordered index implementations over unsigned 64 bit keys.
// Every key is stored at most once. Implementations can vary in their feature support,
// which can be queried with SupportsFeature.
type IndexDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Add inserts key. If the key already exists, ErrDuplicateKey is returned and the index is unchanged.
	// The writeIndex parameter is used as a logical timestamp for the write.
	Add(key uint64, writeIndex uint64) (err error)

	// Delete removes key. Deleting a key that does not exist is not an error.
	// The writeIndex parameter is used as a logical timestamp for the write.
	Delete(key uint64, writeIndex uint64) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Has checks whether a key exists in the index.
	Has(key uint64) (ok bool, err error)

	// Len returns the number of keys in the index.
	Len() (n uint64, err error)

	// Range returns the keys in [from, to] in ascending order.
	// At most limit keys are returned; limit <= 0 means no limit.
	Range(from, to uint64, limit int) (keys []uint64, err error)

	// --------------------------------------------------------------------------
	// Diagnostic Operations
	// --------------------------------------------------------------------------

	// Dump writes the internal structure of the index as a Graphviz digraph.
	Dump(w io.Writer) (err error)

	// Check verifies the structural invariants of the index.
	Check() (err error)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the index to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load replaces the index state with data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Returns true if the feature is supported, false otherwise.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// --------------------------------------------------------------------------
	// Write Index Operations
	// --------------------------------------------------------------------------

	// SetWriteIdx sets the current index of the database only if the provided index is greater than the current index.
	SetWriteIdx(index uint64)

	// WriteIdx returns the current index of the database .
	WriteIdx() (index uint64)

	// Close closes the database.
	Close() (err error)
}
