package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dIdx/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   uint64 `json:"key,omitempty"`   // Used for: Add, Delete, Has, Reserve, Release (request), Allocate (response)
	From  uint64 `json:"from,omitempty"`  // Used for: Range (request)
	To    uint64 `json:"to,omitempty"`    // Used for: Range (request)
	Limit int64  `json:"limit,omitempty"` // Used for: Range (request), <= 0 means no limit

	// Response only fields
	Keys  []uint64 `json:"keys,omitempty"`  // Used for: Range responses
	Count uint64   `json:"count,omitempty"` // Used for: Len responses
	Value []byte   `json:"value,omitempty"` // Used for: Dump (graphviz) and Info (json) responses
	Ok    bool     `json:"ok,omitempty"`    // Used for: Has, Reserve, Release responses
	Code  uint64   `json:"code,omitempty"`  // store.RetCode of the error, 0 on success
	Err   string   `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// withErr sets the error fields of a response
func (m *Message) withErr(err error) *Message {
	if err != nil {
		m.Err = err.Error()
		m.Code = uint64(store.CodeOf(err))
	}
	return m
}

// --------------------------------------------------------------------------
// Message Factory Functions (index)
// --------------------------------------------------------------------------

// NewIdxAddRequest creates a new Add request
func NewIdxAddRequest(key uint64) *Message {
	return &Message{MsgType: MsgTIdxAdd, Key: key}
}

// NewIdxAddResponse creates a new Add response
func NewIdxAddResponse(err error) *Message {
	return (&Message{MsgType: MsgTIdxAdd}).withErr(err)
}

// NewIdxDeleteRequest creates a new Delete request
func NewIdxDeleteRequest(key uint64) *Message {
	return &Message{MsgType: MsgTIdxDelete, Key: key}
}

// NewIdxDeleteResponse creates a new Delete response
func NewIdxDeleteResponse(err error) *Message {
	return (&Message{MsgType: MsgTIdxDelete}).withErr(err)
}

// NewIdxHasRequest creates a new Has request
func NewIdxHasRequest(key uint64) *Message {
	return &Message{MsgType: MsgTIdxHas, Key: key}
}

// NewIdxHasResponse creates a new Has response
func NewIdxHasResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTIdxHas, Ok: ok}).withErr(err)
}

// NewIdxLenRequest creates a new Len request
func NewIdxLenRequest() *Message {
	return &Message{MsgType: MsgTIdxLen}
}

// NewIdxLenResponse creates a new Len response
func NewIdxLenResponse(n uint64, err error) *Message {
	return (&Message{MsgType: MsgTIdxLen, Count: n}).withErr(err)
}

// NewIdxRangeRequest creates a new Range request for the keys in [from, to]
func NewIdxRangeRequest(from, to uint64, limit int) *Message {
	return &Message{MsgType: MsgTIdxRange, From: from, To: to, Limit: int64(limit)}
}

// NewIdxRangeResponse creates a new Range response
func NewIdxRangeResponse(keys []uint64, err error) *Message {
	return (&Message{MsgType: MsgTIdxRange, Keys: keys}).withErr(err)
}

// NewIdxDumpRequest creates a new Dump request
func NewIdxDumpRequest() *Message {
	return &Message{MsgType: MsgTIdxDump}
}

// NewIdxDumpResponse creates a new Dump response carrying the graphviz digraph
func NewIdxDumpResponse(dot []byte, err error) *Message {
	return (&Message{MsgType: MsgTIdxDump, Value: dot}).withErr(err)
}

// NewIdxInfoRequest creates a new Info request
func NewIdxInfoRequest() *Message {
	return &Message{MsgType: MsgTIdxInfo}
}

// NewIdxInfoResponse creates a new Info response carrying the json encoded db.DatabaseInfo
func NewIdxInfoResponse(info []byte, err error) *Message {
	return (&Message{MsgType: MsgTIdxInfo, Value: info}).withErr(err)
}

// --------------------------------------------------------------------------
// Message Factory Functions (id manager)
// --------------------------------------------------------------------------

// NewIDAllocateRequest creates a new Allocate request
func NewIDAllocateRequest() *Message {
	return &Message{MsgType: MsgTIDAllocate}
}

// NewIDAllocateResponse creates a new Allocate response
func NewIDAllocateResponse(id uint64, err error) *Message {
	return (&Message{MsgType: MsgTIDAllocate, Key: id}).withErr(err)
}

// NewIDReserveRequest creates a new Reserve request
func NewIDReserveRequest(id uint64) *Message {
	return &Message{MsgType: MsgTIDReserve, Key: id}
}

// NewIDReserveResponse creates a new Reserve response
func NewIDReserveResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTIDReserve, Ok: ok}).withErr(err)
}

// NewIDReleaseRequest creates a new Release request
func NewIDReleaseRequest(id uint64) *Message {
	return &Message{MsgType: MsgTIDRelease, Key: id}
}

// NewIDReleaseResponse creates a new Release response
func NewIDReleaseResponse(ok bool, err error) *Message {
	return (&Message{MsgType: MsgTIDRelease, Ok: ok}).withErr(err)
}

// --------------------------------------------------------------------------
// Message Factory Functions (general)
// --------------------------------------------------------------------------

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{MsgType: MsgTCustom, Meta: meta}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	return (&Message{MsgType: MsgTCustom, Meta: meta}).withErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err error) *Message {
	return (&Message{MsgType: MsgTError}).withErr(err)
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTIdxAdd    // Insert a key
	MsgTIdxDelete // Delete a key
	MsgTIdxHas    // Check if a key exists
	MsgTIdxLen    // Count the keys
	MsgTIdxRange  // List keys in an interval
	MsgTIdxDump   // Render the tree as graphviz digraph
	MsgTIdxInfo   // Metadata of the index

	// IIDManager operations

	MsgTIDAllocate // Allocate a random id
	MsgTIDReserve  // Reserve a given id
	MsgTIDRelease  // Release an id

	// Custom operations

	MsgTCustom // Custom operation type

	msgTCount // number of message types, keep last
)

var msgTypeNames = [msgTCount]string{
	MsgTUnknown:    "unknown",
	MsgTSuccess:    "success",
	MsgTError:      "error",
	MsgTIdxAdd:     "idx_add",
	MsgTIdxDelete:  "idx_delete",
	MsgTIdxHas:     "idx_has",
	MsgTIdxLen:     "idx_len",
	MsgTIdxRange:   "idx_range",
	MsgTIdxDump:    "idx_dump",
	MsgTIdxInfo:    "idx_info",
	MsgTIDAllocate: "id_allocate",
	MsgTIDReserve:  "id_reserve",
	MsgTIDRelease:  "id_release",
	MsgTCustom:     "custom",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if t >= msgTCount {
		return "unknown"
	}
	return msgTypeNames[t]
}

// ParseMessageType returns the MessageType with the given name.
func ParseMessageType(s string) (MessageType, error) {
	for t, name := range msgTypeNames {
		if name == s {
			return MessageType(t), nil
		}
	}
	return MsgTUnknown, fmt.Errorf("unknown message type: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
