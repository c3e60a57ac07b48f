package serializer

import "github.com/ValentinKolb/dIdx/rpc/common"

// IRPCSerializer converts Messages to and from the payload of a transport frame.
// Client and server must use the same implementation.
type IRPCSerializer interface {
	// Serialize encodes msg. The returned slice is owned by the caller.
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg. It fails on truncated or malformed input.
	Deserialize(b []byte, msg *common.Message) error
}
