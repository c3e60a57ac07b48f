package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dIdx/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// headerSize is 1 byte for MsgType and 2 bytes for the flags
const headerSize = 3

// Bit flags to indicate which optional fields are present
const (
	hasKey   uint16 = 1 << 0
	hasFrom  uint16 = 1 << 1
	hasTo    uint16 = 1 << 2
	hasLimit uint16 = 1 << 3
	hasKeys  uint16 = 1 << 4
	hasCount uint16 = 1 << 5
	hasValue uint16 = 1 << 6
	hasOk    uint16 = 1 << 7 // no payload, the flag is the value
	hasCode  uint16 = 1 << 8
	hasErr   uint16 = 1 << 9
	hasMeta  uint16 = 1 << 10
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, headerSize, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags uint16

	// Fixed size fields
	if msg.Key != 0 {
		flags |= hasKey
		result = binary.BigEndian.AppendUint64(result, msg.Key)
	}
	if msg.From != 0 {
		flags |= hasFrom
		result = binary.BigEndian.AppendUint64(result, msg.From)
	}
	if msg.To != 0 {
		flags |= hasTo
		result = binary.BigEndian.AppendUint64(result, msg.To)
	}
	if msg.Limit != 0 {
		flags |= hasLimit
		result = binary.BigEndian.AppendUint64(result, uint64(msg.Limit))
	}

	// Keys: 4 bytes count, then 8 bytes per key
	if msg.Keys != nil {
		flags |= hasKeys
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Keys)))
		for _, k := range msg.Keys {
			result = binary.BigEndian.AppendUint64(result, k)
		}
	}

	if msg.Count != 0 {
		flags |= hasCount
		result = binary.BigEndian.AppendUint64(result, msg.Count)
	}
	if msg.Value != nil {
		flags |= hasValue
		result = appendBytes(result, msg.Value)
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Code != 0 {
		flags |= hasCode
		result = binary.BigEndian.AppendUint64(result, msg.Code)
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendBytes(result, []byte(msg.Err))
	}
	if msg.Meta != nil {
		flags |= hasMeta
		result = appendBytes(result, msg.Meta)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)
	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:3])
	r := reader{data: data, pos: headerSize}

	var err error
	if msg.Key, err = r.optUint64(flags&hasKey != 0, "key"); err != nil {
		return err
	}
	if msg.From, err = r.optUint64(flags&hasFrom != 0, "from"); err != nil {
		return err
	}
	if msg.To, err = r.optUint64(flags&hasTo != 0, "to"); err != nil {
		return err
	}
	limit, err := r.optUint64(flags&hasLimit != 0, "limit")
	if err != nil {
		return err
	}
	msg.Limit = int64(limit)

	msg.Keys = nil
	if flags&hasKeys != 0 {
		if msg.Keys, err = r.keys(); err != nil {
			return err
		}
	}

	if msg.Count, err = r.optUint64(flags&hasCount != 0, "count"); err != nil {
		return err
	}

	msg.Value = nil
	if flags&hasValue != 0 {
		if msg.Value, err = r.bytes("value"); err != nil {
			return err
		}
	}

	msg.Ok = flags&hasOk != 0

	if msg.Code, err = r.optUint64(flags&hasCode != 0, "code"); err != nil {
		return err
	}

	msg.Err = ""
	if flags&hasErr != 0 {
		e, err := r.bytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(e)
	}

	msg.Meta = nil
	if flags&hasMeta != 0 {
		if msg.Meta, err = r.bytes("meta"); err != nil {
			return err
		}
	}

	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize
	for _, v := range []uint64{msg.Key, msg.From, msg.To, uint64(msg.Limit), msg.Count, msg.Code} {
		if v != 0 {
			size += 8
		}
	}
	if msg.Keys != nil {
		size += 4 + 8*len(msg.Keys)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}
	return size
}

// appendBytes appends a 4 byte length prefix and the data
func appendBytes(dst, data []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(data)))
	return append(dst, data...)
}

// reader decodes fields from data and checks every read against its length
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

// optUint64 reads a uint64 if present is set and returns 0 otherwise
func (r *reader) optUint64(present bool, field string) (uint64, error) {
	if !present {
		return 0, nil
	}
	if r.remaining() < 8 {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) length(field string) (int, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("data too short for %s length", field)
	}
	n := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return int(n), nil
}

// bytes reads a length prefixed byte slice, an empty slice is not nil
func (r *reader) bytes(field string) ([]byte, error) {
	n, err := r.length(field)
	if err != nil {
		return nil, err
	}
	if n > r.remaining() {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

func (r *reader) keys() ([]uint64, error) {
	n, err := r.length("keys")
	if err != nil {
		return nil, err
	}
	if n > r.remaining()/8 {
		return nil, fmt.Errorf("data too short for %d keys", n)
	}
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = binary.BigEndian.Uint64(r.data[r.pos:])
		r.pos += 8
	}
	return keys, nil
}
