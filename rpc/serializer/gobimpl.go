package serializer

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/ValentinKolb/dIdx/rpc/common"
	"github.com/pkg/errors"
)

// NewGOBSerializer creates a serializer using Go's gob format.
// Every message is a self-contained gob stream including the type description.
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{
		buffers: sync.Pool{New: func() any { return new(bytes.Buffer) }},
	}
}

// gobSerializerImpl implements IRPCSerializer with encoding/gob
type gobSerializerImpl struct {
	buffers sync.Pool
}

func (g *gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	buf := g.buffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer g.buffers.Put(buf)

	if err := gob.NewEncoder(buf).Encode(msg); err != nil {
		return nil, errors.Wrap(err, "gob: encode message")
	}
	// the buffer is reused, hand out a copy
	return bytes.Clone(buf.Bytes()), nil
}

func (g *gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(msg); err != nil {
		return errors.Wrap(err, "gob: decode message")
	}
	return nil
}
