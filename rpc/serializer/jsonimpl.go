package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/dIdx/rpc/common"
	"github.com/pkg/errors"
)

// NewJSONSerializer creates a serializer producing human readable json.
// Message types are encoded by name (e.g. "idx_add"), see common.MessageType.
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

// jsonSerializerImpl implements IRPCSerializer with encoding/json
type jsonSerializerImpl struct{}

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	return b, errors.Wrap(err, "json: encode message")
}

func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return errors.Wrap(json.Unmarshal(b, msg), "json: decode message")
}
