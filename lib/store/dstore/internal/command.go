package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dIdx/lib/db"
)

// CommandSize is the size of a serialized command in bytes
const CommandSize = 1 + 8 // Type + Key

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTAdd    CommandType = iota // Insert a key.
	CommandTDelete                    // Delete a key.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTAdd:
		return "Add"
	case CommandTDelete:
		return "Delete"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// ToDBFeature converts a CommandType to the corresponding db.Feature.
// This can be used for checking if the database supports a certain operation.
func (ct CommandType) ToDBFeature() (db.Feature, error) {
	switch ct {
	case CommandTAdd:
		return db.FeatureAdd, nil
	case CommandTDelete:
		return db.FeatureDelete, nil
	default:
		return 0, fmt.Errorf("unknown command type %d", ct)
	}
}

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type CommandType
	Key  uint64
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for the key (big endian)
func (command *Command) Serialize() []byte {
	result := make([]byte, CommandSize)
	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], command.Key)
	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) != CommandSize {
		return fmt.Errorf("invalid command length %d", len(data))
	}
	command.Type = CommandType(data[0])
	command.Key = binary.BigEndian.Uint64(data[1:9])
	return nil
}
