package idmgr

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// maxAttempts is the number of random ids Allocate draws before it gives up
const maxAttempts = 16

// randomID returns the first 8 bytes of a random (version 4) uuid
func randomID() uint64 {
	u := uuid.New()
	return binary.BigEndian.Uint64(u[:8])
}
