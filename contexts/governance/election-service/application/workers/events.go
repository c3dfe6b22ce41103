package workers

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"agora/contexts/governance/election-service/ports"
)

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
