package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for an algorithm migration without colliding with old hashes.
const (
	DomainSnapshot = "lycaon/snapshot/v1"
	DomainTrace    = "lycaon/trace/v1"
)

// HashWithDomain computes SHA256(domain || 0x00 || data). The null
// separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TraceID computes the content-addressed ID of one dispatch trace record.
func TraceID(gameID string, day int, trigger string, payload map[string]any) (string, error) {
	obj := map[string]any{
		"game_id": gameID,
		"day":     day,
		"trigger": trigger,
		"payload": payload,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("trace id: %w", err)
	}
	return HashWithDomain(DomainTrace, canonical), nil
}
