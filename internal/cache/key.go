package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// keyPayload is the canonical serialization input. encoding/json writes map
// keys in sorted order and renders integral floats and ints identically, so
// logically equal parameter sets produce byte-identical serializations.
type keyPayload struct {
	Event  api.Event              `json:"event"`
	Params map[string]interface{} `json:"params"`
}

// Key derives the cache key for an operation from its normalized parameters.
// The serialization is hashed so raw query content never leaks into storage
// keys and key length stays fixed.
func Key(event api.Event, params map[string]interface{}) string {
	canonical, err := json.Marshal(keyPayload{Event: event, Params: params})
	if err != nil {
		canonical = []byte(fmt.Sprintf("%s|%v", event, params))
	}
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("oc:%s:%s", event, hex.EncodeToString(sum[:]))
}
