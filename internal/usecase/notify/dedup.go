package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"casetrack/internal/domain/entity"
)

// Deduper claims a key for a time window. Claim returns false when the key
// was already claimed and has not expired. Release gives a claim back so
// the caller can retry a notification that was never handed off.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// DedupKey identifies a notification by type, case and rendered text.
func DedupKey(n *entity.Notification) string {
	h := sha256.New()
	h.Write([]byte(n.Type))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(n.CaseID, 10)))
	h.Write([]byte{0})
	h.Write([]byte(n.Message))
	return "notify:dedup:" + hex.EncodeToString(h.Sum(nil))
}
