// Package framestore persists annotated frame JPEGs and hands back opaque ids.
package framestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Fetch when no frame exists for the id.
var ErrNotFound = errors.New("frame not found")

// KeyPrefix is the object-key prefix under which frames are stored.
const KeyPrefix = "frames/"

// FrameStore stores JPEG bytes and fetches them back by id.
type FrameStore interface {
	Store(ctx context.Context, jpeg []byte) (string, error)
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// NewFrameID returns an id of the form YYYYMMDD_HHMMSS_<8 hex>. Ids sort
// lexicographically by creation second.
func NewFrameID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s", now.Format("20060102_150405"), suffix)
}

// ObjectKey maps a frame id to its storage key.
func ObjectKey(id string) string {
	return KeyPrefix + id + ".jpg"
}
