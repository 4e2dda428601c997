package apply

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/castsync/cast/pkg/header"
)

// conflictTimestampLayout matches the original implementation's
// YYYYMMDDHHMMSS conflict-file suffix.
const conflictTimestampLayout = "20060102150405"

// ConflictPath derives the sibling conflict-file path for destPath at
// the given time, never overwriting the destination.
func ConflictPath(destPath string, at time.Time) string {
	ext := filepath.Ext(destPath)
	base := strings.TrimSuffix(destPath, ext)
	return fmt.Sprintf("%s.conflicted-%s%s", base, at.Format(conflictTimestampLayout), ext)
}

// conflictHeader builds the header written into a materialized conflict
// file: the document's identifier is preserved, and a marker key plus
// timestamp are added so operator tooling can find and triage it.
func conflictHeader(id string, at time.Time) *header.Block {
	b := header.NewBlock()
	b.Set(header.KeyID, header.NewScalar(id))
	b.Set("cast-conflict", header.NewScalar("true"))
	b.Set("cast-conflict-at", header.NewScalar(at.UTC().Format(time.RFC3339)))
	return b
}

// CollisionPath derives the path a CREATE writes to when its natural
// destination path already exists under a different identifier,
// suffixing with the first 8 hex characters of the incoming identifier.
func CollisionPath(destPath, idHex8 string) string {
	ext := filepath.Ext(destPath)
	base := strings.TrimSuffix(destPath, ext)
	return fmt.Sprintf("%s.%s%s", base, idHex8, ext)
}
