package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

// ObjectStore abstracts the blob store holding uploaded note files.
// Presigned locations are time limited; Delete is expected to be idempotent.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error)
	PresignDownload(ctx context.Context, key string) (string, time.Time, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "uploads/"

// BuildKey derives an object key for a fresh upload. The timestamp prefix keeps
// keys unique across files sharing a name.
func BuildKey(originalName string, now time.Time) string {
	return fmt.Sprintf("%s%d_%s", keyPrefix, now.Unix(), SanitizeName(originalName))
}

// SanitizeName strips path separators and characters unsafe for object keys and
// archive entry names.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" || cleaned == "." {
		return "file"
	}
	return cleaned
}
