// Package blob abstracts the object-storage capability used for video
// and thumbnail binaries.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store is an opaque object-storage capability. Keys are opaque strings;
// callers construct them with NewKey.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PublicURL(key string) string
	DeletePrefix(ctx context.Context, prefix string) error
}

// NewKey builds a storage key of the form {ownerID}/{uuid}-{name}.
// The generated id, rather than a wall-clock timestamp, makes keys
// unique even under concurrent uploads from one owner.
func NewKey(ownerID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return fmt.Sprintf("%s/%s-%s", ownerID, uuid.NewString(), name)
}
