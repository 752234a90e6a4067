package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex doc_01JB7Q6V7Z7K3D3QF6W3Y4H9XG
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_DOCUMENT        = "doc"
	UUID_PREFIX_LINE_ITEM       = "dli"
	UUID_PREFIX_SEQUENCE_CONFIG = "seq"
)
