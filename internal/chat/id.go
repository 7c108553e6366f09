package chat

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix tags locally generated message ids. Backend ids never carry it.
const TempIDPrefix = "tmp-"

// NewTempID returns a fresh temporary message id.
func NewTempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether id belongs to the temporary id space.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
