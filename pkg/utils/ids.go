package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a prefixed identifier, e.g. "bid-3f2a...".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
