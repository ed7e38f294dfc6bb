// Package util provides small shared helpers.
package util

import (
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// GenUUID generates a RFC 4122 UUID string.
func GenUUID() string {
	return uuid.New().String()
}

// GenShortUUID generates a compact URL-safe unique id, used where the full
// UUID form is unnecessarily long (blocked-slot ids, meeting uids).
func GenShortUUID() string {
	return shortuuid.New()
}
