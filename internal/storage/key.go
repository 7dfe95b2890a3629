package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// NewKey builds a collision-free storage key for a vehicle attachment.
// The key embeds the vehicle ID for operator-friendly browsing and a random
// UUID so concurrent uploads of identically named files never clash. The
// original extension is kept so content sniffing and CDN rules keep working.
func NewKey(vehicleID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("vehicles/%d/%s%s", vehicleID, uuid.NewString(), ext)
}

// ValidKey reports whether the key is safe to hand to a backend. Keys are
// always server-generated, so anything with traversal segments is hostile.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
