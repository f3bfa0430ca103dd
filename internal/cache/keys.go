package cache

import (
	"fmt"
	"time"
)

const (
	profileKeyPrefix = "profile:%s"
	viewKeyPrefix    = "view:%s:%s:%s"
)

// ProfileTTL bounds how stale a cached profile can be.
const ProfileTTL = 5 * time.Minute

// ProfileKey is the cache key of a single profile.
func ProfileKey(id string) string {
	return fmt.Sprintf(profileKeyPrefix, id)
}

// ViewKey is the key under which the last successfully computed view is kept.
// param is the view's subject (a post id, a counterparty id) and may be empty.
func ViewKey(view, viewerID, param string) string {
	return fmt.Sprintf(viewKeyPrefix, view, viewerID, param)
}
