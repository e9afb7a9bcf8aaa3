package utils

import (
	"os"
	"os/user"
	"sync"
)

var (
	identityOnce sync.Once
	localUser    string
	localHost    string
)

// LocalIdentity returns the account and host names stamped on audit
// entries. Lookups that fail yield empty strings. Both are resolved once
// per process.
func LocalIdentity() (username, hostname string) {
	identityOnce.Do(func() {
		if u, err := user.Current(); err == nil {
			localUser = u.Username
		}
		if h, err := os.Hostname(); err == nil {
			localHost = h
		}
	})
	return localUser, localHost
}
