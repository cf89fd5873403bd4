package app

import (
	"os"
	"sync/atomic"
)

// testMode caches the FIBRA_TEST_MODE flag so hot paths avoid repeated
// environment lookups.
var testMode atomic.Bool

func init() {
	RefreshTestMode()
}

// InTestMode reports whether the process should skip runtime side effects
// such as opening real SMTP or broker connections.
func InTestMode() bool {
	return testMode.Load()
}

// RefreshTestMode re-reads the environment. Test harnesses call this after
// setting the flag, since init ordering may have cached a stale value.
func RefreshTestMode() {
	testMode.Store(os.Getenv("FIBRA_TEST_MODE") == "1")
}
