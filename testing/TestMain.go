// Package testing flips the application into test mode for any test binary
// that blank-imports it, so handlers skip external side effects.
package testing

import (
	"os"
	stdtesting "testing"

	"github.com/fibra-studio/fibra-core/internal/app"
)

func init() {
	_ = os.Setenv("FIBRA_TEST_MODE", "1")
	app.RefreshTestMode()
}

func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
