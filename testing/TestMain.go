// Package testing flags the process as a test run. Test files import it for
// its side effect.
package testing

import (
	"os"
	stdtesting "testing"
)

// testModeEnv mirrors app.TestModeEnv; importing app here would create an
// import cycle for app's own tests.
const testModeEnv = "HRFORMS_TEST_MODE"

func init() {
	_ = os.Setenv(testModeEnv, "1")
}

// TestMain runs m with the test-mode flag set.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
