package app

import (
	"os"
	"sync"
)

// TestModeEnv is set by the testing package so binaries built into test
// processes skip opening network listeners.
const TestModeEnv = "HRFORMS_TEST_MODE"

var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether the process runs under go test.
func InTestMode() bool {
	return inTestMode()
}
