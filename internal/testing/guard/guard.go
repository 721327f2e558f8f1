package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HVACDESK_TEST_MODE") == "" {
			_ = os.Setenv("HVACDESK_TEST_MODE", "1")
		}
	})
}
