package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// The service logs line-delimited JSON on stdout. Request completions and
// audit events share one logger so their output interleaves cleanly.
var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide line logger. Tests redirect it with
// SetOutput to capture entries.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// Emit serializes entry as one JSON line. An entry that cannot be serialized
// degrades to a fixed error line instead of being dropped silently.
func Emit(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"unserializable log entry"}`)
		return
	}
	Logger().Println(string(data))
}
