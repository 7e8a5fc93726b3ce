package distributed

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"time"
)

// generateInstanceID creates a unique identifier for this application instance.
func generateInstanceID() string {
	hostname, _ := os.Hostname()

	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)

	return fmt.Sprintf("%s-%d-%x", hostname, os.Getpid(), randomBytes)
}

// keys are the Redis keys shared by all instances of one limiter.
type keys struct {
	window    string
	config    string
	stats     string
	instances string
}

func redisKeys(prefix string) keys {
	return keys{
		window:    prefix + ":window",
		config:    prefix + ":config",
		stats:     prefix + ":stats",
		instances: prefix + ":instances",
	}
}

// windowKey returns the counter key of the one-second window containing t.
func windowKey(prefix string, t time.Time) string {
	return prefix + ":" + strconv.FormatInt(t.Unix(), 10)
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
