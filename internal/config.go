package internal

import (
	"fmt"
	"time"
)

// Config is read from the environment by github.com/Netflix/go-env,
// after an optional .env file.
type Config struct {
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	HistoryCapacity      int           `env:"HISTORY_CAPACITY,default=100"`
	PageSize             int           `env:"PAGE_SIZE,default=20"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	JournalBufferSize    int           `env:"JOURNAL_BUFFER_SIZE,default=1024"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	JournalPath          string        `env:"JOURNAL_PATH"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	ModerationEnabled    bool          `env:"MODERATION_ENABLED,default=true"`
	CharReplacement      string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	MaxAttachmentBytes   int           `env:"MAX_ATTACHMENT_BYTES,default=5242880"`
	ReadLimit            int64         `env:"READ_LIMIT,default=8388608"`
	ViewerPort           int           `env:"VIEWER_PORT,default=8081"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
