package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.Equal(100, config.HistoryCapacity)
	req.Equal(20, config.PageSize)
	req.Equal(2*time.Second, config.SinkTimeout)
	req.True(config.ModerationEnabled)
	req.Empty(config.JournalPath)
	req.Nil(config.LimitMessages)
}

func TestConfig_FromEnvironment(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "9000")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("JOURNAL_PATH", "/tmp/journal")
	t.Setenv("LIMIT_MESSAGES", "50")
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.Equal("0.0.0.0:9000", config.Address())
	req.Equal("/tmp/journal", config.JournalPath)
	req.NotNil(config.LimitMessages)
	req.Equal(50, *config.LimitMessages)
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.Error(err)
	_, err = CharacterRune("")
	req.Error(err)
}
