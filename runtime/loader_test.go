package runtime

import (
	"chat-relay/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	folder := fstest.MapFS{
		"censored/en.txt":    {Data: []byte("snake\r\nbadger\n\nbadger\n")},
		"censored/fr.txt":    {Data: []byte("  blaireau  \n")},
		"censored/README.md": {Data: []byte("ignored")},
	}

	data, err := NewCensoredLoader(folder).LoadAll("censored")

	req.NoError(err)
	req.Equal([]string{"en", "fr"}, data.Languages)
	req.Equal([]string{"badger", "blaireau", "snake"}, data.Words)
}

func TestCensoredLoader_LoadAll_Errors(t *testing.T) {
	req := require.New(t)

	_, err := NewCensoredLoader(fstest.MapFS{
		"censored/en.txt": {Data: []byte("\n \n")},
	}).LoadAll("censored")
	req.ErrorIs(err, errors.ErrEmptyWords)

	_, err = NewCensoredLoader(fstest.MapFS{
		"censored/nested/en.txt": {Data: []byte("badger")},
	}).LoadAll("censored")
	req.ErrorIs(err, errors.ErrOnlyCensoredFiles)
}

func TestCensoredLoader_Embedded(t *testing.T) {
	req := require.New(t)

	data, err := NewCensoredLoader(CensoredFolder).LoadAll("censored")

	req.NoError(err)
	req.Contains(data.Languages, "en")
	req.NotEmpty(data.Words)
}
