package repo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckUploadPath(t *testing.T) {
	for _, p := range []string{"chat.txt", "dir/export.JSON", "a.b.Txt"} {
		assert.NoError(t, CheckUploadPath(p), p)
	}

	err := CheckUploadPath("photo.png")
	require.Error(t, err)
	var ue UnsupportedFileError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, ".png", ue.Ext)
	assert.Contains(t, err.Error(), `unsupported file type ".png"`)

	err = CheckUploadPath("README")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extension")
}

func TestUploadTitle(t *testing.T) {
	assert.Equal(t, "notes.txt", UploadTitle("/tmp/x/notes.txt"))
}
