package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarKey(t *testing.T) {
	key, err := AvatarKey(42, "image/PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "avatars/42/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	again, err := AvatarKey(42, "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, key, again)

	_, err = AvatarKey(42, "application/pdf")
	assert.Error(t, err)
}
