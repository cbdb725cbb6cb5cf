package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripIsURLSafe(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 2, 14, 9, 30, 0, 123456789, time.FixedZone("CET", 3600)),
		ID:        uuid.MustParse("5f0c6b5e-8b0e-4f7a-9d53-0d6c0f6e7a11"),
	}

	token := cursor.Encode()
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	parsed, err := ParseCursor(token)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, parsed.CreatedAt.Equal(cursor.CreatedAt))
	assert.Equal(t, cursor.ID, parsed.ID)
}

func TestParseCursorBlankAndInvalid(t *testing.T) {
	parsed, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = ParseCursor("%%%")
	assert.Error(t, err)

	_, err = ParseCursor(Cursor{ID: uuid.New()}.Encode()[:6])
	assert.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestSplit(t *testing.T) {
	key := func(n int) Cursor { return Cursor{ID: uuid.NewSHA1(uuid.Nil, []byte{byte(n)})} }

	page, next := Split([]int{1, 2, 3}, 2, key)
	assert.Equal(t, []int{1, 2}, page)
	require.NotNil(t, next)
	assert.Equal(t, key(3).ID, next.ID)

	page, next = Split([]int{1, 2}, 2, key)
	assert.Equal(t, []int{1, 2}, page)
	assert.Nil(t, next)
}
