package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := GenerateToken("secret", id, "admin", time.Hour)
	require.NoError(t, err)

	subject, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, id, subject.MemberID)
	assert.Equal(t, "admin", subject.Role)
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	id := uuid.New()

	token, err := GenerateToken("secret", id, "member", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("other", token)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", id, "member", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParsePagination(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest("GET", "/?page=3&limit=10", nil))
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 3, Limit: 10, Offset: 20}, got)

	_, err = app.Test(httptest.NewRequest("GET", "/?page=-1&limit=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Offset: 0}, got)

	_, err = app.Test(httptest.NewRequest("GET", "/?limit=5000", nil))
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, got.Limit)
}
