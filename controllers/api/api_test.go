package api

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-tracker-backend/models/users"
)

func TestIssueAndParse(t *testing.T) {
	h := NewHandler(nil, nil, "secret")
	token, expires, err := h.issue(&users.User{ID: 7, Username: "alice"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), expires, 2*time.Second)

	claims, err := h.parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestParseRejectsExpired(t *testing.T) {
	h := NewHandler(nil, nil, "secret")
	h.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, _, err := h.issue(&users.User{ID: 7, Username: "alice"})
	require.NoError(t, err)

	_, err = h.parse(token)
	assert.Error(t, err)
}

func TestParseRejectsOtherKey(t *testing.T) {
	token, _, err := NewHandler(nil, nil, "one").issue(&users.User{ID: 7})
	require.NoError(t, err)

	_, err = NewHandler(nil, nil, "two").parse(token)
	assert.Error(t, err)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 7}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewHandler(nil, nil, "secret").parse(token)
	assert.Error(t, err)
}
