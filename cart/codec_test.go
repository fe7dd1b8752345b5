package cart

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "cart-test-secret"

// signRaw builds a validly signed token around an arbitrary payload.
func signRaw(t *testing.T, payload []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cartClaims{
		Items: base64.RawURLEncoding.EncodeToString(payload),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestCodecRoundTripKeepsOrder(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	token, err := codec.Encode(ids)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, ids, codec.Decode(token))

	reversed := []uuid.UUID{ids[3], ids[2], ids[1], ids[0]}
	token, err = codec.Encode(reversed)
	require.NoError(t, err)
	assert.Equal(t, reversed, codec.Decode(token))
}

func TestCodecEmptyCart(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	token, err := codec.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "", token)
	assert.Empty(t, codec.Decode(""))
}

func TestCodecDecodeIsFailSoft(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)
	valid, err := codec.Encode([]uuid.UUID{uuid.New()})
	require.NoError(t, err)

	foreign, err := NewCodec("someone-else", time.Hour).Encode([]uuid.UUID{uuid.New()})
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	otherPayload := strings.Split(foreign, ".")[1]
	tampered := parts[0] + "." + otherPayload + "." + parts[2]

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, cartClaims{Items: "AAAA"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":        "definitely-not-a-token",
		"truncated":      valid[:len(valid)-5],
		"tampered":       tampered,
		"foreign secret": foreign,
		"alg none":       unsigned,
		"bad length":     signRaw(t, make([]byte, 15)),
		"bad base64":     signRawItems(t, "!!!"),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Empty(t, codec.Decode(token))
			})
		})
	}
}

func signRawItems(t *testing.T, items string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cartClaims{Items: items}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestCodecExpiredTokenIsEmpty(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	codec.now = func() time.Time { return issued }

	token, err := codec.Encode([]uuid.UUID{uuid.New()})
	require.NoError(t, err)

	codec.now = time.Now
	assert.Empty(t, codec.Decode(token))
}

func TestCodecDropsDuplicatesAndNil(t *testing.T) {
	codec := NewCodec(testSecret, 0)
	a, b := uuid.New(), uuid.New()

	var payload []byte
	for _, id := range []uuid.UUID{a, uuid.Nil, b, a} {
		payload = append(payload, id[:]...)
	}

	assert.Equal(t, []uuid.UUID{a, b}, codec.Decode(signRaw(t, payload)))
}
