package cart

import (
	"encoding/base64"
	"time"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const idSize = len(uuid.UUID{})

// Codec turns an ordered set of game ids into a signed token and back.
//
// The token is an HS256 JWT. Its "itm" claim holds the raw 16-byte ids,
// concatenated in cart order and base64url encoded without padding.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type cartClaims struct {
	Items string `json:"itm"`
	jwt.RegisteredClaims
}

// NewCodec returns a codec signing with secret. A zero ttl issues tokens
// that never expire.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Encode returns "" for an empty cart.
func (c *Codec) Encode(ids []uuid.UUID) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}

	payload := make([]byte, 0, len(ids)*idSize)
	for _, id := range ids {
		payload = append(payload, id[:]...)
	}

	now := c.now()
	claims := cartClaims{
		Items: base64.RawURLEncoding.EncodeToString(payload),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return signed, nil
}

// Decode never fails: a token that cannot be trusted is an empty cart.
func (c *Codec) Decode(token string) []uuid.UUID {
	if token == "" {
		return nil
	}
	ids, err := c.parse(token)
	if err != nil {
		utils.Log.WithError(err).Debug("Discarding cart token")
		return nil
	}
	return ids
}

func (c *Codec) parse(token string) ([]uuid.UUID, error) {
	var claims cartClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMalformed, "invalid cart token", err)
	}

	payload, err := base64.RawURLEncoding.DecodeString(claims.Items)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMalformed, "invalid cart payload", err)
	}
	if len(payload)%idSize != 0 {
		return nil, apperr.New(apperr.ErrMalformed, "truncated cart payload")
	}

	ids := make([]uuid.UUID, 0, len(payload)/idSize)
	seen := make(map[uuid.UUID]struct{}, len(payload)/idSize)
	for off := 0; off < len(payload); off += idSize {
		id, _ := uuid.FromBytes(payload[off : off+idSize])
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
