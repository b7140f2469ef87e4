package token

import (
	"encoding/json"
	"time"

	"github.com/lestrrat-go/jwx/v3"
	"github.com/lestrrat-go/jwx/v3/jws"

	"github.com/huzilerz/session-core/internal/errors"
	"github.com/huzilerz/session-core/internal/model"
)

// Default expiry safety skew ; refresh triggers slightly
// before the actual [exp] date.
const DefaultSkew = 30 * time.Second

// Indicates a bearer string that is not a decodable token.
// Callers MUST treat it as "no session", never as a fatal
// error state ; corrupted input fails open to logged-out.
var ErrTokenMalformed = errors.Unauthorized(
	errors.Status("TOKEN_MALFORMED"),
	errors.Message("session: token is malformed"),
)

// Codec decodes the bearer token payload claims.
type Codec struct {
	clock model.Clock
	skew  time.Duration
}

type Option func(c *Codec)

// WithClock overrides the time source. Testing aid.
func WithClock(clock model.Clock) Option {
	return func(c *Codec) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSkew overrides the expiry safety skew.
func WithSkew(skew time.Duration) Option {
	return func(c *Codec) {
		if skew >= 0 {
			c.skew = skew
		}
	}
}

// InsecureCodec builds a payload-only token codec.
// INSECURE by contract: the compact form is parsed and its
// payload JSON-decoded, but the cryptographic signature is
// NEVER validated here ; verification belongs server-side.
func InsecureCodec(opts ...Option) *Codec {
	codec := &Codec{
		clock: model.LocalTime,
		skew:  DefaultSkew,
	}
	for _, option := range opts {
		option(codec)
	}
	return codec
}

// Decode extracts claims from the [bearer] compact form.
// Returns ErrTokenMalformed on any undecodable input.
func (c *Codec) Decode(bearer string) (*model.Claims, error) {

	// Accept: JWT compact !
	// Format;JWS:  base64:{protected;header}.base64:{payload;jwt}.base64:signature
	compact := []byte(bearer)

	// JWTs are almost always JWS signed
	if jwx.GuessFormat(compact) != jwx.JWS {
		// Supposed to be NOT a JWT compact token form !
		return nil, ErrTokenMalformed
	}

	message, err := jws.Parse(
		compact,
		jws.WithCompact(),
	)

	if err != nil {
		return nil, ErrTokenMalformed
	}

	var claims model.Claims
	if err = json.Unmarshal(message.Payload(), &claims); err != nil {
		return nil, ErrTokenMalformed
	}

	if claims.UserID == 0 || claims.ExpiresAt == 0 {
		// decoded -but- not our payload shape
		return nil, ErrTokenMalformed
	}

	return &claims, nil
}

// Expired reports whether [claims] are past the [exp] date
// minus the safety skew. Nil claims count as expired.
func (c *Codec) Expired(claims *model.Claims) bool {
	if claims == nil || claims.ExpiresAt == 0 {
		return true
	}
	deadline := claims.Expires().Add(-c.skew)
	return !c.clock.Now().Before(deadline)
}

// Skew returns the configured expiry safety skew.
func (c *Codec) Skew() time.Duration {
	return c.skew
}
