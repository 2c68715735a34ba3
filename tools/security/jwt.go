package security

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"relaygate/tools/ids"
)

// Options controls signing and TTL parameters.
type Options struct {
	Secret []byte        // HMAC key (env/KMS in production)
	Alg    string        // HS256/HS384/HS512 (default HS256)
	TTL    time.Duration // token validity (default 2h)
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

// TokenClaims is the verified view of a bearer token.
type TokenClaims struct {
	UserID    int64
	TokenID   string // jti; keys the revocation store and the session key
	ExpiresAt time.Time
	Scopes    []string
}

// Generate mints a token for userID. The jti is freshly generated so each
// issued token derives a distinct session key.
func Generate(opts Options, userID int64, scopes []string) (token string, tokenID string, expireAt time.Time, err error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)
	jti := ids.GenerateString()

	claims := jwtlib.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"jti": jti,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	if len(scopes) > 0 {
		claims["scope"] = scopes
	}

	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, exp, nil
}

// Verify checks signature and time claims and returns the typed claims.
// A token without sub or jti verifies the signature but still fails here.
func Verify(opts Options, token string) (*TokenClaims, error) {
	if _, err := signingMethod(opts.Alg); err != nil {
		return nil, err
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only; reject alg confusion.
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("claims type mismatch")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("missing sub claim")
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, errors.New("sub is not a user id")
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, errors.New("missing jti claim")
	}

	out := &TokenClaims{UserID: uid, TokenID: jti}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if raw, ok := claims["scope"].([]any); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				out.Scopes = append(out.Scopes, str)
			}
		}
	}
	return out, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
