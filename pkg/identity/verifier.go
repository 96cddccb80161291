// Package identity turns a bearer credential into verified claims.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	ErrInvalidCredential = errors.New("invalid authentication credentials")
	ErrMissingEmail      = errors.New("token does not carry an email")
)

type Claims struct {
	Subject       string
	Email         string
	EmailVerified bool
}

type Verifier interface {
	Verify(ctx context.Context, bearer string) (*Claims, error)
}

// JWTVerifier accepts HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

type tokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) Verify(_ context.Context, bearer string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: JWT secret not configured", ErrInvalidCredential)
	}
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(bearer, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.Email == "" {
		return nil, ErrMissingEmail
	}
	return &Claims{
		Subject:       claims.Subject,
		Email:         strings.ToLower(claims.Email),
		EmailVerified: claims.EmailVerified,
	}, nil
}

// GoogleVerifier treats the bearer as a Google OAuth access token and resolves
// it through the userinfo endpoint. Results are cached briefly per token.
type GoogleVerifier struct {
	userInfoURL string
	cache       *cache.Cache
}

func NewGoogleVerifier(userInfoURL string) *GoogleVerifier {
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}
	return &GoogleVerifier{
		userInfoURL: userInfoURL,
		cache:       cache.New(5*time.Minute, 10*time.Minute),
	}
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, bearer string) (*Claims, error) {
	if cached, found := v.cache.Get(bearer); found {
		return cached.(*Claims), nil
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer}))
	client.Timeout = 10 * time.Second

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidCredential
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, string(body))
	}

	var user googleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	if user.Email == "" {
		return nil, ErrMissingEmail
	}

	claims := &Claims{
		Subject:       user.ID,
		Email:         strings.ToLower(user.Email),
		EmailVerified: user.VerifiedEmail,
	}
	v.cache.SetDefault(bearer, claims)
	return claims, nil
}

// NewVerifier selects the verifier named by provider.
func NewVerifier(provider, jwtSecret string) (Verifier, error) {
	switch provider {
	case "", "jwt":
		return NewJWTVerifier(jwtSecret), nil
	case "google":
		return NewGoogleVerifier(""), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider: %s", provider)
	}
}
