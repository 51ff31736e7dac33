// Package identity は匿名サインインと、そのセッショントークン (HS256 JWT) を扱います。
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "artconnect"

var (
	// ErrNotConfigured は署名鍵が無く、サインインできないことを示します。
	ErrNotConfigured = errors.New("匿名認証が設定されていません")
	// ErrInvalidToken はトークンが不正または期限切れであることを示します。
	ErrInvalidToken = errors.New("トークンが無効です")
)

// User は匿名でサインインした利用者です。
type User struct {
	ID        string    `json:"uid"`
	Anonymous bool      `json:"isAnonymous"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims はセッショントークンのクレームです。
type Claims struct {
	jwt.RegisteredClaims
	Anonymous bool `json:"anon"`
}

// Issuer はトークンの発行と検証を行います。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer は Issuer を生成します。secret が空でも生成できますが、サインインは ErrNotConfigured になります。
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Configured は署名鍵が設定されているかを返します。
func (i *Issuer) Configured() bool {
	return i != nil && len(i.secret) > 0
}

// SignInAnonymously は新しい匿名ユーザーを作り、そのトークンを返します。
func (i *Issuer) SignInAnonymously(ctx context.Context) (*User, string, error) {
	if !i.Configured() {
		return nil, "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	now := i.now()
	user := &User{ID: uuid.NewString(), Anonymous: true, ExpiresAt: now.Add(i.ttl).Truncate(time.Second)}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(user.ExpiresAt),
		},
		Anonymous: true,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, "", fmt.Errorf("トークンの署名に失敗しました: %w", err)
	}
	return user, token, nil
}

// Parse はトークンを検証して User を返します。
func (i *Issuer) Parse(tokenString string) (*User, error) {
	if !i.Configured() {
		return nil, ErrNotConfigured
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	user := &User{ID: claims.Subject, Anonymous: claims.Anonymous}
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Time
	}
	return user, nil
}

type contextKey string

const userContextKey = contextKey("user")

// WithUser は ctx に User を載せます。
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// FromContext は ctx の User を返します。
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok && u != nil
}
