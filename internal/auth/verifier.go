// Package auth は外部の認証サービスが発行したトークンから呼び出し元ユーザーを特定する。
// トークンの発行やパスワード検証はこのサービスの責務ではない。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken はトークンが検証できないことを表す。
var ErrInvalidToken = errors.New("invalid token")

// Claims は外部認証サービスが発行するトークンのクレーム。
// ユーザーIDは標準のsubクレームを優先し、無ければuser_idクレームを使う。
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier はHS256署名のJWTを検証する。
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier はVerifierを生成する。issuerが空の場合はissクレームを検証しない。
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Verify はトークンを検証し、正規化したユーザーID（小文字のUUID）を返す。
// 署名方式がHS256以外、期限切れ・期限なし、発行者不一致、ユーザーIDが不正な場合はErrInvalidTokenを返す。
func (v *Verifier) Verify(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}

	subject := claims.Subject
	if subject == "" {
		subject = claims.UserID
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return "", fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id.String(), nil
}
