// Package token — access token'dan kullanıcı kimliği çıkarımı.
//
// Token sunucu tarafından imzalanır ve doğrulanır; client tarafında imza
// doğrulaması YAPILMAZ, sadece claim okunur.
package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alinouri1989/chatnest-core/pkg"
)

// Sunucu, kullanıcı id'sini framework sürümüne göre farklı claim
// isimleriyle yazabiliyor; sırayla denenir.
var userIDClaims = []string{
	"nameid",
	"sub",
	"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier",
}

// UserID, access token'dan lokal kullanıcının id'sini çıkarır.
func UserID(accessToken string) (string, error) {
	parser := jwt.NewParser()
	tok, _, err := parser.ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: token parse: %v", pkg.ErrBadRequest, err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected token claims", pkg.ErrBadRequest)
	}
	for _, key := range userIDClaims {
		if v, ok := claims[key].(string); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: token has no user id claim", pkg.ErrBadRequest)
}
