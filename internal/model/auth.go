package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims issued by the auth provider
type UserClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}
