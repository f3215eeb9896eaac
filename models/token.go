package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, JWT payload'ı.
//
// RS256 ile imzalanır: hub private key ile imzalar, community node'lar
// hub'ın public key'i ile doğrular. Böylece her node token'ı hub'a
// sormadan, lokal olarak doğrulayabilir (federated auth).
//
// Kullanıcı ID'si RegisteredClaims.Subject'te taşınır; username ayrı
// bir claim'dir ki node'lar DB'ye gitmeden isim gösterebilsin.
//
// Bu struct models paketinde tanımlanır çünkü birden fazla katman
// (services, ws, middleware) tarafından kullanılır; her katman models'e
// bağımlı olabilir, circular dependency oluşmaz.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}
