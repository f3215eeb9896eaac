// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir. errors.New() ile sabit error
// değişkenleri tanımlarız; böylece karşılaştırma string yerine
// referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Service katmanı bu error'ları fmt.Errorf("%w: detay") ile sarar,
// handler katmanı errors.Is ile yakalayıp HTTP status'a çevirir.
package pkg

import "errors"

// Domain-level error'lar.
// ErrDatabase ve ErrInternal detayları asla client'a sızdırılmaz;
// response katmanı bunları generic bir 500 mesajına çevirir.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrRateLimited   = errors.New("rate limited")
	ErrDatabase      = errors.New("database error")
	ErrInternal      = errors.New("internal error")
)
