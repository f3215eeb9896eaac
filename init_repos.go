// Package main — Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Her repository aynı *sql.DB bağlantısını alır ve interface döner;
// main.go'daki wire-up'ı modülerleştirmek için bu dosyaya ayrıldı.
package main

import (
	"database/sql"

	"github.com/candemir/meydan/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
//
// Neden struct? Dokuz ayrı değişkeni fonksiyondan fonksiyona taşımak
// yerine tek container: imzalar kısa kalır, yeni repository eklemek
// sadece struct + initRepositories değişikliğidir.
//
// Repository'ler node moduna göre ayrılmaz — şema her modda aynıdır,
// kullanılmayan tablolar boş durur. Mod ayrımı service katmanında yapılır.
type Repositories struct {
	User       repository.UserRepository
	Server     repository.ServerRepository
	Channel    repository.ChannelRepository
	Message    repository.MessageRepository
	Member     repository.MemberRepository
	Role       repository.RoleRepository
	Ban        repository.BanRepository
	Reaction   repository.ReactionRepository
	ResetToken repository.PasswordResetRepository
}

// initRepositories, veritabanı bağlantısından tüm repository'leri oluşturur.
// *sql.DB thread-safe bir connection pool'dur; paylaşılması güvenlidir.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:       repository.NewSQLiteUserRepo(conn),
		Server:     repository.NewSQLiteServerRepo(conn),
		Channel:    repository.NewSQLiteChannelRepo(conn),
		Message:    repository.NewSQLiteMessageRepo(conn),
		Member:     repository.NewSQLiteMemberRepo(conn),
		Role:       repository.NewSQLiteRoleRepo(conn),
		Ban:        repository.NewSQLiteBanRepo(conn),
		Reaction:   repository.NewSQLiteReactionRepo(conn),
		ResetToken: repository.NewSQLiteResetTokenRepo(conn),
	}
}
