// Package main, repository katmanı başlatma.
package main

import (
	"database/sql"

	"github.com/akinalp/yapyap/repository"
)

// Repositories, repository instance'larını tutan container struct.
type Repositories struct {
	User    repository.UserRepository
	Chat    repository.ChatRepository
	Message repository.MessageRepository
}

// initRepositories, veritabanı bağlantısından tüm repository'leri oluşturur.
//
// Hepsi aynı *sql.DB'yi paylaşır; sql.DB thread-safe bir connection pool'dur.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:    repository.NewSQLiteUserRepo(conn),
		Chat:    repository.NewSQLiteChatRepo(conn),
		Message: repository.NewSQLiteMessageRepo(conn),
	}
}
