// Package database, SQLite bağlantısını açar ve şema migration'larını uygular.
//
// Driver olarak modernc.org/sqlite kullanılır: pure-Go, CGO gerektirmez.
// Blank import (_ "modernc.org/sqlite") driver'ı database/sql'e "sqlite"
// adıyla kaydeder; bu paket dışında hiçbir yer driver'ı doğrudan bilmez.
package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// recoverableErrors, yarım kalmış bir migration tekrar çalıştırıldığında
// güvenle atlanabilecek hata parçaları.
var recoverableErrors = []string{
	"duplicate column name",
	"already exists",
}

// DB, *sql.DB connection pool'unu sarar.
// Conn goroutine-safe'dir: repository'ler aynı Conn'u paylaşır.
type DB struct {
	Conn *sql.DB
}

// New, dbPath'teki SQLite dosyasını açar (dizin yoksa oluşturur) ve
// migrationsFS içindeki .sql dosyalarını isim sırasıyla uygular.
//
// migrationsFS kök dizininde doğrudan 001_init.sql gibi dosyalar beklenir.
// Binary içine gömülü şema için Open kullanılır.
func New(dbPath string, migrationsFS fs.FS) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// foreign_keys SQLite'ta varsayılan kapalı. WAL okuma ve yazmanın
	// birbirini bloklamamasını sağlar. busy_timeout, auto-read receipt
	// yazımı ile mesaj insert'i aynı anda gelirse "database is locked"
	// yerine kısa süre bekletir.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn}
	if err := db.migrate(migrationsFS); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("[database] connected (%s) and migrations applied", dbPath)
	return db, nil
}

// Open, binary'ye gömülü migration'larla New çağırır.
func Open(dbPath string) (*DB, error) {
	migrations, err := fs.Sub(EmbeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	return New(dbPath, migrations)
}

// Close, connection pool'u kapatır.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// migrate, schema_migrations tablosunda kayıtlı olmayan dosyaları uygular.
//
// Tablo yoksa ama users tablosu varsa (eski kurulum) bütün dosyalar
// uygulanmış sayılır; CREATE TABLE'lar tekrar çalıştırılmaz.
func (db *DB) migrate(migrationsFS fs.FS) error {
	if _, err := db.Conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	files, err := migrationFiles(migrationsFS)
	if err != nil {
		return err
	}

	applied, err := db.appliedMigrations()
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		bootstrapped, err := db.bootstrap(files)
		if err != nil {
			return err
		}
		if bootstrapped {
			return nil
		}
	}

	for _, file := range files {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if err := db.execStatements(file, string(content)); err != nil {
			return err
		}

		if _, err := db.Conn.Exec("INSERT INTO schema_migrations (filename) VALUES (?)", file); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}
		log.Printf("[database] migration applied: %s", file)
	}

	return nil
}

// migrationFiles, kök dizindeki .sql dosyalarını alfabetik sırayla döner.
func migrationFiles(migrationsFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (db *DB) appliedMigrations() (map[string]bool, error) {
	rows, err := db.Conn.Query("SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// bootstrap, şema elle kurulmuş bir veritabanında bütün dosyaları uygulanmış
// olarak işaretler. Yeni (boş) veritabanında false döner.
func (db *DB) bootstrap(files []string) (bool, error) {
	var tableCount int
	if err := db.Conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='users'",
	).Scan(&tableCount); err != nil {
		return false, fmt.Errorf("failed to check existing tables: %w", err)
	}
	if tableCount == 0 {
		return false, nil
	}

	for _, file := range files {
		if _, err := db.Conn.Exec("INSERT INTO schema_migrations (filename) VALUES (?)", file); err != nil {
			return false, fmt.Errorf("failed to bootstrap migration %s: %w", file, err)
		}
	}
	log.Printf("[database] bootstrapped %d existing migrations", len(files))
	return true, nil
}

// execStatements, dosyayı statement'lara bölüp tek tek çalıştırır.
// recoverableErrors'a uyan hatalar loglanıp atlanır.
func (db *DB) execStatements(filename, content string) error {
	for i, stmt := range splitStatements(content) {
		if _, err := db.Conn.Exec(stmt); err != nil {
			if isRecoverable(err) {
				log.Printf("[database] %s: statement %d skipped (recoverable: %v)", filename, i+1, err)
				continue
			}
			return fmt.Errorf("failed to execute migration %s (statement %d): %w", filename, i+1, err)
		}
	}
	return nil
}

func isRecoverable(err error) bool {
	msg := err.Error()
	for _, pattern := range recoverableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// splitStatements, SQL metnini ';' ile böler. Tek tırnaklı literal içindeki
// ';' ve "--" ile başlayan satır yorumları ayırıcı sayılmaz.
func splitStatements(sqlText string) []string {
	var (
		statements []string
		current    strings.Builder
		inString   bool
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]

		// Satır yorumu: satır sonuna kadar atla
		if !inString && ch == '-' && i+1 < len(sqlText) && sqlText[i+1] == '-' {
			for i < len(sqlText) && sqlText[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
			continue
		}

		if ch == '\'' {
			// '' kaçışı literal'i kapatmaz
			if inString && i+1 < len(sqlText) && sqlText[i+1] == '\'' {
				current.WriteString("''")
				i++
				continue
			}
			inString = !inString
		}

		if ch == ';' && !inString {
			flush()
			continue
		}
		current.WriteByte(ch)
	}
	flush()

	return statements
}
