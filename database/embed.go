package database

import "embed"

// EmbeddedMigrations, migrations/ dizinindeki şema dosyalarını binary'ye gömer.
// Doğrudan New'e verilecekse fs.Sub(EmbeddedMigrations, "migrations") ile
// alt dizine inilmelidir; Open bunu kendisi yapar.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
