package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/booking?sslmode=disable", migrateURL("postgres://u:p@db:5432/booking?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/booking", migrateURL("postgresql://u@db/booking"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "booking", Password: "p@ss", Database: "cinema"}

	assert.Equal(t, "postgres://booking:p%40ss@db:5432/cinema?sslmode=disable", cfg.DSN())
}
