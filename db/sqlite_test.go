package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/regolith/models"
)

func TestConnectAndMigrate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history", "regolith.db")
	gdb, err := Connect(dsn, false)
	require.NoError(t, err)

	assert.True(t, gdb.Migrator().HasTable(&models.Evaluation{}))
}

func TestEvaluationRoundTrip(t *testing.T) {
	gdb, err := Connect(filepath.Join(t.TempDir(), "regolith.db"), false)
	require.NoError(t, err)

	record := &models.Evaluation{
		ID:             "ev_test1",
		Query:          "data.p.allow",
		Modules:        2,
		Strict:         true,
		Result:         `{"result":[{"expressions":[true]}]}`,
		DurationMicros: 1234,
	}
	require.NoError(t, gdb.Create(record).Error)

	var loaded models.Evaluation
	require.NoError(t, gdb.First(&loaded, "id = ?", "ev_test1").Error)
	assert.Equal(t, "data.p.allow", loaded.Query)
	assert.True(t, loaded.Strict)
	assert.False(t, loaded.Undefined)
	assert.WithinDuration(t, time.Now(), loaded.CreatedAt, time.Minute)
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("libsql://db.example.turso.io"))
	assert.True(t, isURL("https://db.example.turso.io"))
	assert.False(t, isURL("/var/lib/regolith/history.db"))
	assert.False(t, isURL("history.db"))
}
