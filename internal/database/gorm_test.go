package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/models"
)

func TestDSNs(t *testing.T) {
	cfg := config.DefaultConfig().Database

	assert.Equal(t,
		"host=localhost user=grahalia password= dbname=grahalia port=5432 sslmode=disable TimeZone=UTC",
		PostgresDSN(cfg))
	assert.Equal(t,
		"grahalia:@tcp(localhost:3306)/grahalia?charset=utf8mb4&parseTime=True&loc=UTC",
		MySQLDSN(cfg))
	assert.Equal(t,
		"grahalia.db?_pragma=foreign_keys%281%29&_pragma=busy_timeout%285000%29",
		SQLiteDSN(cfg))

	cfg.URL = "postgres://u:p@db/site"
	assert.Equal(t, "postgres://u:p@db/site", PostgresDSN(cfg))
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")

	d, err := Dialector(config.DatabaseConfig{Driver: "MariaDB"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())
}

func TestOpenSQLiteAndSeed(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", URL: "file:seedtest?mode=memory&cache=shared"}
	gdb, err := NewGormDB(cfg, nil)
	require.NoError(t, err)
	defer gdb.Close()

	assert.Equal(t, "sqlite", gdb.Driver())
	assert.Equal(t, "sqlite", NewGormDBFromDB(gdb.DB()).Driver())
	require.NoError(t, gdb.InitSchema())

	created, err := SeedFeatures(gdb.DB(), DefaultFeatures)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultFeatures), created)

	again, err := SeedFeatures(gdb.DB(), DefaultFeatures)
	require.NoError(t, err)
	assert.Zero(t, again, "re-seeding is idempotent")

	var labels int64
	require.NoError(t, gdb.DB().Model(&models.FeatureTranslation{}).Count(&labels).Error)
	assert.Equal(t, int64(2*len(DefaultFeatures)), labels)
}
