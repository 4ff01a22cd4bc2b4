package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gptcatalog/internal/model"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	db, err := Open("oracle", "whatever")
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrate_CreatesTables(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(gdb))

	m := gdb.Migrator()
	assert.True(t, m.HasTable(&model.User{}))
	assert.True(t, m.HasTable(&model.InviteCode{}))
	assert.True(t, m.HasTable(&model.PaymentEvent{}))
	assert.True(t, m.HasIndex(&model.User{}, "Email"))
}
