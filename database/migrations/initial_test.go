package migrations_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/shashiranjanraj/canteen/database/migrations"
	"github.com/shashiranjanraj/canteen/pkg/database"
	"github.com/shashiranjanraj/canteen/pkg/migration"
)

func TestMigrateAndRollback(t *testing.T) {
	db, err := database.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer database.Close(db)

	var out bytes.Buffer
	r := migration.New(db, migration.WithOutput(&out))

	require.NoError(t, r.Run())
	assert.True(t, db.Migrator().HasTable("orders"))
	assert.True(t, db.Migrator().HasTable("canteen_failed_jobs"))
	assert.Contains(t, out.String(), "Migrated:  20260101000000_create_orders_table")

	pending, err := r.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, r.Rollback())
	assert.False(t, db.Migrator().HasTable("orders"))
	assert.False(t, db.Migrator().HasTable("canteen_failed_jobs"))
}
