package gorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/peopledb/pkg/models"
)

func testPerson(name string) *models.Person {
	return models.NewPerson(name, models.NewDate(1960, time.January, 15), true)
}

func TestMigrations_CreateTables(t *testing.T) {
	store := testStore(t)

	assert.True(t, store.DB.Migrator().HasTable("people"))
	assert.True(t, store.DB.Migrator().HasTable("pets"))
	assert.True(t, store.DB.Migrator().HasTable("migrations"))
	assert.True(t, store.DB.Migrator().HasIndex(&Pet{}, "OwnerID"))
}

func TestMigrations_Idempotent(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Migrate())
	require.NoError(t, store.Migrate())

	var applied int64
	require.NoError(t, store.DB.Table("migrations").Count(&applied).Error)
	assert.Equal(t, int64(len(MigrationIDs())), applied)
}

func TestMigrations_RollbackLast(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.RollbackLast())
	assert.False(t, store.DB.Migrator().HasTable("pets"))
	assert.True(t, store.DB.Migrator().HasTable("people"))

	require.NoError(t, store.Migrate())
	assert.True(t, store.DB.Migrator().HasTable("pets"))
}

func TestMigrationIDs_Ordered(t *testing.T) {
	assert.Equal(t, []string{"001_people", "002_pets"}, MigrationIDs())
}
