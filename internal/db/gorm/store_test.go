package gorm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/internal/db/dbtest"
	"github.com/thebtf/peopledb/pkg/models"
)

// testStore creates a Store on a temporary SQLite file.
func testStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(Config{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		MaxConns: 4,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRepository(t *testing.T) {
	suite.Run(t, &dbtest.StoreSuite{
		Open: func(dir string) (db.Store, error) {
			store, err := NewStore(Config{
				Path:     filepath.Join(dir, "people.db"),
				LogLevel: logger.Silent,
			})
			if err != nil {
				return nil, err
			}
			return NewRepository(store), nil
		},
	})
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore(Config{})
	assert.Error(t, err)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.db")
	ctx := context.Background()

	store, err := NewStore(Config{Path: path, LogLevel: logger.Silent})
	require.NoError(t, err)

	bob := testPerson("Bob")
	require.NoError(t, NewRepository(store).CreatePerson(ctx, bob))
	require.NoError(t, store.Close())

	store, err = NewStore(Config{Path: path, LogLevel: logger.Silent})
	require.NoError(t, err)
	defer store.Close()
	repo := NewRepository(store)

	got, err := repo.GetPerson(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name)
}

func TestNewStore_EnforcesMinimumPool(t *testing.T) {
	store, err := NewStore(Config{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		MaxConns: 1,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	defer store.Close()

	sqlDB, err := store.DB.DB()
	require.NoError(t, err)
	assert.Equal(t, minConns, sqlDB.Stats().MaxOpenConnections)
}

func TestStore_HealthCheck(t *testing.T) {
	store := testStore(t)

	info := store.HealthCheck(context.Background())
	require.NotNil(t, info)
	assert.Equal(t, "healthy", info.Status)
	assert.Empty(t, info.Error)

	// Second call within the TTL is served from cache.
	assert.Same(t, info, store.HealthCheck(context.Background()))
}

func TestStore_QueryCountIgnoresWrites(t *testing.T) {
	store := testStore(t)
	repo := NewRepository(store)
	ctx := context.Background()

	before := store.QueryCount()
	require.NoError(t, repo.CreatePerson(ctx, testPerson("Bob")))
	assert.Equal(t, before, store.QueryCount())

	_, err := repo.GetPersonByName(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, before+1, store.QueryCount())
}

func TestPetStore_OwnerJoinSelectsOnlyTableColumns(t *testing.T) {
	store := testStore(t)
	repo := NewRepository(store)
	ctx := context.Background()

	bob := testPerson("Bob")
	herb := testPerson("Herb")
	require.NoError(t, repo.CreatePerson(ctx, bob))
	require.NoError(t, repo.CreatePerson(ctx, herb))
	fido := models.NewPet(herb, "Fido", "dog")
	require.NoError(t, repo.CreatePet(ctx, fido))
	fido.SetOwner(bob)
	require.NoError(t, repo.SavePet(ctx, fido))

	got, err := repo.GetPet(ctx, fido.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "Bob", got.Owner.Name)

	pets, err := db.Collect(repo.Pets(ctx, db.PetFilter{Owner: db.OwnerEager}))
	require.NoError(t, err)
	require.Len(t, pets, 1)
	require.NotNil(t, pets[0].Owner)
	assert.Equal(t, bob.ID, pets[0].Owner.ID)

	// The aggregated listing still reports counts alongside the join.
	counts, err := repo.PeopleWithPetCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, int64(1), counts[0].PetCount)
	assert.Equal(t, int64(0), counts[1].PetCount)
}
