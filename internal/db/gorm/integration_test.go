package gorm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/internal/db/dbtest"
	"github.com/thebtf/peopledb/pkg/models"
)

// TestIntegration_WALMode verifies WAL mode is enabled.
func TestIntegration_WALMode(t *testing.T) {
	store := testStore(t)

	var journalMode string
	err := store.sqlDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	assert.Equal(t, "wal", journalMode, "WAL mode should be enabled")
}

// TestIntegration_ConcurrentAccess verifies writers and readers can share the pool.
func TestIntegration_ConcurrentAccess(t *testing.T) {
	store := testStore(t)
	repo := NewRepository(store)
	ctx := context.Background()

	owner := testPerson("Herb")
	require.NoError(t, repo.CreatePerson(ctx, owner))

	const numGoroutines = 10
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pet := models.NewPet(owner, fmt.Sprintf("Pet %02d", i), "cat")
			assert.NoError(t, repo.CreatePet(ctx, pet))
			_, err := db.Collect(repo.Pets(ctx, db.PetFilter{OwnerID: owner.ID, Owner: db.OwnerEager}))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	counts, err := repo.PeopleWithPetCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(numGoroutines), counts[0].PetCount)
	assert.Len(t, counts[0].Pets, numGoroutines)
}

// TestIntegration_Postgres runs the shared store suite against PostgreSQL
// when PEOPLEDB_TEST_POSTGRES_DSN points at a scratch database.
func TestIntegration_Postgres(t *testing.T) {
	dsn := os.Getenv("PEOPLEDB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PEOPLEDB_TEST_POSTGRES_DSN not set")
	}

	suite.Run(t, &dbtest.StoreSuite{
		Open: func(string) (db.Store, error) {
			store, err := NewStore(Config{DSN: dsn, LogLevel: logger.Silent})
			if err != nil {
				return nil, err
			}
			repo := NewRepository(store)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			// The database outlives each test; start from empty tables.
			if err := repo.Reset(ctx); err != nil {
				_ = store.Close()
				return nil, err
			}
			return repo, nil
		},
	})
}

func TestIntegration_ParentDirCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "people.db")

	store, err := NewStore(Config{Path: path, LogLevel: logger.Silent})
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
