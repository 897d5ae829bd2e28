package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrations lists every schema change in order. IDs must never be reused.
var migrations = []*gormigrate.Migration{
	// Migration 001: people
	{
		ID: "001_people",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&Person{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("people")
		},
	},

	// Migration 002: pets, with the owner foreign key
	{
		ID: "002_pets",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&Pet{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("pets")
		},
	},
}

func newMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations)
}

// runMigrations applies all pending migrations.
func runMigrations(db *gorm.DB) error {
	return newMigrator(db).Migrate()
}

// Migrate applies all pending migrations. NewStore already does this; the
// method exists for the migrate command.
func (s *Store) Migrate() error {
	return runMigrations(s.DB)
}

// RollbackLast undoes the most recently applied migration.
func (s *Store) RollbackLast() error {
	return newMigrator(s.DB).RollbackLast()
}

// MigrationIDs returns the IDs of all known migrations in order.
func MigrationIDs() []string {
	ids := make([]string, len(migrations))
	for i, m := range migrations {
		ids[i] = m.ID
	}
	return ids
}
