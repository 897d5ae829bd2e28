package gorm

import "github.com/thebtf/peopledb/internal/db"

// Repository bundles the GORM stores behind the db.Store interface.
type Repository struct {
	*Store
	*PersonStore
	*PetStore
}

var _ db.Store = (*Repository)(nil)

// NewRepository wires the person and pet stores onto an open Store.
func NewRepository(store *Store) *Repository {
	return &Repository{
		Store:       store,
		PersonStore: NewPersonStore(store),
		PetStore:    NewPetStore(store),
	}
}
