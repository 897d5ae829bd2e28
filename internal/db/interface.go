// Package db defines the storage interfaces shared by the peopledb stores.
package db

import (
	"context"
	"iter"

	"github.com/thebtf/peopledb/pkg/models"
)

// PersonReader defines read operations for people.
type PersonReader interface {
	GetPerson(ctx context.Context, id int64) (*models.Person, error)
	GetPersonByName(ctx context.Context, name string) (*models.Person, error)
	People(ctx context.Context, filter PersonFilter) iter.Seq2[*models.Person, error]
	PeopleWithPetCounts(ctx context.Context) ([]*models.PersonWithPets, error)
}

// PersonWriter defines write operations for people.
type PersonWriter interface {
	CreatePerson(ctx context.Context, person *models.Person) error
	SavePerson(ctx context.Context, person *models.Person) error
	DeletePerson(ctx context.Context, id int64) error
}

// PetReader defines read operations for pets.
type PetReader interface {
	GetPet(ctx context.Context, id int64) (*models.Pet, error)
	Pets(ctx context.Context, filter PetFilter) iter.Seq2[*models.Pet, error]
}

// PetWriter defines write operations for pets.
type PetWriter interface {
	CreatePet(ctx context.Context, pet *models.Pet) error
	SavePet(ctx context.Context, pet *models.Pet) error
	DeletePet(ctx context.Context, id int64) error
}

// Store combines every operation a backend must provide.
type Store interface {
	PersonReader
	PersonWriter
	PetReader
	PetWriter

	// Reset deletes every pet and person.
	Reset(ctx context.Context) error
	// QueryCount reports how many read queries the store has issued.
	QueryCount() int64
	Ping(ctx context.Context) error
	Close() error
}
