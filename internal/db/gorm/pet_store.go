package gorm

import (
	"context"
	"fmt"
	"iter"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/pkg/models"
)

// PetStore provides pet-related database operations using GORM.
type PetStore struct {
	db *gorm.DB
}

// NewPetStore creates a new pet store.
func NewPetStore(store *Store) *PetStore {
	return &PetStore{
		db: store.DB,
	}
}

// CreatePet inserts a pet and assigns its ID. The owner must already exist.
func (s *PetStore) CreatePet(ctx context.Context, pet *models.Pet) error {
	row := fromModelPet(pet)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return fmt.Errorf("create pet: %w", err)
	}
	pet.ID = row.ID
	return nil
}

// SavePet inserts a new pet or overwrites every column of an existing one,
// including its owner.
func (s *PetStore) SavePet(ctx context.Context, pet *models.Pet) error {
	if pet.ID == 0 {
		return s.CreatePet(ctx, pet)
	}
	row := fromModelPet(pet)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(row).Error; err != nil {
		return fmt.Errorf("save pet %d: %w", pet.ID, err)
	}
	return nil
}

// DeletePet removes a pet.
func (s *PetStore) DeletePet(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&Pet{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete pet %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete pet %d: %w", id, db.ErrNotFound)
	}
	return nil
}

// GetPet retrieves a pet and its owner in one query.
func (s *PetStore) GetPet(ctx context.Context, id int64) (*models.Pet, error) {
	var row Pet
	err := s.db.WithContext(ctx).
		Joins("Owner").
		Where("pets.id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, fmt.Errorf("get pet %d: %w", id, translateError(err))
	}
	return row.toModel(), nil
}

// Pets enumerates the pets matching filter. Owners are resolved according to
// filter.Owner: not at all, with one query per pet, or in the same query.
func (s *PetStore) Pets(ctx context.Context, filter db.PetFilter) iter.Seq2[*models.Pet, error] {
	if filter.Owner == db.OwnerEager {
		return db.Once(s.petsEager(ctx, filter))
	}
	return db.Once(s.petsStreamed(ctx, filter))
}

func (s *PetStore) petQuery(ctx context.Context, filter db.PetFilter) (*gorm.DB, error) {
	order, err := filter.Order.Clause("pets", db.PetOrderFields)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&Pet{})

	if filter.AnimalType != "" {
		query = query.Where("pets.animal_type = ?", filter.AnimalType)
	}
	if filter.OwnerID != 0 {
		query = query.Where("pets.owner_id = ?", filter.OwnerID)
	}
	if filter.OwnerName != "" {
		query = query.
			Joins("JOIN people ON people.id = pets.owner_id").
			Where("people.name = ?", filter.OwnerName)
	}

	return query.Order(order).Scopes(paginate(filter.Limit, filter.Offset)), nil
}

// petsEager loads pets and owners with a single LEFT JOIN.
func (s *PetStore) petsEager(ctx context.Context, filter db.PetFilter) iter.Seq2[*models.Pet, error] {
	return func(yield func(*models.Pet, error) bool) {
		query, err := s.petQuery(ctx, filter)
		if err != nil {
			yield(nil, err)
			return
		}

		var rows []Pet
		if err := query.Joins("Owner").Find(&rows).Error; err != nil {
			yield(nil, fmt.Errorf("list pets: %w", err))
			return
		}
		for i := range rows {
			if !yield(rows[i].toModel(), nil) {
				return
			}
		}
	}
}

// petsStreamed scans pets row by row. With OwnerLazy every row triggers a
// separate owner lookup.
func (s *PetStore) petsStreamed(ctx context.Context, filter db.PetFilter) iter.Seq2[*models.Pet, error] {
	return func(yield func(*models.Pet, error) bool) {
		query, err := s.petQuery(ctx, filter)
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := query.Rows()
		if err != nil {
			yield(nil, fmt.Errorf("list pets: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row Pet
			if err := s.db.ScanRows(rows, &row); err != nil {
				yield(nil, fmt.Errorf("scan pet: %w", err))
				return
			}
			pet := row.toModel()
			if filter.Owner == db.OwnerLazy {
				var owner Person
				if err := s.db.WithContext(ctx).First(&owner, row.OwnerID).Error; err != nil {
					yield(nil, fmt.Errorf("load owner %d of pet %d: %w", row.OwnerID, row.ID, translateError(err)))
					return
				}
				pet.Owner = owner.toModel()
			}
			if !yield(pet, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("list pets: %w", err))
		}
	}
}
