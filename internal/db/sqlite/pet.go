package sqlite

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/pkg/models"
)

const petColumns = "pets.id, pets.owner_id, pets.name, pets.animal_type"

func scanPet(row rowScanner) (*models.Pet, error) {
	var p models.Pet
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.AnimalType); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPetWithOwner(row rowScanner) (*models.Pet, error) {
	var (
		p models.Pet
		o models.Person
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.AnimalType,
		&o.ID, &o.Name, &o.Birthday, &o.IsRelative); err != nil {
		return nil, err
	}
	p.Owner = &o
	return &p, nil
}

// CreatePet inserts a pet and assigns its ID. The owner must already exist.
func (s *Store) CreatePet(ctx context.Context, pet *models.Pet) error {
	result, err := s.ExecContext(ctx,
		"INSERT INTO pets (owner_id, name, animal_type) VALUES (?, ?, ?)",
		pet.OwnerID, pet.Name, pet.AnimalType,
	)
	if err != nil {
		return fmt.Errorf("create pet: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create pet: %w", err)
	}
	pet.ID = id
	return nil
}

// SavePet inserts a new pet or overwrites every column of an existing one,
// including its owner.
func (s *Store) SavePet(ctx context.Context, pet *models.Pet) error {
	if pet.ID == 0 {
		return s.CreatePet(ctx, pet)
	}
	_, err := s.ExecContext(ctx, `
		INSERT INTO pets (id, owner_id, name, animal_type) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			name = excluded.name,
			animal_type = excluded.animal_type`,
		pet.ID, pet.OwnerID, pet.Name, pet.AnimalType,
	)
	if err != nil {
		return fmt.Errorf("save pet %d: %w", pet.ID, err)
	}
	return nil
}

// DeletePet removes a pet.
func (s *Store) DeletePet(ctx context.Context, id int64) error {
	result, err := s.ExecContext(ctx, "DELETE FROM pets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete pet %d: %w", id, err)
	}
	return requireAffected(result, "delete pet %d", id)
}

// GetPet retrieves a pet and its owner in one query.
func (s *Store) GetPet(ctx context.Context, id int64) (*models.Pet, error) {
	p, err := scanPetWithOwner(s.QueryRowContext(ctx,
		"SELECT "+petColumns+", "+personColumns+
			" FROM pets JOIN people ON people.id = pets.owner_id WHERE pets.id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get pet %d: %w", id, translateError(err))
	}
	return p, nil
}

// Pets enumerates the pets matching filter. Owners are resolved according to
// filter.Owner: not at all, with one query per pet, or in the same query.
func (s *Store) Pets(ctx context.Context, filter db.PetFilter) iter.Seq2[*models.Pet, error] {
	return db.Once(func(yield func(*models.Pet, error) bool) {
		query, args, err := buildPetQuery(filter)
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := s.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("list pets: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var pet *models.Pet
			if filter.Owner == db.OwnerEager {
				pet, err = scanPetWithOwner(rows)
			} else {
				pet, err = scanPet(rows)
			}
			if err != nil {
				yield(nil, fmt.Errorf("scan pet: %w", err))
				return
			}
			if filter.Owner == db.OwnerLazy {
				owner, err := s.GetPerson(ctx, pet.OwnerID)
				if err != nil {
					yield(nil, fmt.Errorf("load owner of pet %d: %w", pet.ID, err))
					return
				}
				pet.Owner = owner
			}
			if !yield(pet, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("list pets: %w", err))
		}
	})
}

func buildPetQuery(filter db.PetFilter) (string, []any, error) {
	order, err := filter.Order.Clause("pets", db.PetOrderFields)
	if err != nil {
		return "", nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.AnimalType != "" {
		where = append(where, "pets.animal_type = ?")
		args = append(args, filter.AnimalType)
	}
	if filter.OwnerID != 0 {
		where = append(where, "pets.owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.OwnerName != "" {
		where = append(where, "people.name = ?")
		args = append(args, filter.OwnerName)
	}

	var b strings.Builder
	b.WriteString("SELECT " + petColumns)
	if filter.Owner == db.OwnerEager {
		b.WriteString(", " + personColumns)
	}
	b.WriteString(" FROM pets")
	if filter.Owner == db.OwnerEager || filter.OwnerName != "" {
		b.WriteString(" JOIN people ON people.id = pets.owner_id")
	}
	writeWhere(&b, where)
	b.WriteString(" ORDER BY " + order)
	args = writeLimit(&b, args, filter.Limit, filter.Offset)
	return b.String(), args, nil
}
