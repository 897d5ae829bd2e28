package gorm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/pkg/models"
)

// PersonStore provides person-related database operations using GORM.
type PersonStore struct {
	db *gorm.DB
}

// NewPersonStore creates a new person store.
func NewPersonStore(store *Store) *PersonStore {
	return &PersonStore{
		db: store.DB,
	}
}

// CreatePerson inserts a person and assigns its ID.
func (s *PersonStore) CreatePerson(ctx context.Context, person *models.Person) error {
	row := fromModelPerson(person)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	person.ID = row.ID
	return nil
}

// SavePerson inserts a new person or overwrites every column of an existing one.
func (s *PersonStore) SavePerson(ctx context.Context, person *models.Person) error {
	if person.ID == 0 {
		return s.CreatePerson(ctx, person)
	}
	row := fromModelPerson(person)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(row).Error; err != nil {
		return fmt.Errorf("save person %d: %w", person.ID, err)
	}
	return nil
}

// DeletePerson removes a person. The database refuses while pets reference them.
func (s *PersonStore) DeletePerson(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&Person{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete person %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete person %d: %w", id, db.ErrNotFound)
	}
	return nil
}

// GetPerson retrieves a person by ID.
func (s *PersonStore) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	var row Person
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, fmt.Errorf("get person %d: %w", id, translateError(err))
	}
	return row.toModel(), nil
}

// GetPersonByName retrieves the single person with the given name.
func (s *PersonStore) GetPersonByName(ctx context.Context, name string) (*models.Person, error) {
	var rows []Person
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Order("id").
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get person %q: %w", name, err)
	}

	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("get person %q: %w", name, db.ErrNotFound)
	case 1:
		return rows[0].toModel(), nil
	default:
		return nil, fmt.Errorf("get person %q: %w", name, db.ErrMultipleMatches)
	}
}

// People streams the people matching filter. The query runs when the
// sequence is first ranged over and rows are scanned one at a time.
func (s *PersonStore) People(ctx context.Context, filter db.PersonFilter) iter.Seq2[*models.Person, error] {
	return db.Once(func(yield func(*models.Person, error) bool) {
		query, err := s.personQuery(ctx, filter)
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := query.Rows()
		if err != nil {
			yield(nil, fmt.Errorf("list people: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row Person
			if err := s.db.ScanRows(rows, &row); err != nil {
				yield(nil, fmt.Errorf("scan person: %w", err))
				return
			}
			if !yield(row.toModel(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("list people: %w", err))
		}
	})
}

func (s *PersonStore) personQuery(ctx context.Context, filter db.PersonFilter) (*gorm.DB, error) {
	order, err := filter.Order.Clause("people", db.PersonOrderFields)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&Person{})

	if filter.Name != "" {
		query = query.Where("people.name = ?", filter.Name)
	}
	if filter.IsRelative != nil {
		query = query.Where("people.is_relative = ?", *filter.IsRelative)
	}
	if r := filter.BornOutside; r != nil {
		query = query.Where(
			s.db.Where("people.birthday < ?", r.From).Or("people.birthday > ?", r.To),
		)
	}
	if filter.NameInitial != "" {
		first, _ := utf8.DecodeRuneInString(filter.NameInitial)
		query = query.Where("LOWER(SUBSTR(people.name, 1, 1)) = ?", strings.ToLower(string(first)))
	}

	return query.Order(order).Scopes(paginate(filter.Limit, filter.Offset)), nil
}

// PeopleWithPetCounts lists every person ordered by name with a pet count
// computed by a correlated sub-query. Pets are preloaded in one extra query
// for all people rather than one query per person.
func (s *PersonStore) PeopleWithPetCounts(ctx context.Context) ([]*models.PersonWithPets, error) {
	petCount := s.db.Model(&Pet{}).
		Select("COUNT(pets.id)").
		Where("pets.owner_id = people.id")

	var rows []personWithCount
	err := s.db.WithContext(ctx).
		Model(&personWithCount{}).
		Select("people.*, (?) AS pet_count", petCount).
		Preload("Pets", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("pets.name, pets.id")
		}).
		Order("people.name, people.id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list people with pet counts: %w", err)
	}

	out := make([]*models.PersonWithPets, len(rows))
	for i := range rows {
		out[i] = rows[i].toModelWithPets()
	}
	return out, nil
}
