package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/pkg/models"
)

const personColumns = "people.id, people.name, people.birthday, people.is_relative"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	var p models.Person
	if err := row.Scan(&p.ID, &p.Name, &p.Birthday, &p.IsRelative); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePerson inserts a person and assigns its ID.
func (s *Store) CreatePerson(ctx context.Context, person *models.Person) error {
	result, err := s.ExecContext(ctx,
		"INSERT INTO people (name, birthday, is_relative) VALUES (?, ?, ?)",
		person.Name, person.Birthday, person.IsRelative,
	)
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	person.ID = id
	return nil
}

// SavePerson inserts a new person or overwrites every column of an existing one.
func (s *Store) SavePerson(ctx context.Context, person *models.Person) error {
	if person.ID == 0 {
		return s.CreatePerson(ctx, person)
	}
	_, err := s.ExecContext(ctx, `
		INSERT INTO people (id, name, birthday, is_relative) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			birthday = excluded.birthday,
			is_relative = excluded.is_relative`,
		person.ID, person.Name, person.Birthday, person.IsRelative,
	)
	if err != nil {
		return fmt.Errorf("save person %d: %w", person.ID, err)
	}
	return nil
}

// DeletePerson removes a person. The database refuses while pets reference them.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	result, err := s.ExecContext(ctx, "DELETE FROM people WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete person %d: %w", id, err)
	}
	return requireAffected(result, "delete person %d", id)
}

// GetPerson retrieves a person by ID.
func (s *Store) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	p, err := scanPerson(s.QueryRowContext(ctx,
		"SELECT "+personColumns+" FROM people WHERE people.id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get person %d: %w", id, translateError(err))
	}
	return p, nil
}

// GetPersonByName retrieves the single person with the given name.
func (s *Store) GetPersonByName(ctx context.Context, name string) (*models.Person, error) {
	people, err := db.Collect(s.People(ctx, db.PersonFilter{Name: name, Limit: 2}))
	if err != nil {
		return nil, fmt.Errorf("get person %q: %w", name, err)
	}

	switch len(people) {
	case 0:
		return nil, fmt.Errorf("get person %q: %w", name, db.ErrNotFound)
	case 1:
		return people[0], nil
	default:
		return nil, fmt.Errorf("get person %q: %w", name, db.ErrMultipleMatches)
	}
}

// People streams the people matching filter.
func (s *Store) People(ctx context.Context, filter db.PersonFilter) iter.Seq2[*models.Person, error] {
	return db.Once(func(yield func(*models.Person, error) bool) {
		query, args, err := buildPersonQuery(filter)
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := s.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("list people: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPerson(rows)
			if err != nil {
				yield(nil, fmt.Errorf("scan person: %w", err))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("list people: %w", err))
		}
	})
}

func buildPersonQuery(filter db.PersonFilter) (string, []any, error) {
	order, err := filter.Order.Clause("people", db.PersonOrderFields)
	if err != nil {
		return "", nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Name != "" {
		where = append(where, "people.name = ?")
		args = append(args, filter.Name)
	}
	if filter.IsRelative != nil {
		where = append(where, "people.is_relative = ?")
		args = append(args, *filter.IsRelative)
	}
	if r := filter.BornOutside; r != nil {
		where = append(where, "(people.birthday < ? OR people.birthday > ?)")
		args = append(args, r.From, r.To)
	}
	if filter.NameInitial != "" {
		first, _ := utf8.DecodeRuneInString(filter.NameInitial)
		where = append(where, "LOWER(SUBSTR(people.name, 1, 1)) = ?")
		args = append(args, strings.ToLower(string(first)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + personColumns + " FROM people")
	writeWhere(&b, where)
	b.WriteString(" ORDER BY " + order)
	args = writeLimit(&b, args, filter.Limit, filter.Offset)
	return b.String(), args, nil
}

// PeopleWithPetCounts lists every person ordered by name with a pet count
// from a correlated sub-query. A single LEFT OUTER JOIN returns one row per
// (person, pet) pair, and consecutive rows are folded per person.
func (s *Store) PeopleWithPetCounts(ctx context.Context) ([]*models.PersonWithPets, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT `+personColumns+`,
			(SELECT COUNT(p2.id) FROM pets p2 WHERE p2.owner_id = people.id) AS pet_count,
			pets.id, pets.name, pets.animal_type
		FROM people
		LEFT OUTER JOIN pets ON pets.owner_id = people.id
		ORDER BY people.name, people.id, pets.name, pets.id`)
	if err != nil {
		return nil, fmt.Errorf("list people with pet counts: %w", err)
	}
	defer rows.Close()

	var (
		out     []*models.PersonWithPets
		current *models.PersonWithPets
	)
	for rows.Next() {
		var (
			p          models.Person
			count      int64
			petID      sql.NullInt64
			petName    sql.NullString
			animalType sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Birthday, &p.IsRelative, &count, &petID, &petName, &animalType); err != nil {
			return nil, fmt.Errorf("scan person with pets: %w", err)
		}

		if current == nil || current.ID != p.ID {
			current = &models.PersonWithPets{Person: p, PetCount: count, Pets: []*models.Pet{}}
			out = append(out, current)
		}
		if petID.Valid {
			current.Pets = append(current.Pets, &models.Pet{
				ID:         petID.Int64,
				OwnerID:    p.ID,
				Name:       petName.String,
				AnimalType: animalType.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list people with pet counts: %w", err)
	}
	return out, nil
}

func writeWhere(b *strings.Builder, where []string) {
	if len(where) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(where, " AND "))
}

func writeLimit(b *strings.Builder, args []any, limit, offset int) []any {
	if limit <= 0 && offset <= 0 {
		return args
	}
	if limit <= 0 {
		limit = -1
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	return append(args, limit, offset)
}

func requireAffected(result sql.Result, format string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf(format+": %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf(format+": %w", id, db.ErrNotFound)
	}
	return nil
}

// translateError maps sql.ErrNoRows onto db.ErrNotFound.
func translateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNotFound
	}
	return err
}
