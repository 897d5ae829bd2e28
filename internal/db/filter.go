package db

import (
	"fmt"
	"strings"

	"github.com/thebtf/peopledb/pkg/models"
)

// Order sorts an enumeration by a single field.
type Order struct {
	Field string
	Desc  bool
}

// Asc orders ascending by field.
func Asc(field string) Order { return Order{Field: field} }

// Desc orders descending by field.
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// IsZero reports whether no ordering was requested.
func (o Order) IsZero() bool { return o.Field == "" }

// Clause renders the ORDER BY clause against the given table. Ties are broken
// by id so that the output is deterministic.
func (o Order) Clause(table string, allowed []string) (string, error) {
	if o.IsZero() {
		return table + ".id", nil
	}
	field := strings.ToLower(o.Field)
	valid := false
	for _, a := range allowed {
		if a == field {
			valid = true
			break
		}
	}
	if !valid {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, o.Field)
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s.%s %s, %s.id %s", table, field, dir, table, dir), nil
}

// PersonOrderFields are the columns people may be ordered by.
var PersonOrderFields = []string{"name", "birthday"}

// PetOrderFields are the columns pets may be ordered by.
var PetOrderFields = []string{"name", "animal_type"}

// DateRange is an inclusive pair of dates.
type DateRange struct {
	From models.Date
	To   models.Date
}

// PersonFilter narrows a person enumeration. Zero-valued fields are ignored;
// set fields combine with AND.
type PersonFilter struct {
	Name       string
	IsRelative *bool
	// BornOutside matches birthday < From OR birthday > To.
	BornOutside *DateRange
	// NameInitial matches the first letter of the name, ignoring case.
	NameInitial string
	Order       Order
	Limit       int
	Offset      int
}

// OwnerLoad selects how a pet enumeration resolves owners.
type OwnerLoad int

const (
	// OwnerNone leaves Pet.Owner nil.
	OwnerNone OwnerLoad = iota
	// OwnerLazy issues one owner query per yielded pet.
	OwnerLazy
	// OwnerEager fetches pets and owners in a single joined query.
	OwnerEager
)

// String returns the mode name.
func (o OwnerLoad) String() string {
	switch o {
	case OwnerLazy:
		return "lazy"
	case OwnerEager:
		return "eager"
	default:
		return "none"
	}
}

// PetFilter narrows a pet enumeration. Zero-valued fields are ignored;
// set fields combine with AND.
type PetFilter struct {
	AnimalType string
	OwnerID    int64
	// OwnerName joins people and matches the owner's name exactly.
	OwnerName string
	Owner     OwnerLoad
	Order     Order
	Limit     int
	Offset    int
}

// Bool returns a pointer to b, for optional filter fields.
func Bool(b bool) *bool { return &b }
