package models

// Person is someone who may own pets.
type Person struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Birthday   Date   `db:"birthday" json:"birthday"`
	IsRelative bool   `db:"is_relative" json:"is_relative"`
}

// NewPerson constructs an unsaved Person.
func NewPerson(name string, birthday Date, isRelative bool) *Person {
	return &Person{
		Name:       name,
		Birthday:   birthday,
		IsRelative: isRelative,
	}
}

// PersonWithPets is a person annotated with the pets they own.
// PetCount comes from the database and is reported separately from Pets.
type PersonWithPets struct {
	Person
	PetCount int64  `json:"pet_count"`
	Pets     []*Pet `json:"pets"`
}
