package models

// Pet is an animal owned by exactly one Person.
type Pet struct {
	ID         int64  `db:"id" json:"id"`
	OwnerID    int64  `db:"owner_id" json:"owner_id"`
	Name       string `db:"name" json:"name"`
	AnimalType string `db:"animal_type" json:"animal_type"`

	// Owner is populated only when the query asked for it.
	Owner *Person `db:"-" json:"owner,omitempty"`
}

// NewPet constructs an unsaved Pet owned by owner.
func NewPet(owner *Person, name, animalType string) *Pet {
	p := &Pet{
		Name:       name,
		AnimalType: animalType,
		Owner:      owner,
	}
	if owner != nil {
		p.OwnerID = owner.ID
	}
	return p
}

// SetOwner reassigns the pet to another person. The change is persisted on save.
func (p *Pet) SetOwner(owner *Person) {
	p.Owner = owner
	p.OwnerID = owner.ID
}
