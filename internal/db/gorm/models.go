package gorm

import (
	"github.com/thebtf/peopledb/pkg/models"
)

// GORM Models

// Person is a row of the people table.
type Person struct {
	Name       string      `gorm:"index;not null"`
	Birthday   models.Date `gorm:"type:date;index;not null"`
	Pets       []Pet       `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	ID         int64       `gorm:"primaryKey;autoIncrement"`
	IsRelative bool        `gorm:"not null"`
}

func (Person) TableName() string { return "people" }

// personWithCount reads a person together with the computed pet_count
// column. It is kept apart from Person so joins on Pet.Owner only select
// real columns.
type personWithCount struct {
	Name       string
	Birthday   models.Date
	Pets       []Pet `gorm:"foreignKey:OwnerID"`
	ID         int64 `gorm:"primaryKey"`
	PetCount   int64 `gorm:"->"`
	IsRelative bool
}

func (personWithCount) TableName() string { return "people" }

// Pet is a row of the pets table.
type Pet struct {
	Owner      *Person `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Name       string  `gorm:"not null"`
	AnimalType string  `gorm:"index;not null"`
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	OwnerID    int64   `gorm:"index;not null"`
}

func (Pet) TableName() string { return "pets" }

func fromModelPerson(p *models.Person) *Person {
	return &Person{
		ID:         p.ID,
		Name:       p.Name,
		Birthday:   p.Birthday,
		IsRelative: p.IsRelative,
	}
}

func (p *Person) toModel() *models.Person {
	return &models.Person{
		ID:         p.ID,
		Name:       p.Name,
		Birthday:   p.Birthday,
		IsRelative: p.IsRelative,
	}
}

func (p *personWithCount) toModelWithPets() *models.PersonWithPets {
	out := &models.PersonWithPets{
		Person: models.Person{
			ID:         p.ID,
			Name:       p.Name,
			Birthday:   p.Birthday,
			IsRelative: p.IsRelative,
		},
		PetCount: p.PetCount,
		Pets:     make([]*models.Pet, 0, len(p.Pets)),
	}
	for i := range p.Pets {
		out.Pets = append(out.Pets, p.Pets[i].toModel())
	}
	return out
}

func fromModelPet(p *models.Pet) *Pet {
	return &Pet{
		ID:         p.ID,
		OwnerID:    p.OwnerID,
		Name:       p.Name,
		AnimalType: p.AnimalType,
	}
}

func (p *Pet) toModel() *models.Pet {
	out := &models.Pet{
		ID:         p.ID,
		OwnerID:    p.OwnerID,
		Name:       p.Name,
		AnimalType: p.AnimalType,
	}
	if p.Owner != nil && p.Owner.ID != 0 {
		out.Owner = p.Owner.toModel()
	}
	return out
}
