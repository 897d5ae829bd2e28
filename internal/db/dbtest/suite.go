// Package dbtest holds the behavioral test suite every db.Store must pass.
package dbtest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/pkg/models"
)

// Factory opens a fresh, empty store backed by a file under dir.
type Factory func(dir string) (db.Store, error)

// StoreSuite exercises a db.Store implementation end to end.
type StoreSuite struct {
	suite.Suite

	Open  Factory
	store db.Store
	ctx   context.Context
}

// SetupTest opens a new store per test.
func (s *StoreSuite) SetupTest() {
	store, err := s.Open(s.T().TempDir())
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

// TearDownTest closes the store.
func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

// family holds the people and pets seeded by seed.
type family struct {
	bob, grandma, herb          *models.Person
	kitty, fido, mittens, junior *models.Pet
}

func (s *StoreSuite) createPerson(name string, birthday models.Date, relative bool) *models.Person {
	p := models.NewPerson(name, birthday, relative)
	s.Require().NoError(s.store.CreatePerson(s.ctx, p))
	s.Require().NotZero(p.ID)
	return p
}

func (s *StoreSuite) createPet(owner *models.Person, name, animalType string) *models.Pet {
	p := models.NewPet(owner, name, animalType)
	s.Require().NoError(s.store.CreatePet(s.ctx, p))
	s.Require().NotZero(p.ID)
	return p
}

func (s *StoreSuite) seed() family {
	var f family
	f.bob = s.createPerson("Bob", models.NewDate(1960, time.January, 15), true)
	f.grandma = s.createPerson("Grandma", models.NewDate(1935, time.March, 1), true)
	f.herb = s.createPerson("Herb", models.NewDate(1950, time.May, 5), false)
	f.kitty = s.createPet(f.bob, "Kitty", "cat")
	f.fido = s.createPet(f.herb, "Fido", "dog")
	f.mittens = s.createPet(f.herb, "Mittens", "cat")
	f.junior = s.createPet(f.herb, "Mittens Jr", "cat")
	return f
}

func (s *StoreSuite) people(filter db.PersonFilter) []*models.Person {
	out, err := db.Collect(s.store.People(s.ctx, filter))
	s.Require().NoError(err)
	return out
}

func (s *StoreSuite) pets(filter db.PetFilter) []*models.Pet {
	out, err := db.Collect(s.store.Pets(s.ctx, filter))
	s.Require().NoError(err)
	return out
}

func personNames(people []*models.Person) []string {
	names := make([]string, len(people))
	for i, p := range people {
		names[i] = p.Name
	}
	return names
}

func petNames(pets []*models.Pet) []string {
	names := make([]string, len(pets))
	for i, p := range pets {
		names[i] = p.Name
	}
	return names
}

func (s *StoreSuite) TestInsertRoundTrip() {
	bob := s.createPerson("Bob", models.NewDate(1960, time.January, 15), true)

	got, err := s.store.GetPerson(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Equal(bob.ID, got.ID)
	s.Equal("Bob", got.Name)
	s.Equal("1960-01-15", got.Birthday.String())
	s.True(got.IsRelative)

	kitty := s.createPet(bob, "Kitty", "cat")
	pet, err := s.store.GetPet(s.ctx, kitty.ID)
	s.Require().NoError(err)
	s.Equal("Kitty", pet.Name)
	s.Equal("cat", pet.AnimalType)
	s.Equal(bob.ID, pet.OwnerID)
	s.Require().NotNil(pet.Owner)
	s.Equal("Bob", pet.Owner.Name)
}

func (s *StoreSuite) TestSaveInsertsThenUpdates() {
	grandma := models.NewPerson("Grandma", models.NewDate(1935, time.March, 1), true)
	s.Require().NoError(s.store.SavePerson(s.ctx, grandma))
	s.Require().NotZero(grandma.ID)

	grandma.Name = "Grandma L."
	s.Require().NoError(s.store.SavePerson(s.ctx, grandma))

	got, err := s.store.GetPerson(s.ctx, grandma.ID)
	s.Require().NoError(err)
	s.Equal("Grandma L.", got.Name)

	_, err = s.store.GetPersonByName(s.ctx, "Grandma")
	s.ErrorIs(err, db.ErrNotFound)

	byName, err := s.store.GetPersonByName(s.ctx, "Grandma L.")
	s.Require().NoError(err)
	s.Equal(grandma.ID, byName.ID)
}

func (s *StoreSuite) TestDeletePet() {
	f := s.seed()

	s.Require().NoError(s.store.DeletePet(s.ctx, f.mittens.ID))

	_, err := s.store.GetPet(s.ctx, f.mittens.ID)
	s.ErrorIs(err, db.ErrNotFound)

	names := petNames(s.pets(db.PetFilter{OwnerID: f.herb.ID, Order: db.Asc("name")}))
	s.Equal([]string{"Fido", "Mittens Jr"}, names)

	s.ErrorIs(s.store.DeletePet(s.ctx, f.mittens.ID), db.ErrNotFound)
}

func (s *StoreSuite) TestReassignOwner() {
	f := s.seed()

	f.fido.SetOwner(f.bob)
	s.Require().NoError(s.store.SavePet(s.ctx, f.fido))

	bobs := petNames(s.pets(db.PetFilter{OwnerName: "Bob", Order: db.Asc("name")}))
	s.Equal([]string{"Fido", "Kitty"}, bobs)

	herbs := petNames(s.pets(db.PetFilter{OwnerID: f.herb.ID, Order: db.Asc("name")}))
	s.Equal([]string{"Mittens", "Mittens Jr"}, herbs)

	fido, err := s.store.GetPet(s.ctx, f.fido.ID)
	s.Require().NoError(err)
	s.Equal("Bob", fido.Owner.Name)
}

func (s *StoreSuite) TestReassignScenario() {
	bob := s.createPerson("Bob", models.NewDate(1960, time.January, 15), true)
	herb := s.createPerson("Herb", models.NewDate(1950, time.May, 5), false)
	fido := s.createPet(herb, "Fido", "dog")

	fido.SetOwner(bob)
	s.Require().NoError(s.store.SavePet(s.ctx, fido))

	pets := s.pets(db.PetFilter{OwnerID: bob.ID})
	s.Require().Len(pets, 1)
	s.Equal("Fido", pets[0].Name)
}

func (s *StoreSuite) TestEqualityFilter() {
	f := s.seed()

	cats := s.pets(db.PetFilter{AnimalType: "cat"})
	s.ElementsMatch([]string{"Kitty", "Mittens", "Mittens Jr"}, petNames(cats))
	for _, c := range cats {
		s.Nil(c.Owner)
	}

	relatives := s.people(db.PersonFilter{IsRelative: db.Bool(true)})
	s.ElementsMatch([]string{"Bob", "Grandma"}, personNames(relatives))

	herbCats := s.pets(db.PetFilter{AnimalType: "cat", OwnerID: f.herb.ID})
	s.ElementsMatch([]string{"Mittens", "Mittens Jr"}, petNames(herbCats))
}

func (s *StoreSuite) TestOrdering() {
	s.seed()

	byBirthdayDesc := personNames(s.people(db.PersonFilter{Order: db.Desc("birthday")}))
	s.Equal([]string{"Bob", "Herb", "Grandma"}, byBirthdayDesc)

	byNameAsc := personNames(s.people(db.PersonFilter{Order: db.Asc("name")}))
	s.Equal([]string{"Bob", "Grandma", "Herb"}, byNameAsc)

	byNameDesc := petNames(s.pets(db.PetFilter{Order: db.Desc("name")}))
	s.Equal([]string{"Mittens Jr", "Mittens", "Kitty", "Fido"}, byNameDesc)

	_, err := db.Collect(s.store.People(s.ctx, db.PersonFilter{Order: db.Asc("shoe_size")}))
	s.ErrorIs(err, db.ErrInvalidOrder)
}

func (s *StoreSuite) TestBornOutsideRange() {
	s.seed()

	got := s.people(db.PersonFilter{
		BornOutside: &db.DateRange{
			From: models.NewDate(1940, time.January, 1),
			To:   models.NewDate(1960, time.January, 1),
		},
		Order: db.Asc("name"),
	})
	s.Equal([]string{"Bob", "Grandma"}, personNames(got))
}

func (s *StoreSuite) TestNameInitialIgnoresCase() {
	s.seed()
	s.createPerson("gus", models.NewDate(1990, time.July, 4), false)

	for _, initial := range []string{"g", "G"} {
		got := s.people(db.PersonFilter{NameInitial: initial, Order: db.Asc("name")})
		s.Equal([]string{"Grandma", "gus"}, personNames(got), "initial %q", initial)
	}
}

func (s *StoreSuite) TestPagination() {
	s.seed()

	page := personNames(s.people(db.PersonFilter{Order: db.Asc("name"), Limit: 2}))
	s.Equal([]string{"Bob", "Grandma"}, page)

	rest := personNames(s.people(db.PersonFilter{Order: db.Asc("name"), Offset: 2}))
	s.Equal([]string{"Herb"}, rest)
}

func (s *StoreSuite) TestLazyOwnerIssuesOneQueryPerPet() {
	s.seed()

	before := s.store.QueryCount()
	lazy := s.pets(db.PetFilter{AnimalType: "cat", Owner: db.OwnerLazy})
	lazyQueries := s.store.QueryCount() - before

	before = s.store.QueryCount()
	eager := s.pets(db.PetFilter{AnimalType: "cat", Owner: db.OwnerEager})
	eagerQueries := s.store.QueryCount() - before

	s.Require().Len(lazy, 3)
	s.Require().Len(eager, 3)
	s.Equal(int64(1+len(lazy)), lazyQueries)
	s.Equal(int64(1), eagerQueries)

	for i := range lazy {
		s.Require().NotNil(lazy[i].Owner)
		s.Require().NotNil(eager[i].Owner)
		s.Equal(lazy[i].Owner.Name, eager[i].Owner.Name)
	}
}

func (s *StoreSuite) TestPetCounts() {
	f := s.seed()
	s.Require().NoError(s.store.DeletePet(s.ctx, f.mittens.ID))
	f.fido.SetOwner(f.bob)
	s.Require().NoError(s.store.SavePet(s.ctx, f.fido))

	got, err := s.store.PeopleWithPetCounts(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 3)

	s.Equal("Bob", got[0].Name)
	s.Equal(int64(2), got[0].PetCount)
	s.Equal([]string{"Fido", "Kitty"}, petNames(got[0].Pets))

	s.Equal("Grandma", got[1].Name)
	s.Equal(int64(0), got[1].PetCount)
	s.Empty(got[1].Pets)

	s.Equal("Herb", got[2].Name)
	s.Equal(int64(1), got[2].PetCount)
	s.Equal([]string{"Mittens Jr"}, petNames(got[2].Pets))

	for _, p := range got {
		s.Equal(p.PetCount, int64(len(p.Pets)))
	}
}

func (s *StoreSuite) TestPointLookupMultipleMatches() {
	s.createPerson("Bob", models.NewDate(1960, time.January, 15), true)
	s.createPerson("Bob", models.NewDate(1961, time.February, 2), false)

	_, err := s.store.GetPersonByName(s.ctx, "Bob")
	s.ErrorIs(err, db.ErrMultipleMatches)

	_, err = s.store.GetPersonByName(s.ctx, "Nobody")
	s.ErrorIs(err, db.ErrNotFound)

	_, err = s.store.GetPerson(s.ctx, 9999)
	s.ErrorIs(err, db.ErrNotFound)
}

func (s *StoreSuite) TestSequenceIsNotRestartable() {
	s.seed()

	seq := s.store.People(s.ctx, db.PersonFilter{})
	first, err := db.Collect(seq)
	s.Require().NoError(err)
	s.Len(first, 3)

	_, err = db.Collect(seq)
	s.ErrorIs(err, db.ErrSequenceConsumed)
}

func (s *StoreSuite) TestSequenceIsLazy() {
	s.seed()

	before := s.store.QueryCount()
	seq := s.store.Pets(s.ctx, db.PetFilter{})
	s.Equal(before, s.store.QueryCount())

	for range seq {
		break
	}
	s.Equal(before+1, s.store.QueryCount())
}

func (s *StoreSuite) TestForeignKeyEnforced() {
	f := s.seed()

	orphan := &models.Pet{OwnerID: 9999, Name: "Ghost", AnimalType: "cat"}
	s.Error(s.store.CreatePet(s.ctx, orphan))

	s.Error(s.store.DeletePerson(s.ctx, f.herb.ID))
	_, err := s.store.GetPerson(s.ctx, f.herb.ID)
	s.NoError(err)

	s.Require().NoError(s.store.DeletePerson(s.ctx, f.grandma.ID))
	s.ErrorIs(s.store.DeletePerson(s.ctx, f.grandma.ID), db.ErrNotFound)
}

func (s *StoreSuite) TestReset() {
	s.seed()

	s.Require().NoError(s.store.Reset(s.ctx))

	s.Empty(s.people(db.PersonFilter{}))
	s.Empty(s.pets(db.PetFilter{}))
}

func (s *StoreSuite) TestClosedStoreFails() {
	s.Require().NoError(s.store.Close())

	_, err := s.store.GetPerson(s.ctx, 1)
	s.Error(err)

	s.store = nil
}
