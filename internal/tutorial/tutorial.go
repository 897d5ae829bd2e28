// Package tutorial runs the people-and-pets walkthrough against a db.Store:
// it creates a small family, edits it, and then prints the result of each
// query style the store supports.
package tutorial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/pkg/models"
)

// Options control a single run.
type Options struct {
	// KeepExisting skips the initial Reset, so rows from earlier runs remain.
	KeepExisting bool
}

// Section is one printed block of the report. Lines holds the text rendering;
// the typed slices carry the same rows for JSON output.
type Section struct {
	Title   string                   `json:"title"`
	People  []*models.Person         `json:"people,omitempty"`
	Pets    []*models.Pet            `json:"pets,omitempty"`
	Counts  []*models.PersonWithPets `json:"counts,omitempty"`
	Lines   []string                 `json:"-"`
	Queries int64                    `json:"queries,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	RunID    string    `json:"run_id"`
	Sections []Section `json:"sections"`
}

// family holds the records created during the mutation phase.
type family struct {
	bob, grandma, herb *models.Person
}

// Run performs the walkthrough. The store is left open; the caller closes it.
func Run(ctx context.Context, store db.Store, opts Options) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", report.RunID).Logger()
	start := time.Now()

	logger.Info().Bool("keep_existing", opts.KeepExisting).Msg("Tutorial run started")

	if !opts.KeepExisting {
		if err := store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset tables: %w", err)
		}
	}

	fam, err := populate(ctx, store)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int64("bob", fam.bob.ID).
		Int64("grandma", fam.grandma.ID).
		Int64("herb", fam.herb.ID).
		Msg("Family created")

	steps := []func(context.Context, db.Store, *family) (Section, error){
		lookupGrandma,
		listPeople,
		catsWithOwners(db.OwnerLazy),
		catsWithOwners(db.OwnerEager),
		petsOfOwnerByName,
		petsOfOwnerByID,
		petsOfOwnerOrdered,
		peopleByBirthdayDesc,
		petCounts,
		bornOutside,
		namesStartingWithG,
	}
	for _, step := range steps {
		before := store.QueryCount()
		section, err := step(ctx, store, fam)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", section.Title, err)
		}
		section.Queries = store.QueryCount() - before
		report.Sections = append(report.Sections, section)
	}

	logger.Info().
		Int("sections", len(report.Sections)).
		Int64("queries", store.QueryCount()).
		Dur("duration", time.Since(start)).
		Msg("Tutorial run finished")

	return report, nil
}

// populate builds the family, renames Grandma, adds four pets, removes one
// and hands Fido over to Bob.
func populate(ctx context.Context, store db.Store) (*family, error) {
	// Construct, then save.
	bob := models.NewPerson("Bob", models.NewDate(1960, time.January, 15), true)
	if err := store.SavePerson(ctx, bob); err != nil {
		return nil, err
	}

	grandma := models.NewPerson("Grandma", models.NewDate(1935, time.March, 1), true)
	if err := store.CreatePerson(ctx, grandma); err != nil {
		return nil, err
	}
	herb := models.NewPerson("Herb", models.NewDate(1950, time.May, 5), false)
	if err := store.CreatePerson(ctx, herb); err != nil {
		return nil, err
	}

	grandma.Name = "Grandma L."
	if err := store.SavePerson(ctx, grandma); err != nil {
		return nil, err
	}

	pets := []*models.Pet{
		models.NewPet(bob, "Kitty", "cat"),
		models.NewPet(herb, "Fido", "dog"),
		models.NewPet(herb, "Mittens", "cat"),
		models.NewPet(herb, "Mittens Jr", "cat"),
	}
	for _, pet := range pets {
		if err := store.CreatePet(ctx, pet); err != nil {
			return nil, err
		}
	}
	fido, mittens := pets[1], pets[2]

	if err := store.DeletePet(ctx, mittens.ID); err != nil {
		return nil, err
	}

	fido.SetOwner(bob)
	if err := store.SavePet(ctx, fido); err != nil {
		return nil, err
	}

	return &family{bob: bob, grandma: grandma, herb: herb}, nil
}

// lookupGrandma fetches Grandma twice: first match of a filtered query, then
// a point lookup by name. Rows kept from earlier runs make the name
// ambiguous, in which case the point lookup goes by id.
func lookupGrandma(ctx context.Context, store db.Store, fam *family) (Section, error) {
	s := Section{Title: "Grandma lookup"}

	byName, err := db.Collect(store.People(ctx, db.PersonFilter{Name: "Grandma L.", Limit: 1}))
	if err != nil {
		return s, err
	}
	if len(byName) == 0 {
		return s, fmt.Errorf("person %q: %w", "Grandma L.", db.ErrNotFound)
	}
	point, err := store.GetPersonByName(ctx, "Grandma L.")
	if errors.Is(err, db.ErrMultipleMatches) {
		log.Debug().Int64("id", fam.grandma.ID).Msg("Grandma is ambiguous, looking up by id")
		point, err = store.GetPerson(ctx, fam.grandma.ID)
	}
	if err != nil {
		return s, err
	}

	for _, p := range []*models.Person{byName[0], point} {
		s.People = append(s.People, p)
		s.Lines = append(s.Lines, fmt.Sprintf("%s %s", p.Name, p.Birthday))
	}
	return s, nil
}

func listPeople(ctx context.Context, store db.Store, _ *family) (Section, error) {
	s := Section{Title: "People"}
	for p, err := range store.People(ctx, db.PersonFilter{}) {
		if err != nil {
			return s, err
		}
		s.People = append(s.People, p)
		s.Lines = append(s.Lines, fmt.Sprintf("%s %t", p.Name, p.IsRelative))
	}
	return s, nil
}

// catsWithOwners lists cats with their owner's name. The lazy variant costs
// one extra query per cat; the eager one joins people in the same query.
func catsWithOwners(mode db.OwnerLoad) func(context.Context, db.Store, *family) (Section, error) {
	return func(ctx context.Context, store db.Store, _ *family) (Section, error) {
		s := Section{Title: fmt.Sprintf("Cats and owners (%s)", mode)}
		for pet, err := range store.Pets(ctx, db.PetFilter{AnimalType: "cat", Owner: mode}) {
			if err != nil {
				return s, err
			}
			s.Pets = append(s.Pets, pet)
			s.Lines = append(s.Lines, fmt.Sprintf("%s %s", pet.Name, pet.Owner.Name))
		}
		return s, nil
	}
}

func petsOfOwnerByName(ctx context.Context, store db.Store, _ *family) (Section, error) {
	return petNames(ctx, store, "Bob's pets (join on owner name)", db.PetFilter{OwnerName: "Bob"})
}

func petsOfOwnerByID(ctx context.Context, store db.Store, fam *family) (Section, error) {
	return petNames(ctx, store, "Bob's pets (owner id)", db.PetFilter{OwnerID: fam.bob.ID})
}

func petsOfOwnerOrdered(ctx context.Context, store db.Store, fam *family) (Section, error) {
	return petNames(ctx, store, "Bob's pets by name", db.PetFilter{OwnerID: fam.bob.ID, Order: db.Asc("name")})
}

func petNames(ctx context.Context, store db.Store, title string, filter db.PetFilter) (Section, error) {
	s := Section{Title: title}
	for pet, err := range store.Pets(ctx, filter) {
		if err != nil {
			return s, err
		}
		s.Pets = append(s.Pets, pet)
		s.Lines = append(s.Lines, pet.Name)
	}
	return s, nil
}

func peopleByBirthdayDesc(ctx context.Context, store db.Store, _ *family) (Section, error) {
	return peopleWithBirthdays(ctx, store, "People by birthday, newest first",
		db.PersonFilter{Order: db.Desc("birthday")})
}

func bornOutside(ctx context.Context, store db.Store, _ *family) (Section, error) {
	return peopleWithBirthdays(ctx, store, "Born before 1940 or after 1959", db.PersonFilter{
		BornOutside: &db.DateRange{
			From: models.NewDate(1940, time.January, 1),
			To:   models.NewDate(1960, time.January, 1),
		},
	})
}

func peopleWithBirthdays(ctx context.Context, store db.Store, title string, filter db.PersonFilter) (Section, error) {
	s := Section{Title: title}
	for p, err := range store.People(ctx, filter) {
		if err != nil {
			return s, err
		}
		s.People = append(s.People, p)
		s.Lines = append(s.Lines, fmt.Sprintf("%s %s", p.Name, p.Birthday))
	}
	return s, nil
}

func petCounts(ctx context.Context, store db.Store, _ *family) (Section, error) {
	s := Section{Title: "People and their pets"}
	counts, err := store.PeopleWithPetCounts(ctx)
	if err != nil {
		return s, err
	}
	s.Counts = counts
	for _, p := range counts {
		s.Lines = append(s.Lines, fmt.Sprintf("%s %d pets", p.Name, p.PetCount))
		for _, pet := range p.Pets {
			s.Lines = append(s.Lines, fmt.Sprintf("    %s %s", pet.Name, pet.AnimalType))
		}
	}
	return s, nil
}

func namesStartingWithG(ctx context.Context, store db.Store, _ *family) (Section, error) {
	s := Section{Title: "Names starting with g or G"}
	for p, err := range store.People(ctx, db.PersonFilter{NameInitial: "g"}) {
		if err != nil {
			return s, err
		}
		s.People = append(s.People, p)
		s.Lines = append(s.Lines, p.Name)
	}
	return s, nil
}
