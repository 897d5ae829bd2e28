package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/internal/db/gorm"
	"github.com/thebtf/peopledb/internal/db/sqlite"
	"github.com/thebtf/peopledb/pkg/models"
)

type fixture struct {
	store       db.Store
	handler     http.Handler
	bob, herb   *models.Person
	kitty, fido *models.Pet
}

var backends = map[string]func(t *testing.T) db.Store{
	"gorm": func(t *testing.T) db.Store {
		store, err := gorm.NewStore(gorm.Config{
			Path:     filepath.Join(t.TempDir(), "people.db"),
			LogLevel: logger.Silent,
		})
		require.NoError(t, err)
		return gorm.NewRepository(store)
	},
	"sql": func(t *testing.T) db.Store {
		store, err := sqlite.NewStore(sqlite.StoreConfig{Path: filepath.Join(t.TempDir(), "people.db")})
		require.NoError(t, err)
		return store
	},
}

// forEachBackend runs fn against a populated fixture on every store backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, newFixture(t, open(t)))
		})
	}
}

func newFixture(t *testing.T, store db.Store) *fixture {
	t.Helper()
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	f := &fixture{store: store, handler: NewServer(store).Handler()}

	f.bob = models.NewPerson("Bob", models.NewDate(1960, time.January, 15), true)
	f.herb = models.NewPerson("Herb", models.NewDate(1950, time.May, 5), false)
	for _, p := range []*models.Person{f.bob, f.herb} {
		require.NoError(t, store.CreatePerson(ctx, p))
	}
	f.kitty = models.NewPet(f.bob, "Kitty", "cat")
	f.fido = models.NewPet(f.herb, "Fido", "dog")
	for _, p := range []*models.Pet{f.kitty, f.fido} {
		require.NoError(t, store.CreatePet(ctx, p))
	}
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		info := decode[db.HealthInfo](t, rec)
		assert.Equal(t, "healthy", info.Status)
		assert.NotEmpty(t, rec.Header().Get("Content-Type"))
	})
}

func TestListPeople(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		tests := []struct {
			name  string
			query string
			want  []string
		}{
			{"all", "", []string{"Bob", "Herb"}},
			{"by name", "?name=Herb", []string{"Herb"}},
			{"relatives", "?relative=true", []string{"Bob"}},
			{"initial", "?initial=h", []string{"Herb"}},
			{"birthday desc", "?order=birthday&desc=true", []string{"Bob", "Herb"}},
			{"birthday asc", "?order=birthday", []string{"Herb", "Bob"}},
			{"page", "?limit=1&offset=1", []string{"Herb"}},
			{"no match", "?name=Nobody", []string{}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := f.do(t, http.MethodGet, "/api/people"+tt.query, nil)
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

				people := decode[[]models.Person](t, rec)
				names := make([]string, 0, len(people))
				for _, p := range people {
					names = append(names, p.Name)
				}
				assert.Equal(t, tt.want, names)
			})
		}
	})
}

func TestListPeople_BadParams(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/people?order=color", nil).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/people?relative=maybe", nil).Code)
	})
}

func TestGetPerson(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodGet, "/api/people/"+itoa(f.bob.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[models.Person](t, rec)
		assert.Equal(t, f.bob.ID, got.ID)
		assert.Equal(t, "Bob", got.Name)
		assert.Equal(t, "1960-01-15", got.Birthday.String())
		assert.True(t, got.IsRelative)

		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/people/999", nil).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/people/abc", nil).Code)
	})
}

func TestCreatePerson(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodPost, "/api/people", map[string]any{
			"name":        "Grandma",
			"birthday":    "1935-03-01",
			"is_relative": true,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		created := decode[models.Person](t, rec)
		assert.NotZero(t, created.ID)

		stored, err := f.store.GetPerson(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "1935-03-01", stored.Birthday.String())
	})
}

func TestCreatePerson_Invalid(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/people", map[string]any{"name": ""}).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/people", map[string]any{"name": "X"}).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/people", map[string]any{
			"name": "X", "birthday": "15/01/1960",
		}).Code)

		req := httptest.NewRequest(http.MethodPost, "/api/people", bytes.NewReader([]byte("name=X")))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestPetCounts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodGet, "/api/people/counts", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		counts := decode[[]models.PersonWithPets](t, rec)
		require.Len(t, counts, 2)
		assert.Equal(t, "Bob", counts[0].Name)
		assert.Equal(t, int64(1), counts[0].PetCount)
		require.Len(t, counts[0].Pets, 1)
		assert.Equal(t, "Kitty", counts[0].Pets[0].Name)
	})
}

func TestListPets(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodGet, "/api/pets?animal_type=cat&eager=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		pets := decode[[]models.Pet](t, rec)
		require.Len(t, pets, 1)
		require.NotNil(t, pets[0].Owner)
		assert.Equal(t, "Bob", pets[0].Owner.Name)

		rec = f.do(t, http.MethodGet, "/api/pets?owner_name=Herb", nil)
		pets = decode[[]models.Pet](t, rec)
		require.Len(t, pets, 1)
		assert.Equal(t, "Fido", pets[0].Name)
		assert.Nil(t, pets[0].Owner)

		rec = f.do(t, http.MethodGet, "/api/pets?owner_id="+itoa(f.bob.ID), nil)
		pets = decode[[]models.Pet](t, rec)
		require.Len(t, pets, 1)
		assert.Equal(t, "Kitty", pets[0].Name)

		rec = f.do(t, http.MethodGet, "/api/pets?order=name&desc=true", nil)
		pets = decode[[]models.Pet](t, rec)
		require.Len(t, pets, 2)
		assert.Equal(t, "Kitty", pets[0].Name)

		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/pets?owner_id=x", nil).Code)
	})
}

func TestGetPet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodGet, "/api/pets/"+itoa(f.fido.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		pet := decode[models.Pet](t, rec)
		assert.Equal(t, "Fido", pet.Name)
		require.NotNil(t, pet.Owner)
		assert.Equal(t, "Herb", pet.Owner.Name)

		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/pets/999", nil).Code)
	})
}

func TestCreatePet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodPost, "/api/pets", map[string]any{
			"name": "Mittens", "animal_type": "cat", "owner_id": f.herb.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		pet := decode[models.Pet](t, rec)
		assert.Equal(t, f.herb.ID, pet.OwnerID)

		rec = f.do(t, http.MethodPost, "/api/pets", map[string]any{
			"name": "Ghost", "animal_type": "cat", "owner_id": 999,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdatePet_ReassignOwner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodPatch, "/api/pets/"+itoa(f.fido.ID), map[string]any{"owner_id": f.bob.ID})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		patched := decode[models.Pet](t, rec)
		require.NotNil(t, patched.Owner)
		assert.Equal(t, "Bob", patched.Owner.Name)

		rec = f.do(t, http.MethodGet, "/api/pets?owner_name=Bob&order=name", nil)
		pets := decode[[]models.Pet](t, rec)
		require.Len(t, pets, 2)
		assert.Equal(t, "Fido", pets[0].Name)
		assert.Equal(t, "dog", pets[0].AnimalType)
	})
}

func TestUpdatePet_Rename(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodPatch, "/api/pets/"+itoa(f.kitty.ID), map[string]any{"name": "Kit"})
		require.Equal(t, http.StatusOK, rec.Code)

		got, err := f.store.GetPet(context.Background(), f.kitty.ID)
		require.NoError(t, err)
		assert.Equal(t, "Kit", got.Name)
		assert.Equal(t, f.bob.ID, got.OwnerID)

		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPatch, "/api/pets/999", map[string]any{"name": "X"}).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, "/api/pets/"+itoa(f.kitty.ID), map[string]any{"owner_id": 999}).Code)
	})
}

func TestDeletePet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		rec := f.do(t, http.MethodDelete, "/api/pets/"+itoa(f.kitty.ID), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/pets/"+itoa(f.kitty.ID), nil).Code)
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/pets/"+itoa(f.kitty.ID), nil).Code)
	})
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", DefaultPageLimit},
		{"?limit=5", 5},
		{"?limit=0", DefaultPageLimit},
		{"?limit=-3", DefaultPageLimit},
		{"?limit=abc", DefaultPageLimit},
		{"?limit=5000", MaxPageLimit},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/people"+tt.query, nil)
		assert.Equal(t, tt.want, parseLimit(r), tt.query)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
