package tutorial

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/internal/db/gorm"
	"github.com/thebtf/peopledb/internal/db/sqlite"
)

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

func sectionLines(r *Report) map[string][]string {
	out := make(map[string][]string, len(r.Sections))
	for _, s := range r.Sections {
		out[s.Title] = s.Lines
	}
	return out
}

func TestRun(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			report, err := Run(context.Background(), store, Options{})
			require.NoError(t, err)
			assert.NotEmpty(t, report.RunID)
			require.Len(t, report.Sections, 11)

			lines := sectionLines(report)
			assert.Equal(t, []string{"Grandma L. 1935-03-01", "Grandma L. 1935-03-01"}, lines["Grandma lookup"])
			assert.Equal(t, []string{"Bob true", "Grandma L. true", "Herb false"}, lines["People"])
			assert.Equal(t, []string{"Kitty Bob", "Mittens Jr Herb"}, lines["Cats and owners (lazy)"])
			assert.Equal(t, []string{"Kitty Bob", "Mittens Jr Herb"}, lines["Cats and owners (eager)"])
			assert.Equal(t, []string{"Kitty", "Fido"}, lines["Bob's pets (join on owner name)"])
			assert.Equal(t, []string{"Kitty", "Fido"}, lines["Bob's pets (owner id)"])
			assert.Equal(t, []string{"Fido", "Kitty"}, lines["Bob's pets by name"])
			assert.Equal(t, []string{
				"Bob 1960-01-15",
				"Herb 1950-05-05",
				"Grandma L. 1935-03-01",
			}, lines["People by birthday, newest first"])
			assert.Equal(t, []string{
				"Bob 2 pets",
				"    Fido dog",
				"    Kitty cat",
				"Grandma L. 0 pets",
				"Herb 1 pets",
				"    Mittens Jr cat",
			}, lines["People and their pets"])
			assert.Equal(t, []string{"Bob 1960-01-15", "Grandma L. 1935-03-01"}, lines["Born before 1940 or after 1959"])
			assert.Equal(t, []string{"Grandma L."}, lines["Names starting with g or G"])
		})
	}
}

func TestRun_QueryCounts(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			report, err := Run(context.Background(), store, Options{})
			require.NoError(t, err)

			queries := make(map[string]int64)
			for _, s := range report.Sections {
				queries[s.Title] = s.Queries
			}
			// One query for the cats plus one per cat for its owner.
			assert.Equal(t, int64(3), queries["Cats and owners (lazy)"])
			assert.Equal(t, int64(1), queries["Cats and owners (eager)"])
			assert.Equal(t, int64(1), queries["People"])
			// A filtered first match plus a single point lookup by name.
			assert.Equal(t, int64(2), queries["Grandma lookup"])
		})
	}
}

func TestRun_RepeatableByDefault(t *testing.T) {
	store := backends["sql"](t)
	defer store.Close()
	ctx := context.Background()

	first, err := Run(ctx, store, Options{})
	require.NoError(t, err)
	second, err := Run(ctx, store, Options{})
	require.NoError(t, err)

	assert.Equal(t, sectionLines(first), sectionLines(second))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_KeepExisting(t *testing.T) {
	store := backends["gorm"](t)
	defer store.Close()
	ctx := context.Background()

	_, err := Run(ctx, store, Options{})
	require.NoError(t, err)
	report, err := Run(ctx, store, Options{KeepExisting: true})
	require.NoError(t, err)

	assert.Len(t, sectionLines(report)["People"], 6)

	// The name is now ambiguous, so the point lookup falls back to the id.
	assert.Equal(t, []string{"Grandma L. 1935-03-01", "Grandma L. 1935-03-01"}, sectionLines(report)["Grandma lookup"])
	for _, s := range report.Sections {
		if s.Title == "Grandma lookup" {
			assert.Equal(t, int64(3), s.Queries)
		}
	}
}

func TestPrint_Text(t *testing.T) {
	report := &Report{Sections: []Section{
		{Title: "People", Lines: []string{"Bob true"}, Queries: 1},
		{Title: "Cats", Lines: []string{"Kitty Bob"}, Queries: 3},
	}}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, report, "text"))

	assert.Equal(t, strings.Join([]string{
		"== People == (1 query)",
		"Bob true",
		"",
		"== Cats == (3 queries)",
		"Kitty Bob",
		"",
	}, "\n"), buf.String())
}

func TestPrint_JSON(t *testing.T) {
	store := backends["sql"](t)
	defer store.Close()

	report, err := Run(context.Background(), store, Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, report, "json"))

	var decoded struct {
		RunID    string `json:"run_id"`
		Sections []struct {
			Title  string `json:"title"`
			People []struct {
				Name     string `json:"name"`
				Birthday string `json:"birthday"`
			} `json:"people"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	require.Len(t, decoded.Sections, len(report.Sections))
	assert.Equal(t, "Grandma L.", decoded.Sections[0].People[0].Name)
	assert.Equal(t, "1935-03-01", decoded.Sections[0].People[0].Birthday)
	assert.NotContains(t, buf.String(), "Lines")
}
