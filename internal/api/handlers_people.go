package api

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/pkg/models"
)

// handleListPeople handles GET /api/people.
func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	relative, err := parseBool(r, "relative")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	order, err := parseOrder(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	people, err := db.Collect(s.store.People(r.Context(), db.PersonFilter{
		Name:        q.Get("name"),
		IsRelative:  relative,
		NameInitial: q.Get("initial"),
		Order:       order,
		Limit:       parseLimit(r),
		Offset:      parseOffset(r),
	}))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if people == nil {
		people = []*models.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

// handleGetPerson handles GET /api/people/{id}.
func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	person, err := s.store.GetPerson(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

// handlePetCounts handles GET /api/people/counts.
func (s *Server) handlePetCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.PeopleWithPetCounts(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if counts == nil {
		counts = []*models.PersonWithPets{}
	}
	writeJSON(w, http.StatusOK, counts)
}

type createPersonRequest struct {
	Name       string      `json:"name"`
	Birthday   models.Date `json:"birthday"`
	IsRelative bool        `json:"is_relative"`
}

// handleCreatePerson handles POST /api/people.
func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if req.Birthday.IsZero() {
		http.Error(w, "birthday required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	person := models.NewPerson(req.Name, req.Birthday, req.IsRelative)
	if err := s.store.CreatePerson(r.Context(), person); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, person)
}
