package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/pkg/models"
)

// handleListPets handles GET /api/pets. With eager=true each pet carries
// its owner, fetched in the same query.
func (s *Server) handleListPets(w http.ResponseWriter, r *http.Request) {
	order, err := parseOrder(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	eager, err := parseBool(r, "eager")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	filter := db.PetFilter{
		AnimalType: q.Get("animal_type"),
		OwnerName:  q.Get("owner_name"),
		Order:      order,
		Limit:      parseLimit(r),
		Offset:     parseOffset(r),
	}
	if v := q.Get("owner_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid owner_id", http.StatusBadRequest)
			return
		}
		filter.OwnerID = id
	}
	if eager != nil && *eager {
		filter.Owner = db.OwnerEager
	}

	pets, err := db.Collect(s.store.Pets(r.Context(), filter))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if pets == nil {
		pets = []*models.Pet{}
	}
	writeJSON(w, http.StatusOK, pets)
}

// handleGetPet handles GET /api/pets/{id}.
func (s *Server) handleGetPet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pet, err := s.store.GetPet(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pet)
}

type createPetRequest struct {
	Name       string `json:"name"`
	AnimalType string `json:"animal_type"`
	OwnerID    int64  `json:"owner_id"`
}

// handleCreatePet handles POST /api/pets.
func (s *Server) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	var req createPetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.AnimalType = strings.TrimSpace(req.AnimalType)
	if req.Name == "" || req.AnimalType == "" {
		http.Error(w, "name and animal_type required", http.StatusBadRequest)
		return
	}

	owner, ok := s.lookupOwner(w, r, req.OwnerID)
	if !ok {
		return
	}

	pet := models.NewPet(owner, req.Name, req.AnimalType)
	if err := s.store.CreatePet(r.Context(), pet); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pet)
}

type updatePetRequest struct {
	Name       *string `json:"name"`
	AnimalType *string `json:"animal_type"`
	OwnerID    *int64  `json:"owner_id"`
}

// handleUpdatePet handles PATCH /api/pets/{id}: rename, retype or
// reassign a pet. Absent fields keep their stored value.
func (s *Server) handleUpdatePet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req updatePetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	pet, err := s.store.GetPet(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			http.Error(w, "name must not be empty", http.StatusBadRequest)
			return
		}
		pet.Name = strings.TrimSpace(*req.Name)
	}
	if req.AnimalType != nil {
		if strings.TrimSpace(*req.AnimalType) == "" {
			http.Error(w, "animal_type must not be empty", http.StatusBadRequest)
			return
		}
		pet.AnimalType = strings.TrimSpace(*req.AnimalType)
	}
	if req.OwnerID != nil && *req.OwnerID != pet.OwnerID {
		owner, ok := s.lookupOwner(w, r, *req.OwnerID)
		if !ok {
			return
		}
		pet.SetOwner(owner)
	}

	if err := s.store.SavePet(r.Context(), pet); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pet)
}

// handleDeletePet handles DELETE /api/pets/{id}.
func (s *Server) handleDeletePet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.DeletePet(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookupOwner resolves an owner id, answering 400 itself when the owner does
// not exist.
func (s *Server) lookupOwner(w http.ResponseWriter, r *http.Request, id int64) (*models.Person, bool) {
	if id <= 0 {
		http.Error(w, "owner_id required", http.StatusBadRequest)
		return nil, false
	}
	owner, err := s.store.GetPerson(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "unknown owner_id", http.StatusBadRequest)
		return nil, false
	}
	if err != nil {
		writeStoreError(w, r, err)
		return nil, false
	}
	return owner, true
}
