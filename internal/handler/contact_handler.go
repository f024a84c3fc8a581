package handler

import (
	"net/http"

	"github.com/victor-igor/wacrm-backend/internal/repository"
)

// ContactHandler is the read-only contact surface the campaign UI needs.
type ContactHandler struct {
	Repo repository.ContactRepositoryInterface
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := listContacts(h.Repo, r.URL.Query().Get("tag"))
	if err != nil {
		writeError(w, "list contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": contacts})
}

func listContacts(repo repository.ContactRepositoryInterface, tag string) (any, error) {
	if tag != "" {
		return repo.ListByTag(tag)
	}
	return repo.ListAll()
}
