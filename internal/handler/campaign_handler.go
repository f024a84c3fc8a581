package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
	"github.com/victor-igor/wacrm-backend/internal/model"
	"github.com/victor-igor/wacrm-backend/internal/repository"
	"github.com/victor-igor/wacrm-backend/internal/service"
)

// CampaignHandler exposes campaign CRUD and status toggling.
type CampaignHandler struct {
	Service *service.CampaignService
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CampaignInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, "create campaign", apperrors.NewValidation("body", "malformed json"))
		return
	}
	campaign, err := h.Service.Create(actorFrom(r), in)
	if err != nil {
		writeError(w, "create campaign", err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, "get campaign", err)
		return
	}
	campaign, err := h.Service.Get(id)
	if err != nil {
		writeError(w, "get campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, "update campaign", err)
		return
	}
	var in service.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, "update campaign", apperrors.NewValidation("body", "malformed json"))
		return
	}
	campaign, err := h.Service.Update(actorFrom(r), id, in)
	if err != nil {
		writeError(w, "update campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, "delete campaign", err)
		return
	}
	if err := h.Service.Delete(actorFrom(r), id); err != nil {
		writeError(w, "delete campaign", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, "toggle campaign status", err)
		return
	}
	var body struct {
		Status model.CampaignStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "toggle campaign status", apperrors.NewValidation("body", "malformed json"))
		return
	}
	if err := h.Service.ToggleStatus(actorFrom(r), id, body.Status); err != nil {
		writeError(w, "toggle campaign status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ListFilter{}
	if after := r.URL.Query().Get("created_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			writeError(w, "list campaigns", apperrors.NewValidation("created_after", "expected RFC3339 timestamp"))
			return
		}
		filter.CreatedAfter = &t
	}
	if before := r.URL.Query().Get("created_before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			writeError(w, "list campaigns", apperrors.NewValidation("created_before", "expected RFC3339 timestamp"))
			return
		}
		filter.CreatedBefore = &t
	}
	campaigns, err := h.Service.List(filter)
	if err != nil {
		writeError(w, "list campaigns", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": campaigns})
}

func campaignID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewValidation("id", "expected a uuid")
	}
	return id, nil
}
