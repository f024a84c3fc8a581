package handler

import (
	"net/http"
	"time"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
	"github.com/victor-igor/wacrm-backend/internal/service"
)

// ReportHandler serves aggregated delivery statistics and audience previews.
type ReportHandler struct {
	Reports  *service.ReportService
	Resolver *service.AudienceResolver
}

// Report renders the campaign's stats, optionally windowed with ?from= and
// ?to= (RFC3339 or bare YYYY-MM-DD dates; a bare end date is inclusive).
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, "load campaign report", err)
		return
	}

	window, err := parseWindow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, "load campaign report", err)
		return
	}

	stats, err := h.Reports.Report(id, window)
	if err != nil {
		writeError(w, "load campaign report", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":         stats,
		"delivery_rate": service.Percent(stats.Delivered, stats.Total),
		"failure_rate":  service.Percent(stats.Failed, stats.Total),
	})
}

// AudiencePreview dry-runs the resolver so the UI can show how many contacts
// the next batch would reach.
func (h *ReportHandler) AudiencePreview(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, "preview audience", err)
		return
	}
	contacts, err := h.Resolver.Resolve(r.Context(), id, 0)
	if err != nil {
		writeError(w, "preview audience", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"eligible": len(contacts),
	})
}

func parseWindow(from, to string) (*service.Window, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, apperrors.NewValidation("window", "from and to must both be set")
	}
	start, _, err := parseBound(from)
	if err != nil {
		return nil, apperrors.NewValidation("from", "expected RFC3339 timestamp or date")
	}
	end, bare, err := parseBound(to)
	if err != nil {
		return nil, apperrors.NewValidation("to", "expected RFC3339 timestamp or date")
	}
	if bare {
		end = service.EndOfDay(end)
	}
	return &service.Window{Start: start, End: end}, nil
}

// parseBound accepts RFC3339 timestamps and bare dates; bare reports which.
func parseBound(raw string) (t time.Time, bare bool, err error) {
	if t, err = time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err = time.Parse("2006-01-02", raw)
	return t, true, err
}
