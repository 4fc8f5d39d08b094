package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bookfairhq/bookfair-backend/internal/model"
)

type confirmRequest struct {
	Reference string `json:"reference"`
}

// Confirm handles POST /admin/confirm — the administrator action that
// unblocks an exhibitor-stand booking for payment. Idempotent.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Reference == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	sub, err := h.flow.Confirm(r.Context(), req.Reference)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Export handles GET /admin/export?kind=... and streams all submissions
// of one kind as CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subs, err := h.flow.Export(r.Context(), kind)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s.csv"`, kind, time.Now().UTC().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"reference", "status", "admin_confirmed", "first_name", "last_name",
		"email", "phone", "country", "company_name", "stand_type",
		"payment_method", "checked_in_at", "created_at",
	})
	for _, sub := range subs {
		checkedIn := ""
		if sub.CheckedInAt != nil {
			checkedIn = sub.CheckedInAt.UTC().Format(time.RFC3339)
		}
		_ = cw.Write([]string{
			sub.Reference,
			string(sub.Status),
			strconv.FormatBool(sub.AdminConfirmed),
			sub.Payload.FirstName,
			sub.Payload.LastName,
			sub.Payload.Email,
			sub.Payload.Phone,
			sub.Payload.Country,
			sub.Payload.CompanyName,
			sub.Payload.StandType,
			sub.Payload.PaymentMethod,
			checkedIn,
			sub.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
}
