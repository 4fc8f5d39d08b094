// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the workflow controller.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bookfairhq/bookfair-backend/internal/badge"
	"github.com/bookfairhq/bookfair-backend/internal/draft"
	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/bookfairhq/bookfair-backend/internal/payment"
	"github.com/bookfairhq/bookfair-backend/internal/repository"
	"github.com/bookfairhq/bookfair-backend/internal/workflow"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds all HTTP handlers for the book-fair API.
type Handler struct {
	flow   *workflow.Controller
	drafts workflow.DraftCache
	logger *zap.Logger
}

// New constructs a Handler.
func New(flow *workflow.Controller, drafts workflow.DraftCache, logger *zap.Logger) *Handler {
	return &Handler{flow: flow, drafts: drafts, logger: logger}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeWorkflowError maps controller errors to HTTP statuses. Unknown
// errors are logged and surfaced as an opaque 500; payment endpoints
// override that default with 502.
func (h *Handler) writeWorkflowError(w http.ResponseWriter, err error, fallback int) {
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, badge.ErrInvalidFormat), errors.Is(err, badge.ErrBadSignature):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "registration not found")
	case errors.Is(err, draft.ErrNotFound):
		writeError(w, http.StatusNotFound, "draft not found")
	case errors.Is(err, workflow.ErrAdminGate):
		writeError(w, http.StatusConflict, "booking is awaiting administrator confirmation")
	case errors.Is(err, workflow.ErrInFlight):
		writeError(w, http.StatusConflict, "this submission is already being processed")
	case errors.Is(err, workflow.ErrStatusOrder):
		writeError(w, http.StatusConflict, "requested status would move the registration backwards")
	case errors.Is(err, workflow.ErrNotFinalized):
		writeError(w, http.StatusConflict, "registration is not finalized yet")
	case errors.Is(err, workflow.ErrPaymentRequired):
		writeError(w, http.StatusConflict, "payment must be completed first")
	case errors.Is(err, workflow.ErrAmountMismatch):
		writeError(w, http.StatusConflict, "payment could not be confirmed")
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, fallback, "request failed, please try again")
	}
}

func kindParam(r *http.Request) (model.Kind, error) {
	return model.ParseKind(chi.URLParam(r, "kind"))
}

// ─── Submissions ──────────────────────────────────────────────────────────────

// CreateSubmission handles POST /submissions/{kind}
func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var form model.Payload
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.flow.Create(r.Context(), kind, form)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// GetSubmission handles GET /submissions/{kind}?reference=...
func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref := r.URL.Query().Get("reference")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	sub, err := h.flow.Get(r.Context(), kind, ref)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type patchSubmissionRequest struct {
	Reference string         `json:"reference"`
	Status    *model.Status  `json:"status,omitempty"`
	Fields    *model.Payload `json:"fields,omitempty"`
}

// PatchSubmission handles PATCH /submissions/{kind}
func (h *Handler) PatchSubmission(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req patchSubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Reference == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}
	if req.Status == nil && req.Fields == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	sub, err := h.flow.Update(r.Context(), kind, req.Reference, req.Status, req.Fields)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type advanceRequest struct {
	Step       int           `json:"step"`
	Reference  string        `json:"reference,omitempty"`
	DraftToken string        `json:"draft_token,omitempty"`
	Form       model.Payload `json:"form"`
}

// Advance handles POST /submissions/{kind}/advance
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req advanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.flow.Advance(r.Context(), workflow.AdvanceRequest{
		Kind:       kind,
		Step:       req.Step,
		Reference:  req.Reference,
		DraftToken: req.DraftToken,
		Form:       req.Form,
	})
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Resume handles GET /submissions/{kind}/resume?reference=...
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref := r.URL.Query().Get("reference")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	res, err := h.flow.Resume(r.Context(), kind, ref)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Payments ─────────────────────────────────────────────────────────────────

type sessionRequest struct {
	Email            string            `json:"email"`
	AmountMinorUnits int64             `json:"amount_minor_units"`
	Currency         string            `json:"currency"`
	Reference        string            `json:"reference"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// CreatePaymentSession handles POST /payments/session
func (h *Handler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Reference == "" || req.Email == "" || req.AmountMinorUnits <= 0 {
		writeError(w, http.StatusBadRequest, "email, amount_minor_units and reference are required")
		return
	}

	session, err := h.flow.CreatePaymentSession(r.Context(), payment.SessionRequest{
		Email:            req.Email,
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         req.Currency,
		Reference:        req.Reference,
		Metadata:         req.Metadata,
	})
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authorization_url": session.AuthorizationURL})
}

// VerifyPayment handles GET /payments/verify?reference=...
// Consumed after the hosted checkout redirects the user back.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("reference")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	outcome, err := h.flow.VerifyPayment(r.Context(), ref)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// ─── Badges and check-in ──────────────────────────────────────────────────────

// Badge handles GET /badges?reference=...
func (h *Handler) Badge(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("reference")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	url, err := h.flow.Badge(r.Context(), ref)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"badge_url": url})
}

type scanRequest struct {
	ScannedText string `json:"scanned_text"`
}

// Scan handles POST /scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.flow.Scan(r.Context(), req.ScannedText)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	badgesScannedTotal.Inc()
	writeJSON(w, http.StatusOK, res)
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

// Catalog handles GET /catalog
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.flow.Catalog(r.Context())
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []model.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ─── Drafts ───────────────────────────────────────────────────────────────────

type saveDraftRequest struct {
	Token string        `json:"token,omitempty"`
	Kind  model.Kind    `json:"kind"`
	Step  int           `json:"step"`
	Form  model.Payload `json:"form"`
}

// SaveDraft handles POST /drafts
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req saveDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if _, err := model.ParseKind(string(req.Kind)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.drafts.Save(r.Context(), req.Token, draft.Draft{
		Kind: req.Kind,
		Step: req.Step,
		Form: req.Form,
	})
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

// LoadDraft handles GET /drafts/{token}
func (h *Handler) LoadDraft(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	d, err := h.drafts.Load(r.Context(), token)
	if err != nil {
		h.writeWorkflowError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
