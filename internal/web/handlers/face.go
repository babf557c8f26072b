package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/andresmejia3/faceguard/internal/validator"
	"github.com/go-chi/chi/v5"
)

// FaceService is the part of service.Service the HTTP layer needs.
type FaceService interface {
	Enroll(ctx context.Context, ownerID string, images [][]byte) (*types.EnrollmentTemplate, error)
	ReEnroll(ctx context.Context, ownerID string, images [][]byte) (*types.EnrollmentTemplate, error)
	Authenticate(ctx context.Context, ownerID string, image []byte) (types.MatchResult, error)
	Disable(ctx context.Context, ownerID string) error
	Status(ctx context.Context, ownerID string) (types.Status, error)
	History(ctx context.Context, ownerID string, limit int) ([]types.AuthAttempt, error)
	Policy() biometric.Policy
}

// FaceHandler handles face enrollment and authentication endpoints.
type FaceHandler struct {
	svc FaceService
}

func NewFaceHandler(svc FaceService) *FaceHandler {
	return &FaceHandler{svc: svc}
}

// EnrollRequest carries base64 captures, optionally as data URLs. The
// accepted count comes from the policy; the upper bound here only caps
// request size.
type EnrollRequest struct {
	Images []string `json:"images" validate:"required,min=1,max=32,dive,required"`
}

type AuthenticateRequest struct {
	Image string `json:"image" validate:"required"`
}

type EnrollResponse struct {
	TemplateID  string    `json:"templateId"`
	SampleCount int       `json:"sampleCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type DisableResponse struct {
	Disabled bool `json:"disabled"`
}

type AttemptResponse struct {
	ID                string    `json:"id"`
	TemplateID        string    `json:"templateId,omitempty"`
	Kind              string    `json:"kind"`
	Outcome           string    `json:"outcome"`
	Reason            string    `json:"reason,omitempty"`
	ConfidencePercent int       `json:"confidencePercent,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ownerID reads and validates the {userID} path parameter.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "userID")
	if err := validator.ValidatorInstance.ValidateValue(id, "owner_id"); err != nil {
		respondError(w, http.StatusBadRequest, "InvalidRequest", "invalid user id")
		return "", false
	}
	return id, true
}

func decodeImages(encoded []string) ([][]byte, error) {
	images := make([][]byte, len(encoded))
	for i, e := range encoded {
		data, _, err := utils.DecodeImage(e)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		images[i] = data
	}
	return images, nil
}

// Enroll handles POST /api/v1/users/{userID}/face
func (h *FaceHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	h.enroll(w, r, false)
}

// ReEnroll handles PUT /api/v1/users/{userID}/face
func (h *FaceHandler) ReEnroll(w http.ResponseWriter, r *http.Request) {
	h.enroll(w, r, true)
}

func (h *FaceHandler) enroll(w http.ResponseWriter, r *http.Request, replace bool) {
	id, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req EnrollRequest
	if !decodeBody(w, r, &req) {
		return
	}
	// Count before decoding so a wrong count is reported as such.
	if err := h.svc.Policy().CheckCaptureCount(len(req.Images)); err != nil {
		respondServiceError(w, r, err)
		return
	}
	images, err := decodeImages(req.Images)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	enroll, status := h.svc.Enroll, http.StatusCreated
	if replace {
		enroll, status = h.svc.ReEnroll, http.StatusOK
	}
	tpl, err := enroll(r.Context(), id, images)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, status, EnrollResponse{
		TemplateID:  tpl.TemplateID,
		SampleCount: tpl.SampleCount,
		CreatedAt:   tpl.CreatedAt,
	})
}

// Authenticate handles POST /api/v1/users/{userID}/face/authenticate
func (h *FaceHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	id, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req AuthenticateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	image, _, err := utils.DecodeImage(req.Image)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	res, err := h.svc.Authenticate(r.Context(), id, image)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Disable handles DELETE /api/v1/users/{userID}/face
func (h *FaceHandler) Disable(w http.ResponseWriter, r *http.Request) {
	id, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Disable(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, DisableResponse{Disabled: true})
}

// Status handles GET /api/v1/users/{userID}/face
func (h *FaceHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := ownerID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Status(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// History handles GET /api/v1/users/{userID}/face/events
func (h *FaceHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := ownerID(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "InvalidRequest", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	attempts, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	out := make([]AttemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = AttemptResponse{
			ID:                a.ID,
			TemplateID:        a.TemplateID,
			Kind:              string(a.Kind),
			Outcome:           string(a.Outcome),
			Reason:            a.Reason,
			ConfidencePercent: a.ConfidencePercent,
			CreatedAt:         a.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, out)
}
