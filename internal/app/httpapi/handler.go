// Package httpapi exposes the SogniPet REST API. Handlers validate and
// decode only; all behavior lives in the workflow services, and every error
// reaching this boundary is converted through the application error
// taxonomy into a structured response.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	app "github.com/JacLaoky/SogniPet-miniapp/internal/app"
	"github.com/JacLaoky/SogniPet-miniapp/internal/app/metrics"
	generatesvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/generate"
	mintsvc "github.com/JacLaoky/SogniPet-miniapp/internal/app/services/mint"
	"github.com/JacLaoky/SogniPet-miniapp/internal/apperr"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := chi.NewRouter()
	r.Post("/generate", h.generate)
	r.Get("/models", h.models)
	r.Post("/upload", h.upload)
	r.Post("/mint", h.mint)
	r.Get("/gallery/{address}", h.gallery)
	r.Get("/premium/{address}", h.premium)
	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt      string `json:"prompt"`
		ModelID     string `json:"modelId"`
		UserAddress string `json:"userAddress"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %s", err.Error()))
		return
	}

	ctx := r.Context()
	if h.app.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.app.GenerateTimeout)
		defer cancel()
	}

	start := time.Now()
	imageURL, err := h.app.Generate.Generate(ctx, generatesvc.Request{
		Prompt:      payload.Prompt,
		ModelID:     payload.ModelID,
		UserAddress: payload.UserAddress,
	})
	if err != nil {
		metrics.RecordGeneration("error", time.Since(start))
		writeAppError(w, err)
		return
	}
	metrics.RecordGeneration("ok", time.Since(start))

	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": imageURL})
}

func (h *handler) models(w http.ResponseWriter, r *http.Request) {
	models, err := h.app.Generate.Models(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": models})
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ImageURL string `json:"imageUrl"`
		Prompt   string `json:"prompt"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %s", err.Error()))
		return
	}

	metadataURI, err := h.app.Pins.Pin(r.Context(), payload.ImageURL, payload.Prompt)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"metadataUri": metadataURI})
}

func (h *handler) mint(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ImageURL    string `json:"imageUrl"`
		Prompt      string `json:"prompt"`
		UserAddress string `json:"userAddress"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %s", err.Error()))
		return
	}
	if h.app.Mint == nil {
		writeAppError(w, apperr.Configuration("RPC URL is not configured"))
		return
	}

	result, err := h.app.Mint.Mint(r.Context(), payload.UserAddress, payload.ImageURL, payload.Prompt, nil)
	if err != nil {
		metrics.RecordMint(string(mintsvc.StatusFailed))
		writeAppError(w, err)
		return
	}
	metrics.RecordMint(string(result.Status))

	writeJSON(w, http.StatusOK, result)
}

func (h *handler) gallery(w http.ResponseWriter, r *http.Request) {
	if h.app.Gallery == nil {
		writeAppError(w, apperr.Configuration("RPC URL is not configured"))
		return
	}

	result, err := h.app.Gallery.List(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) premium(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !common.IsHexAddress(address) {
		writeAppError(w, apperr.Validation("address is not a valid wallet address"))
		return
	}

	isPremium, err := h.app.IsPremiumUser(r.Context(), address)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":   address,
		"isPremium": isPremium,
	})
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAppError maps an error through the taxonomy to a structured
// response. The message goes out verbatim; clients show it as status text.
func writeAppError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	body := map[string]string{"error": appErr.Message}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(body)
}
