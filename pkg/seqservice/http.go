package seqservice

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// NumbersBody is the request body of a batch query.
type NumbersBody struct {
	Indices []int `json:"indices"`
}

// NumbersResult is the response body of a batch query.
type NumbersResult struct {
	Sequence  string              `json:"sequence"`
	Responses []sequence.Response `json:"responses"`
}

// SequenceList is the response body of the listing endpoint.
type SequenceList struct {
	Sequences    []sequence.Info `json:"sequences"`
	MaxQuerySize int             `json:"max_query_size"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Handler serves the Service over HTTP.
type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With().Str("component", "SequenceHandler").Logger()}
}

// Register adds the /v1 routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/sequences", h.list)
	mux.HandleFunc("GET /v1/sequences/{name}", h.describe)
	mux.HandleFunc("GET /v1/sequences/{name}/numbers/{index}", h.number)
	mux.HandleFunc("POST /v1/sequences/{name}/numbers", h.numbers)
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, SequenceList{Sequences: h.svc.Sequences(), MaxQuerySize: h.svc.MaxQuerySize()})
}

func (h *Handler) describe(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Describe(r.PathValue("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) number(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid sequence index: " + r.PathValue("index") + "."})
		return
	}
	resp, err := h.svc.Number(r.Context(), r.PathValue("name"), index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) numbers(w http.ResponseWriter, r *http.Request) {
	var body NumbersBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	name := r.PathValue("name")
	responses, err := h.svc.Numbers(r.Context(), name, body.Indices)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NumbersResult{Sequence: name, Responses: responses})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sequence.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrTooManyIndices):
		status = http.StatusBadRequest
	default:
		h.logger.Error().Err(err).Msg("Request failed.")
	}
	h.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write response.")
	}
}
