package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/ransched/pkg/sched"
)

type handler struct {
	sched *sched.Scheduler
}

func newHandler(s *sched.Scheduler) *handler {
	return &handler{sched: s}
}

func (h *handler) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.sched.NumCells() == 0 {
		writeError(w, http.StatusServiceUnavailable, "cells not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"cells":  h.sched.NumCells(),
	})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.Stats())
}

func (h *handler) listUEs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.ListUEs())
}

// ueRequest is the admin-facing UE configuration payload. The RNTI accepts
// decimal or 0x-prefixed hex.
type ueRequest struct {
	RNTI     string  `json:"rnti"`
	Carriers []bool  `json:"carriers"`
	K1       []uint8 `json:"k1,omitempty"`
	MaxRetx  uint32  `json:"max_retx,omitempty"`
}

func parseRNTI(s string) (sched.RNTI, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), parseBase(s), 16)
	if err != nil {
		return 0, err
	}
	return sched.RNTI(v), nil
}

func parseBase(s string) int {
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		return 16
	}
	return 10
}

func (h *handler) upsertUE(w http.ResponseWriter, r *http.Request) {
	var req ueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	rnti, err := parseRNTI(req.RNTI)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rnti: "+req.RNTI)
		return
	}

	cfg := sched.UEConfig{
		Carriers: make([]sched.UECarrierConfig, len(req.Carriers)),
		K1:       req.K1,
		MaxRetx:  req.MaxRetx,
	}
	for i, active := range req.Carriers {
		cfg.Carriers[i].Active = active
	}

	if err := h.sched.UECfg(rnti, cfg); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, sched.ErrNoCells) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rnti": rnti})
}

func (h *handler) removeUE(w http.ResponseWriter, r *http.Request) {
	rnti, err := parseRNTI(chi.URLParam(r, "rnti"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rnti")
		return
	}
	h.sched.UERem(rnti)
	writeJSON(w, http.StatusAccepted, map[string]any{"rnti": rnti})
}
