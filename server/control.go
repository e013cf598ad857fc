package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/registry"
	"github.com/Carmen-Shannon/oxy-motion/engine/viewer"
)

// FileRequest is the body for PUT /api/slots/{idx}/file.
type FileRequest struct {
	File string `json:"file"`
}

// VisibleRequest is the body for PUT /api/slots/{idx}/visible.
type VisibleRequest struct {
	Visible bool `json:"visible"`
}

// ColorRequest is the body for PUT /api/slots/{idx}/color. Colors are "#rrggbb" strings.
type ColorRequest struct {
	Joint string `json:"joint"`
	Bone  string `json:"bone"`
}

func (s *Server) registerControl(r chi.Router) {
	r.Get("/state", s.handleState)
	r.Post("/play", s.handlePlay)
	r.Post("/pause", s.handlePause)
	r.Post("/toggle", s.handleToggle)
	r.Put("/frame/{frame}", s.handleFrame)
	r.Post("/sample/next", s.handleSample(1))
	r.Post("/sample/prev", s.handleSample(-1))

	r.Post("/slots", s.handleAddSlot)
	r.Delete("/slots/last", s.handleRemoveSlot)
	r.Post("/slots/reload", s.handleReload)
	r.Put("/slots/{idx}/file", s.handleSlotFile)
	r.Put("/slots/{idx}/visible", s.handleSlotVisible)
	r.Put("/slots/{idx}/color", s.handleSlotColor)
}

func (s *Server) requireApp(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.app == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("no viewer attached"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.State())
}

// POST /api/play
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.app.SetPlaying(true)
	writeJSON(w, http.StatusOK, s.app.State())
}

// POST /api/pause
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.app.SetPlaying(false)
	writeJSON(w, http.StatusOK, s.app.State())
}

// POST /api/toggle
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.app.TogglePlay()
	writeJSON(w, http.StatusOK, s.app.State())
}

// PUT /api/frame/{frame}
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := strconv.Atoi(chi.URLParam(r, "frame"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid frame: %w", err))
		return
	}
	s.app.Scrub(frame)
	writeJSON(w, http.StatusOK, s.app.State())
}

// POST /api/sample/next, POST /api/sample/prev
func (s *Server) handleSample(delta int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.app.Mode() != viewer.ModeSingle {
			writeError(w, http.StatusConflict, viewer.ErrMode)
			return
		}
		if delta > 0 {
			s.app.NextSample()
		} else {
			s.app.PrevSample()
		}
		writeJSON(w, http.StatusOK, s.app.State())
	}
}

// POST /api/slots
func (s *Server) handleAddSlot(w http.ResponseWriter, r *http.Request) {
	_, err := s.app.AddSlot(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, s.app.State())
}

// DELETE /api/slots/last
func (s *Server) handleRemoveSlot(w http.ResponseWriter, r *http.Request) {
	if s.app.Mode() != viewer.ModeCompare {
		writeError(w, http.StatusConflict, viewer.ErrMode)
		return
	}
	if !s.app.RemoveLastSlot(r.Context()) {
		writeError(w, http.StatusNotFound, errors.New("no slot to remove"))
		return
	}
	writeJSON(w, http.StatusOK, s.app.State())
}

// POST /api/slots/reload
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	var err error
	if s.app.Mode() == viewer.ModeCompare {
		err = s.app.LoadAll(r.Context())
	} else {
		err = s.app.Reload(r.Context())
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.State())
}

// PUT /api/slots/{idx}/file
func (s *Server) handleSlotFile(w http.ResponseWriter, r *http.Request) {
	idx, ok := slotIndex(w, r)
	if !ok {
		return
	}
	var req FileRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.app.SetSlotFile(r.Context(), idx, req.File); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.State())
}

// PUT /api/slots/{idx}/visible
func (s *Server) handleSlotVisible(w http.ResponseWriter, r *http.Request) {
	idx, ok := slotIndex(w, r)
	if !ok {
		return
	}
	var req VisibleRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.app.SetSlotVisible(idx, req.Visible); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.State())
}

// PUT /api/slots/{idx}/color
func (s *Server) handleSlotColor(w http.ResponseWriter, r *http.Request) {
	idx, ok := slotIndex(w, r)
	if !ok {
		return
	}
	var req ColorRequest
	if !decode(w, r, &req) {
		return
	}
	joint, err := common.ParseColor(req.Joint)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bone, err := common.ParseColor(req.Bone)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.SetSlotColor(idx, joint, bone); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.State())
}

func slotIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid slot index: %w", err))
		return 0, false
	}
	return idx, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrSlotIndex):
		return http.StatusNotFound
	case errors.Is(err, viewer.ErrMode):
		return http.StatusConflict
	case errors.Is(err, motion.ErrPathTraversal):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrNoFileOptions):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
