package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/songstream/internal/models"
	"github.com/desertthunder/songstream/internal/services"
	"github.com/desertthunder/songstream/internal/shared"
	"golang.org/x/oauth2"
)

const maxUploadSize = 5 << 20

type streamResponse struct {
	StreamURL string `json:"stream_url"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type credentialStatus struct {
	Present bool   `json:"present"`
	Version uint64 `json:"version"`
}

type healthResponse struct {
	Status       string           `json:"status"`
	Credential   credentialStatus `json:"credential"`
	CacheEntries int              `json:"cache_entries"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Backend is running"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.credentials.Info()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Credential:   credentialStatus{Present: info.Present, Version: info.Version},
		CacheEntries: s.resolver.Cached(),
	})
}

func (s *Server) handleStreamTrack(w http.ResponseWriter, r *http.Request) {
	url, err := s.resolver.Resolve(r.Context(), r.URL.Query().Get("track"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, streamResponse{StreamURL: url})
}

func (s *Server) handleForgetTrack(w http.ResponseWriter, r *http.Request) {
	track := r.URL.Query().Get("track")
	if strings.TrimSpace(track) == "" {
		writeError(w, s.logger, fmt.Errorf("%w: track name is required", shared.ErrMissingArgument))
		return
	}

	status := "not_cached"
	if s.resolver.Forget(track) {
		status = "removed"
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

func (s *Server) handleUploadCookie(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		writeError(w, s.logger, fmt.Errorf("%w: No file uploaded", shared.ErrMissingArgument))
		return
	case err != nil:
		writeError(w, s.logger, fmt.Errorf("%w: malformed upload: %v", shared.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	if err := s.credentials.Save(file, header.Filename); err != nil {
		writeError(w, s.logger, err)
		return
	}

	s.logger.Info("credential artifact replaced", "version", s.credentials.Info().Version)
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "YouTube cookies uploaded successfully",
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.catalogTimeout)
	defer cancel()

	tracks, err := s.catalogFor(ctx, r).Search(ctx, r.URL.Query().Get("q"), limit)
	s.writeTracks(w, tracks, err)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.catalogTimeout)
	defer cancel()

	tracks, err := s.catalogFor(ctx, r).Recommendations(ctx, limit)
	s.writeTracks(w, tracks, err)
}

func (s *Server) writeTracks(w http.ResponseWriter, tracks []models.Track, err error) {
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	writeJSON(w, http.StatusOK, tracks)
}

// catalogFor acts as the caller when they hold a valid session and falls back to app-level
// credentials otherwise.
func (s *Server) catalogFor(ctx context.Context, r *http.Request) services.CatalogClient {
	token := s.sessionToken(r)
	if token == "" || s.sessions == nil {
		return s.catalog.Catalog(ctx, nil, nil)
	}

	account, err := s.sessions.ResolveSession(token)
	if err != nil {
		s.logger.Debug("catalog request without a valid session", "error", err)
		return s.catalog.Catalog(ctx, nil, nil)
	}

	userToken, err := s.sessions.Token(ctx, account)
	if err != nil {
		s.logger.Warn("user token unavailable, using app credentials", "user", account.ExternalID(), "error", err)
		return s.catalog.Catalog(ctx, nil, nil)
	}

	return s.catalog.Catalog(ctx, userToken, func(t *oauth2.Token) {
		s.sessions.SaveToken(account, t)
	})
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return services.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", shared.ErrInvalidArgument)
	}
	return limit, nil
}
