package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"plexgif/internal/gifmaker"
	"plexgif/internal/history"
	"plexgif/internal/logging"
	"plexgif/internal/services"
)

const maxBodyBytes = 64 << 10

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	svc := s.Service()
	s.writeJSON(w, http.StatusOK, ConfigResponse{ServerURL: svc.ServerURL(), Configured: svc.ServerConfigured()})
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	next, err := s.Service().WithConfiguration(req.BaseURI, req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.svc.Store(next)
	if err := s.resetListCache(); err != nil {
		s.writeError(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("media server switched",
		logging.String("server_url", next.ServerURL()),
		logging.String(logging.FieldEventType, "config_updated"),
	)
	s.writeJSON(w, http.StatusOK, ConfigResponse{ServerURL: next.ServerURL(), Configured: true})
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request) {
	libraries, err := s.Service().ListLibraries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LibrariesResponse{Libraries: libraries})
}

func (s *Server) handleLibraryItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.Service().ListShowsOrFlatItems(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (s *Server) handleLibraryMovies(w http.ResponseWriter, r *http.Request) {
	isMovie, err := boolQuery(r, "movie", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.Service().ListMovies(r.Context(), mux.Vars(r)["key"], isMovie)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	isMovie, err := boolQuery(r, "movie", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.Service().ListEpisodes(r.Context(), mux.Vars(r)["key"], isMovie)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	options, err := s.Service().GetSubtitleOptions(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SubtitlesResponse{ItemID: id, Subtitles: options})
}

func (s *Server) handleFetchSubtitles(w http.ResponseWriter, r *http.Request) {
	result, err := s.Service().RequestProviderSubtitles(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, err := s.Service().GetDuration(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, DurationResponse{ItemID: id, DurationMs: d.Milliseconds()})
}

func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	preview, err := s.Service().Captions(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleCaptionsVTT(w http.ResponseWriter, r *http.Request) {
	vtt, err := s.Service().CaptionsVTT(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(vtt)
}

func (s *Server) handleCreateClip(w http.ResponseWriter, r *http.Request) {
	var req gifmaker.ClipRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.Service().CreateClip(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ClipResponse{Clip: result})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	opts := history.ListOptions{ItemID: strings.TrimSpace(r.URL.Query().Get("item"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "history", "limit must be a non-negative integer", nil))
			return
		}
		opts.Limit = limit
	}
	records, err := s.Service().History(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Clips: records})
}

func (s *Server) handleDeleteScratch(w http.ResponseWriter, r *http.Request) {
	removed, err := s.Service().DeleteScratchSubtitles(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if removed == nil {
		removed = []string{}
	}
	s.writeJSON(w, http.StatusOK, ScratchResponse{Removed: removed})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.Wrap(services.ErrValidation, "api", "decode", "request body is empty", nil)
		}
		return services.Wrap(services.ErrValidation, "api", "decode", "invalid JSON body", err)
	}
	return nil
}

func boolQuery(r *http.Request, name string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, services.Wrap(services.ErrValidation, "api", "query", name+" must be true or false", err)
	}
	return value, nil
}
