package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"poker-settle/internal/room"
	"poker-settle/internal/stats"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

func healthHandler(profiles stats.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pg, ok := profiles.(*stats.Postgres); ok {
			if err := pg.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func statsHandler(rooms *room.Store, profiles stats.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := profiles.RoomsCreated(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"activeRooms":       rooms.Count(),
			"totalRoomsCreated": total,
		})
	}
}

func profileHandler(profiles stats.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := chi.URLParam(r, "identity")
		prof, err := profiles.GetProfile(r.Context(), identity)
		if errors.Is(err, stats.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "profile lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, prof)
	}
}
