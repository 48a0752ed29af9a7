package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/dataset"
	"github.com/sells-group/territory-engine/internal/metrics"
	"github.com/sells-group/territory-engine/internal/model"
	"github.com/sells-group/territory-engine/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"zones":  s.boundaries.Len(),
	})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DurationMinutes int            `json:"duration_minutes"`
		Origins         []model.Origin `json:"origins"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.calculator.Compute(r.Context(), req.DurationMinutes, req.Origins)
	if err != nil {
		// Provider failures never reach here; only request-shape
		// errors do.
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTerritories(w http.ResponseWriter, r *http.Request) {
	ts, err := s.store.ListTerritories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ts)
}

func (s *Server) handleCreateTerritory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	t, err := s.store.CreateTerritory(r.Context(), req.Name, req.Color)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) handleReplaceTerritories(w http.ResponseWriter, r *http.Request) {
	var ts []model.Territory
	if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.ReplaceTerritories(r.Context(), ts); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": len(ts)})
}

func (s *Server) handleUpdateTerritory(w http.ResponseWriter, r *http.Request) {
	var patch model.TerritoryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.store.UpdateTerritory(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "territory not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTerritory(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteTerritory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "territory not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetAssignments(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.Assignments(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleSetAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TerritoryID *string `json:"territory_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// null clears the assignment; the key is removed entirely.
	territoryID := ""
	if req.TerritoryID != nil {
		territoryID = *req.TerritoryID
	}
	if err := s.store.SetAssignment(r.Context(), chi.URLParam(r, "zoneID"), territoryID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReplaceAssignments(w http.ResponseWriter, r *http.Request) {
	var m map[string]string
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.ReplaceAssignments(r.Context(), m); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": len(m)})
}

func (s *Server) handleExportAssignments(w http.ResponseWriter, r *http.Request) {
	format := store.ExportFormat(r.URL.Query().Get("format"))
	data, err := store.ExportAssignments(r.Context(), s.store, format)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handlePruneAssignments(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.PruneDangling(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"pruned": n})
}

func (s *Server) handleMetricSeries(w http.ResponseWriter, r *http.Request) {
	metric := chi.URLParam(r, "metric")
	if _, err := metrics.ByName(metric); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.loadDatasets()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("rollup") == "territory" {
		assignments, err := s.store.Assignments(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		points, err := metrics.RollupByTerritory(metric, records, assignments)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, points)
		return
	}

	points, err := metrics.Aggregate(metric, records)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, points)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// loadDatasets reads every CSV/XLSX upload in the dataset dir on each
// metrics request, so new uploads show up without a restart. A file
// that fails to parse is logged and skipped.
func (s *Server) loadDatasets() ([]dataset.Record, error) {
	entries, err := os.ReadDir(s.datasetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "server: read dataset dir")
	}

	var records []dataset.Record
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".xlsx") {
			continue
		}
		recs, err := dataset.LoadFile(filepath.Join(s.datasetDir, entry.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable dataset", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		records = append(records, recs...)
	}
	return records, nil
}
