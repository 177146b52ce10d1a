package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/tooltop/internal/storage"
)

const maxUsageBody = 64 << 10

// naiveLayout matches the offset-less timestamps stored in usage_log.
const naiveLayout = "2006-01-02T15:04:05.999999999"

type usageRequest struct {
	ToolName  string `json:"tool_name"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	payload, err := s.store.Stats(r.Context(), s.cfg.RecentLimit)
	if err != nil {
		s.logger.Error("stats query failed", zap.Error(err))
		http.Error(w, "Failed to fetch stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("writing stats response", zap.Error(err))
	}
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUsageBody))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.ToolName)
	if name == "" {
		http.Error(w, "tool_name is required", http.StatusBadRequest)
		return
	}

	ts, err := parseUsageTime(req.Timestamp, s.now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.recorder("api").Record(storage.UsageRecord{ToolName: name, Timestamp: ts})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, `{"status":"accepted"}`+"\n")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

// parseUsageTime accepts RFC 3339 or a naive local timestamp. An empty
// value means now.
func parseUsageTime(v string, now func() time.Time) (time.Time, error) {
	if v == "" {
		return now(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(naiveLayout, v, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}
