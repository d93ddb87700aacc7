package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fieldlog/middleware"
	"fieldlog/store"

	"go.uber.org/zap"
)

// ExportHandler streams canonical records as CSV for supervisors and
// admins. The effective coordinates column honours manual overrides.
type ExportHandler struct {
	records store.RecordStore
	log     *zap.Logger
}

func NewExportHandler(records store.RecordStore, log *zap.Logger) *ExportHandler {
	return &ExportHandler{
		records: records,
		log:     log,
	}
}

// Records handles GET /export/records, optionally scoped by ?since=RFC3339.
func (h *ExportHandler) Records(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if sinceParam := r.URL.Query().Get("since"); sinceParam != "" {
		parsed, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			writeError(w, "Invalid 'since' parameter format. Use RFC3339", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	records, err := h.records.ListRecordsSince(r.Context(), since)
	if err != nil {
		h.log.Error("failed to load records for export", zap.Error(err))
		writeError(w, "Failed to retrieve records", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="records-%s.csv"`, time.Now().Format("2006-01-02")))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"id", "local_id", "operator_id", "site_location", "work_type_id",
		"company_id", "crew_count", "lat", "lon", "captured_at",
		"submitted_at", "sync_status", "notes",
	}
	if err := writer.Write(header); err != nil {
		h.log.Error("csv write failed", zap.Error(err))
		return
	}

	for _, rec := range records {
		coords := rec.Coordinates.Effective()
		row := []string{
			rec.ID,
			rec.LocalID,
			rec.OperatorID,
			rec.SiteLocation,
			rec.WorkTypeID,
			rec.CompanyID,
			strconv.Itoa(rec.CrewCount),
			strconv.FormatFloat(coords.Lat, 'f', -1, 64),
			strconv.FormatFloat(coords.Lon, 'f', -1, 64),
			rec.CapturedAt.UTC().Format(time.RFC3339),
			rec.SubmittedAt.UTC().Format(time.RFC3339),
			string(rec.SyncStatus),
			rec.Notes,
		}
		if err := writer.Write(row); err != nil {
			h.log.Error("csv write failed", zap.String("record_id", rec.ID), zap.Error(err))
			return
		}
	}

	if identity, ok := middleware.GetIdentityFromContext(r.Context()); ok {
		h.log.Info("audit",
			zap.String("action", "DATA_EXPORT"),
			zap.String("actor", identity.ID),
			zap.Int("records", len(records)))
	}
}
