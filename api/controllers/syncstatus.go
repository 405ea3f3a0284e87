package controllers

import (
	"net/http"

	"github.com/zentikhq/zentik-sync/api/responses"
	syncsvc "github.com/zentikhq/zentik-sync/internal/sync"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

func SyncStatus(coord *syncsvc.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"ran":         coord.Ran(),
			"syncedCount": coord.SyncedCount(),
		}
		if err := coord.LastError(); err != nil {
			status["lastError"] = err.Error()
		}
		responses.WriteSuccess(w, status)
	}
}
