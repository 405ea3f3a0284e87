package controllers

import (
	"net/http"

	"github.com/zentikhq/zentik-sync/api/responses"
	"github.com/zentikhq/zentik-sync/internal/stats"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

func BucketStats(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rows, err := svc.BucketStats(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"buckets": rows})
	}
}
