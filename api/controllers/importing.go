package controllers

import (
	"io"
	"net/http"

	"github.com/zentikhq/zentik-sync/api/responses"
	"github.com/zentikhq/zentik-sync/internal/importer"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

// importBodyLimit caps an import document at 32 MiB.
const importBodyLimit int64 = 32 << 20

func ImportNotifications(imp *importer.Importer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, importBodyLimit))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading import body"))
			return
		}

		result, err := imp.ImportJSON(ctx, string(body))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"imported": result.Imported,
			"skipped":  result.Skipped,
			"batches":  result.Batches,
		})
	}
}

func ExportNotifications(exp *importer.Exporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		doc, err := exp.Export(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(doc))
	}
}
