package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zentikhq/zentik-sync/api/controllers"
	"github.com/zentikhq/zentik-sync/api/middleware"
	"github.com/zentikhq/zentik-sync/internal/importer"
	"github.com/zentikhq/zentik-sync/internal/notifications"
	"github.com/zentikhq/zentik-sync/internal/stats"
	syncsvc "github.com/zentikhq/zentik-sync/internal/sync"
	"github.com/zentikhq/zentik-sync/pkg/config"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	registry *prometheus.Registry,
	notificationsService notifications.Service,
	statsService stats.Service,
	imp *importer.Importer,
	exp *importer.Exporter,
	coordinator *syncsvc.Coordinator,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsList(notificationsService, logg))
			r.Get("/unread-count", controllers.NotificationsUnreadCount(notificationsService, logg))
			r.Post("/mark-all-read", controllers.NotificationsMarkAllRead(notificationsService, logg))
			r.Get("/{notificationId}", controllers.NotificationGet(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(notificationsService, logg))
			r.Post("/{notificationId}/unread", controllers.NotificationMarkUnread(notificationsService, logg))
			r.Delete("/{notificationId}", controllers.NotificationDelete(notificationsService, logg))
		})

		r.Route("/buckets", func(r chi.Router) {
			r.Get("/stats", controllers.BucketStats(statsService, logg))
			r.Delete("/{bucketId}/notifications", controllers.NotificationsDeleteBucket(notificationsService, logg))
		})

		r.Post("/import", controllers.ImportNotifications(imp, logg))
		r.Get("/export", controllers.ExportNotifications(exp, logg))
		r.Get("/sync/status", controllers.SyncStatus(coordinator, logg))
	})

	return r
}
