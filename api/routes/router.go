package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/labfunds-backend/api/controllers"
	expensecontrollers "github.com/angelmondragon/labfunds-backend/api/controllers/expenses"
	ledgercontrollers "github.com/angelmondragon/labfunds-backend/api/controllers/ledger"
	salarycontrollers "github.com/angelmondragon/labfunds-backend/api/controllers/salaries"
	"github.com/angelmondragon/labfunds-backend/api/middleware"
	"github.com/angelmondragon/labfunds-backend/internal/expenses"
	"github.com/angelmondragon/labfunds-backend/internal/labs"
	"github.com/angelmondragon/labfunds-backend/internal/ledger"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/internal/salaries"
	"github.com/angelmondragon/labfunds-backend/internal/users"
	"github.com/angelmondragon/labfunds-backend/pkg/config"
	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/lock"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/redis"
)

// Pingers groups the dependencies checked by /health/ready. Redis may be nil.
type Pingers struct {
	DB    db.Pinger
	Redis redis.Pinger
	Blobs controllers.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers Pingers,
	idempotencyStore redis.IdempotencyStore,
	metricsHandler http.Handler,
	labDirectory *labs.Directory,
	personDirectory *users.Directory,
	locker lock.Locker,
	ledgerService ledger.Service,
	salaryService salaries.Service,
	expenseService expenses.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]controllers.Pinger{"db": pingers.DB, "blobs": pingers.Blobs}
	if pingers.Redis != nil {
		deps["redis"] = pingers.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	professorOnly := middleware.RequireProfessor(logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/labs/{labId}", func(r chi.Router) {
			r.Use(middleware.LabContext(labDirectory, logg))

			r.Route("/ledger", func(r chi.Router) {
				r.Get("/", ledgercontrollers.List(ledgerService, logg))
				r.Get("/summary", ledgercontrollers.Summary(ledgerService, logg))
				r.With(professorOnly).Post("/income", ledgercontrollers.PostIncome(ledgerService, locker, logg))
				r.With(professorOnly).Post("/expense", ledgercontrollers.PostExpense(ledgerService, locker, logg))
				r.With(professorOnly).Patch("/{entryId}", ledgercontrollers.UpdateEntry(ledgerService, logg))
				r.With(professorOnly).Delete("/{entryId}", ledgercontrollers.DeleteEntry(ledgerService, locker, logg))
			})

			r.Route("/salaries", func(r chi.Router) {
				r.Get("/", salarycontrollers.List(salaryService, logg))
				r.Get("/{personId}/history", salarycontrollers.History(salaryService, personDirectory, logg))
				r.Get("/{personId}/monthly-record", salarycontrollers.MonthlyRecord(salaryService, personDirectory, logg))
				r.With(professorOnly).Put("/{personId}", salarycontrollers.Set(salaryService, personDirectory, logg))
				r.With(professorOnly).Post("/{personId}/paid", salarycontrollers.MarkPaid(salaryService, logg))
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", expensecontrollers.List(expenseService, logg))
				r.Post("/", expensecontrollers.Create(expenseService, personDirectory, cfg.Finance.MaxRequestBytes(), logg))
				r.With(professorOnly).Get("/pending", expensecontrollers.Pending(expenseService, logg))
				r.Get("/{requestId}", expensecontrollers.Detail(expenseService, logg))
				r.Delete("/{requestId}", expensecontrollers.Delete(expenseService, logg))
				r.With(professorOnly).Post("/{requestId}/review", expensecontrollers.Review(expenseService, logg))
				r.Get("/{requestId}/attachments/{attachmentId}", expensecontrollers.Attachment(expenseService, logg))
			})
		})
	})

	return r
}
