package http

import (
	"log/slog"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/cmlabs-hris/hris-timekeeping/internal/handler/http/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	LogLevel       slog.Level
}

func NewRouter(
	cfg RouterConfig,
	logger *slog.Logger,
	tokenAuth *jwtauth.JWTAuth,
	attendanceHandler AttendanceHandler,
	sessionHandler WorkSessionHandler,
	fileHandler FileHandler,
) *chi.Mux {
	r := chi.NewRouter()

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(middleware.AuthRequired)

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", attendanceHandler.List)
			r.Get("/stats", attendanceHandler.Stats)
			r.With(middleware.RequirePermission(user.PermissionAttendanceExport)).Get("/export", attendanceHandler.Export)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionAttendanceCreate))
				r.Post("/check-in", attendanceHandler.CheckIn)
				r.Post("/check-out", attendanceHandler.CheckOut)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", attendanceHandler.Get)
				r.Delete("/", attendanceHandler.Delete)
				r.Post("/breaks/start", attendanceHandler.StartBreak)
				r.Post("/breaks/end", attendanceHandler.EndBreak)
				r.Post("/namaz/start", attendanceHandler.StartNamaz)
				r.Post("/namaz/end", attendanceHandler.EndNamaz)
				r.Put("/tasks", attendanceHandler.UpdateTasks)
				r.Put("/notes", attendanceHandler.UpdateNotes)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(middleware.RequirePermission(user.PermissionSessionTrack))

			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Start)

			r.Route("/stats", func(r chi.Router) {
				r.Get("/daily", sessionHandler.DailyStats)
				r.Get("/weekly", sessionHandler.WeeklyStats)
				r.Get("/monthly", sessionHandler.MonthlyStats)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Post("/pause", sessionHandler.Pause)
				r.Post("/resume", sessionHandler.Resume)
				r.Post("/stop", sessionHandler.Stop)
				r.Post("/archive", sessionHandler.Archive)
				r.Post("/samples", sessionHandler.RecordSample)
				r.Post("/screenshots", sessionHandler.CaptureScreenshot)
				r.Delete("/screenshots/{screenshotId}", sessionHandler.DeleteScreenshot)
				r.Post("/tasks", sessionHandler.AddTask)
				r.Put("/notes", sessionHandler.UpdateNotes)
			})
		})

		r.Get("/files/*", fileHandler.Get)
	})
	return r
}
