package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	recognizeHandler := handlers.NewRecognizeHandler(s.deps.Extractor, s.deps.Gallery, s.deps.Attendance)
	galleryHandler := handlers.NewGalleryHandler(s.deps.Gallery)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Attendance, s.deps.Records)
	presenceHandler := handlers.NewPresenceHandler(s.deps.Scanner, s.deps.Tracker, s.deps.Source)
	settingsHandler := handlers.NewSettingsHandler(s.deps.Settings)
	employeesHandler := handlers.NewEmployeesHandler(s.deps.Employees)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Recognition
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Get("/recognitions", recognizeHandler.Recent)

		// Gallery
		r.Get("/gallery", galleryHandler.Status)
		r.Post("/gallery/reload", galleryHandler.Reload)

		// Presence
		r.Post("/presence/scan", presenceHandler.Scan)
		r.Get("/presence", presenceHandler.Board)
		r.Delete("/presence", presenceHandler.Reset)

		// Attendance
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/stats", attendanceHandler.Stats)
		r.Post("/attendance/checkin", attendanceHandler.CheckIn)
		r.Post("/attendance/checkout", attendanceHandler.CheckOut)

		// Settings
		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Put)

		// Employees
		r.Get("/employees", employeesHandler.List)
	})
}
