package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/recognizer"
	"github.com/kozaktomas/face-gallery/internal/web/handlers"
)

func (s *Server) setupRoutes(store *gallery.Store, rec *recognizer.Recognizer) {
	peopleHandler := handlers.NewPeopleHandler(s.config, store)
	duplicatesHandler := handlers.NewDuplicatesHandler(s.config, store)
	recognizeHandler := handlers.NewRecognizeHandler(s.config, rec)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// People
		r.Get("/people", peopleHandler.List)
		r.Post("/people/{name}", peopleHandler.Add)
		r.Delete("/people/{name}", peopleHandler.Remove)
		r.Delete("/people/{name}/embeddings/{index}", peopleHandler.RemoveEmbedding)

		// Duplicates
		r.Get("/duplicates", duplicatesHandler.List)

		// Recognition
		r.Post("/recognize", recognizeHandler.Recognize)
	})
}
