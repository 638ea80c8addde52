package server

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Viewer page
	r.Get("/", s.index)

	// The watched document
	r.Get("/pdf", s.getDocument)
	r.Get("/document", s.getDocument)

	// Change notifications (SSE)
	r.Get("/listen", s.listen)

	// Instance management
	r.Get("/status", s.getStatus)
	r.Post("/stop", s.stop)
}
