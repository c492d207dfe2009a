package server

// Option configures the inspection server.
type Option func(s *Server)

// WithPort sets the port the server listens on.
func WithPort(port string) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithCORS enables permissive CORS on every route, for browser-based
// inspection frontends.
func WithCORS() Option {
	return func(s *Server) {
		s.withCORS = true
	}
}
