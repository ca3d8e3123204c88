package api

import (
	"github.com/gorilla/mux"
)

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(rateLimitMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/feed", s.handleFeed).Methods("GET")
	r.Handle("/force-check", requireBearer(s.jwtSigningKey, s.handleForceCheck)).Methods("POST")
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/ws/status", s.handleStatusWebSocket)

	return r
}
