package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hairizuanbinnoorazman/ohacker/job"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the control API.
func NewRouter(jobStore job.Store, notifier Notifier, log logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(NewLoggingMiddleware(log).Handler)

	router.Handle("/health", NewHealthHandler(jobStore)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	jobHandler := NewJobHandler(jobStore, notifier, log)
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/jobs", jobHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/jobs", jobHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", jobHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/report", jobHandler.Report).Methods(http.MethodGet)

	return router
}
