package api

import (
	"time"

	"github.com/rubiojr/fulltext/pkg/storage"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type StatsResponse struct {
	Datasets map[string]*storage.Stats `json:"datasets"`
	Count    int                       `json:"count"`
}
