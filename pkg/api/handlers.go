package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/highlight"
	"github.com/rubiojr/fulltext/pkg/iiif"
	"github.com/rubiojr/fulltext/pkg/search"
	"github.com/rubiojr/fulltext/pkg/version"
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	rec := core.RecordID{
		DatasetID: r.PathValue("dataset"),
		LocalID:   r.PathValue("local"),
	}

	query := r.URL.Query()
	params, err := search.ParseSearchParams(query)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}
	format, err := iiif.ParseVersion(query.Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.service.SearchIssue(ctx, rec, params)
	if err != nil {
		status, title := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Errorf("Search in %s failed: %v", rec, err)
		}
		s.writeError(w, status, title, err.Error())
		return
	}

	q := iiif.Query{
		Record:   rec,
		Text:     params.Query,
		PageSize: params.PageSize,
		Types:    params.Types,
	}
	s.writeJSONAs(w, http.StatusOK, format.MediaType(), s.mapper.Map(result, q, format))
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, search.ErrInvalidParams):
		return http.StatusBadRequest, "Invalid parameters"
	case errors.Is(err, search.ErrRecordNotFound):
		return http.StatusNotFound, "Record not found"
	case errors.Is(err, highlight.ErrMalformedPayload):
		return http.StatusBadGateway, "Malformed search engine response"
	}
	return http.StatusInternalServerError, "Search failed"
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	stats, err := s.stats.GetStats(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to get stats", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, StatsResponse{Datasets: stats, Count: len(stats)})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
