package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
)

type bulkRequest struct {
	URLs    []string               `json:"urls"`
	Options *scraper.ScrapeOptions `json:"options,omitempty"`
}

type deleteItemsRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scraper.ScrapeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "URL is required", typeValidation)
		return
	}
	record, err := s.svc.Scrape(r.Context(), callerFrom(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeData(w, http.StatusCreated, record, "Website scraped successfully")
}

func (s *Server) scrapeBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	results, err := s.svc.ScrapeMany(r.Context(), callerFrom(r), req.URLs, req.Options)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeData(w, http.StatusCreated, results, "Bulk scraping completed")
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.svc.History(r.Context(), callerFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []scraper.RecordSummary{}
	}
	s.writeData(w, http.StatusOK, summaries, "Scraping history retrieved successfully")
}

func (s *Server) getByID(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.Get(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, record, "Scraped data retrieved successfully")
}

func (s *Server) clearAll(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DeleteAll(r.Context(), callerFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, res, "Scraped data cleared successfully")
}

func (s *Server) deleteItems(w http.ResponseWriter, r *http.Request) {
	var req deleteItemsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.DeleteByIDs(r.Context(), callerFrom(r), req.IDs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, res, "Items deleted successfully")
}
