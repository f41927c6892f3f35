package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/counciljobs/ingestion-service/common/config"
	"github.com/counciljobs/ingestion-service/common/db"
	"github.com/counciljobs/ingestion-service/common/utils"
	"github.com/counciljobs/ingestion-service/pipeline/source"
	"github.com/counciljobs/ingestion-service/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
)

type SourceHandler struct {
	db     *db.DB
	router *chi.Mux
	cfg    config.Config
}

func NewSourceHandler(db *db.DB, cfg config.Config) *SourceHandler {
	router := chi.NewRouter()

	h := &SourceHandler{
		db:     db,
		router: router,
		cfg:    cfg,
	}

	router.Get("/", h.handleListSources)
	router.Post("/", h.handleCreateSource)
	router.Patch("/{name}/active", h.handleSetActive)
	return h
}

func (h *SourceHandler) Router() *chi.Mux {
	return h.router
}

// handleListSources godoc
// @Summary List all configured job sources
// @Tags sources
// @Produce json
// @Success 200 {array} repository.JobSource
// @Router /v1/sources [get]
func (h *SourceHandler) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.db.Queries.GetAllJobSources(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list job sources")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list job sources")
		return
	}

	utils.WriteJSON(w, http.StatusOK, sources)
}

// handleCreateSource godoc
// @Summary Register a new job source
// @Description The selector configuration is validated before the row is stored
// @Tags sources
// @Accept json
// @Produce json
// @Param request body SourceCreateParams true "Source definition"
// @Success 201 {object} repository.JobSource
// @Router /v1/sources [post]
func (h *SourceHandler) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var p SourceCreateParams

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	selectors, err := json.Marshal(p.FieldSelectors)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid field selectors")
		return
	}

	row := repository.JobSource{
		ID:               uuid.Must(uuid.NewV7()).String(),
		Name:             p.Name,
		ListingUrl:       p.ListingURL,
		RequiresJsRender: p.RequiresJSRender,
		FieldSelectors:   selectors,
		MaxPages:         p.MaxPages,
		Position:         p.Position,
		Active:           true,
	}
	if p.PaginationRule != "" {
		row.PaginationRule = pgtype.Text{String: p.PaginationRule, Valid: true}
	}

	// Reject rows the extractor could never run before they hit the table.
	if _, err := source.ConfigFromRow(row); err != nil {
		var cfgErr *source.ConfigurationError
		if errors.As(err, &cfgErr) {
			utils.WriteError(w, http.StatusBadRequest, cfgErr.Reason)
			return
		}
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.db.Queries.CreateJobSource(r.Context(), repository.CreateJobSourceParams{
		ID:               row.ID,
		Name:             row.Name,
		ListingUrl:       row.ListingUrl,
		RequiresJsRender: row.RequiresJsRender,
		FieldSelectors:   row.FieldSelectors,
		PaginationRule:   row.PaginationRule,
		MaxPages:         row.MaxPages,
		Position:         row.Position,
		Active:           row.Active,
	})
	if err != nil {
		log.Error().Err(err).Str("source", p.Name).Msg("Failed to create job source")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create job source")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, created)
}

// handleSetActive godoc
// @Summary Activate or deactivate a job source
// @Tags sources
// @Accept json
// @Produce json
// @Param name path string true "Source name"
// @Param request body SourceActiveParams true "Active flag"
// @Success 200 {object} map[string]string
// @Router /v1/sources/{name}/active [patch]
func (h *SourceHandler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var p SourceActiveParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	row, err := h.db.Queries.GetJobSourceByName(r.Context(), name)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Job source not found")
		return
	}

	if err := h.db.Queries.SetJobSourceActive(r.Context(), repository.SetJobSourceActiveParams{
		ID:     row.ID,
		Active: p.Active,
	}); err != nil {
		log.Error().Err(err).Str("source", name).Msg("Failed to update job source")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to update job source")
		return
	}

	utils.WriteMessage(w, http.StatusOK, "updated")
}

type SourceCreateParams struct {
	Name             string                `json:"name" validate:"required"`
	ListingURL       string                `json:"listing_url" validate:"required,url"`
	RequiresJSRender bool                  `json:"requires_js_render"`
	FieldSelectors   source.FieldSelectors `json:"field_selectors" validate:"required"`
	PaginationRule   string                `json:"pagination_rule"`
	MaxPages         int32                 `json:"max_pages"`
	Position         int32                 `json:"position"`
}

type SourceActiveParams struct {
	Active bool `json:"active"`
}
