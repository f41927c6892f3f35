package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/counciljobs/ingestion-service/common/config"
	"github.com/counciljobs/ingestion-service/common/db"
	"github.com/counciljobs/ingestion-service/common/messaging"
	"github.com/counciljobs/ingestion-service/common/utils"
	"github.com/counciljobs/ingestion-service/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
)

const defaultRunListLimit = 20

type RunHandler struct {
	db     *db.DB
	broker *messaging.NatsBroker
	router *chi.Mux
	cfg    config.Config
}

func NewRunHandler(db *db.DB, broker *messaging.NatsBroker, cfg config.Config) *RunHandler {
	router := chi.NewRouter()

	h := &RunHandler{
		db:     db,
		broker: broker,
		router: router,
		cfg:    cfg,
	}

	router.Post("/", h.handleTriggerRun)
	router.Get("/", h.handleListRuns)
	router.Get("/{id}/failures", h.handleListFailures)
	router.Post("/sweep", h.handleSweep)
	return h
}

func (h *RunHandler) Router() *chi.Mux {
	return h.router
}

// handleTriggerRun godoc
// @Summary Trigger an ingestion run
// @Description Enqueues a run over every active source, or a single named source
// @Tags runs
// @Accept json
// @Produce json
// @Param request body RunTriggerParams true "Run parameters"
// @Success 202 {object} map[string]string
// @Router /v1/runs [post]
func (h *RunHandler) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	var p RunTriggerParams

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if p.Source != "" {
		if _, err := h.db.Queries.GetJobSourceByName(r.Context(), p.Source); err != nil {
			utils.WriteError(w, http.StatusNotFound, "Job source not found")
			return
		}
	}

	req := messaging.RunRequest{
		ID:     uuid.NewString(),
		Source: p.Source,
		DryRun: p.DryRun,
	}

	msg, err := json.Marshal(req)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to marshal message")
		return
	}

	if err := h.broker.PublishSync(r.Context(), messaging.SubjectRunTrigger, msg); err != nil {
		log.Error().Err(err).Msg("Failed to publish run trigger")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to publish run trigger")
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, map[string]string{"message": "accepted", "request_id": req.ID})
}

// handleListRuns godoc
// @Summary List recent runs
// @Tags runs
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Runs per page" default(20)
// @Success 200 {object} models.BasePaginationResponse
// @Router /v1/runs [get]
func (h *RunHandler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			utils.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.WriteError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		page = n
	}

	total, err := h.db.Queries.CountRuns(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count runs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	runs, err := h.db.Queries.ListRuns(r.Context(), repository.ListRunsParams{
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list runs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	utils.WritePagination(w, http.StatusOK, runs, page, limit, total)
}

// handleListFailures godoc
// @Summary List the failure records of a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} repository.RunFailure
// @Router /v1/runs/{id}/failures [get]
func (h *RunHandler) handleListFailures(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if runID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing run id")
		return
	}

	failures, err := h.db.Queries.GetRunFailures(r.Context(), runID)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to list run failures")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list run failures")
		return
	}

	utils.WriteJSON(w, http.StatusOK, failures)
}

// handleSweep godoc
// @Summary Expire jobs whose deadline has passed
// @Tags runs
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /v1/runs/sweep [post]
func (h *RunHandler) handleSweep(w http.ResponseWriter, r *http.Request) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	expired, err := h.db.Queries.ExpireJobsPastDeadline(r.Context(), pgtype.Date{Time: today, Valid: true})
	if err != nil {
		log.Error().Err(err).Msg("Failed to sweep expired jobs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to sweep expired jobs")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]int64{"expired": expired})
}

type RunTriggerParams struct {
	Source string `json:"source"`
	DryRun bool   `json:"dry_run"`
}
