package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ameet2r/workout/internal/database"
	"github.com/ameet2r/workout/internal/ingest"
	"github.com/ameet2r/workout/internal/models"
	"github.com/ameet2r/workout/internal/parser"
	"github.com/ameet2r/workout/internal/timeseries"
)

// maxUploadBytes bounds activity uploads before they reach the parsing core.
const maxUploadBytes = 10 << 20 // 10MB

type WebHandler struct {
	db     *database.SQLiteDB
	ingest *ingest.Service
}

func NewWebHandler(db *database.SQLiteDB, ingestService *ingest.Service) *WebHandler {
	return &WebHandler{db: db, ingest: ingestService}
}

func (h *WebHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.Index)

	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions", h.ListSessions)
	router.GET("/sessions/:id", h.GetSession)
	router.PATCH("/sessions/:id", h.UpdateSession)
	router.POST("/sessions/:id/complete", h.CompleteSession)
	router.DELETE("/sessions/:id", h.DeleteSession)
	router.POST("/sessions/:id/activity", h.UploadActivity)
	router.GET("/sessions/:id/timeseries/:metric", h.GetTimeSeries)

	router.POST("/exercises", h.CreateExercise)
	router.GET("/exercises", h.ListExercises)
	router.GET("/exercises/:id", h.GetExercise)
	router.DELETE("/exercises/:id", h.DeleteExercise)

	router.POST("/plans", h.CreatePlan)
	router.GET("/plans", h.ListPlans)
	router.GET("/plans/:id", h.GetPlan)
	router.DELETE("/plans/:id", h.DeletePlan)
}

func (h *WebHandler) Index(c *gin.Context) {
	stats, err := h.db.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- sessions ---

type createSessionRequest struct {
	PlanID    *string                  `json:"workout_plan_id"`
	Exercises []models.SessionExercise `json:"exercises"`
	Notes     *string                  `json:"notes"`
}

func (h *WebHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := models.NewWorkoutSession()
	session.PlanID = req.PlanID
	session.Notes = req.Notes
	if req.Exercises != nil {
		session.Exercises = req.Exercises
	}

	if err := h.db.CreateSession(session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *WebHandler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = 50
	}

	sessions, err := h.db.ListSessions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []*models.WorkoutSession{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *WebHandler) GetSession(c *gin.Context) {
	session, err := h.db.GetSession(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type updateSessionRequest struct {
	Exercises *[]models.SessionExercise `json:"exercises"`
	Notes     *string                   `json:"notes"`
	EndTime   *time.Time                `json:"end_time"`
}

func (h *WebHandler) UpdateSession(c *gin.Context) {
	session, err := h.db.GetSession(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Exercises != nil {
		session.Exercises = *req.Exercises
	}
	if req.Notes != nil {
		session.Notes = req.Notes
	}
	if req.EndTime != nil {
		session.EndTime = req.EndTime
	}

	if err := h.db.UpdateSession(session); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *WebHandler) CompleteSession(c *gin.Context) {
	session, err := h.db.GetSession(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	session.Complete(time.Now().UTC())
	if err := h.db.UpdateSession(session); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *WebHandler) DeleteSession(c *gin.Context) {
	if err := h.db.DeleteSession(c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadActivity accepts a wearable activity file (fit/tcx/gpx/zip) and
// attaches the parsed result to the session.
func (h *WebHandler) UploadActivity(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.db.GetSession(sessionID); err != nil {
		h.renderError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10MB limit"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(content) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10MB limit"})
		return
	}

	parsed, err := h.ingest.IngestActivity(c.Request.Context(), sessionID, fileHeader.Filename, content)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":    parsed.Summary,
		"start_time": parsed.StartTime,
	})
}

func (h *WebHandler) GetTimeSeries(c *gin.Context) {
	points, err := h.ingest.ReadSeries(c.Request.Context(), c.Param("id"), c.Param("metric"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"metric": c.Param("metric"),
		"count":  len(points),
		"points": points,
	})
}

// --- exercises ---

type createExerciseRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

func (h *WebHandler) CreateExercise(c *gin.Context) {
	var req createExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exercise := models.NewExercise(req.Name)
	exercise.Description = req.Description
	if err := h.db.CreateExercise(exercise); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, exercise)
}

func (h *WebHandler) ListExercises(c *gin.Context) {
	exercises, err := h.db.ListExercises()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if exercises == nil {
		exercises = []*models.Exercise{}
	}
	c.JSON(http.StatusOK, exercises)
}

func (h *WebHandler) GetExercise(c *gin.Context) {
	exercise, err := h.db.GetExercise(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

func (h *WebHandler) DeleteExercise(c *gin.Context) {
	if err := h.db.DeleteExercise(c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- plans ---

type createPlanRequest struct {
	Name      string                `json:"name" binding:"required"`
	Exercises []models.PlanExercise `json:"exercises"`
}

func (h *WebHandler) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan := models.NewWorkoutPlan(req.Name)
	if req.Exercises != nil {
		plan.Exercises = req.Exercises
	}
	if err := h.db.CreatePlan(plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *WebHandler) ListPlans(c *gin.Context) {
	plans, err := h.db.ListPlans()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if plans == nil {
		plans = []*models.WorkoutPlan{}
	}
	c.JSON(http.StatusOK, plans)
}

func (h *WebHandler) GetPlan(c *gin.Context) {
	plan, err := h.db.GetPlan(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *WebHandler) DeletePlan(c *gin.Context) {
	if err := h.db.DeletePlan(c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// renderError maps the error taxonomy to HTTP statuses: bad uploads and bad
// metric names are client errors, unknown records are 404, anything else is a
// server fault so operators can tell "bad file" from "bug".
func (h *WebHandler) renderError(c *gin.Context, err error) {
	var parseErr *parser.ParseError

	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, parser.ErrCorruptArchive),
		errors.Is(err, parser.ErrNoActivityFile),
		errors.Is(err, timeseries.ErrInvalidMetricType),
		errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
