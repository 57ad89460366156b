package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
	"github.com/chris-o-r/SnapShotTesting/internal/utils"
)

// Orchestrator is the narrow surface the HTTP handlers drive; satisfied by
// *orchestrator.Orchestrator.
type Orchestrator interface {
	CreateBatch(ctx context.Context, newURL, oldURL string) (models.SnapShotBatch, error)
	GetAllBatches(ctx context.Context) ([]models.SnapShotBatch, error)
	GetBatchById(ctx context.Context, id string) (models.SnapShotBatch, bool, error)
	DeleteBatchById(ctx context.Context, id string) (bool, error)
	GetJob(ctx context.Context, id string) (models.Job, bool, error)
	GetRunningJobs(ctx context.Context) ([]models.Job, error)
	CleanUp(ctx context.Context, removeAssetsRoot func() error) error
}

// SnapShotHandler serves the /api/snap-shots surface.
type SnapShotHandler struct {
	orchestrator Orchestrator
}

// NewSnapShotHandler builds a SnapShotHandler over orchestrator.
func NewSnapShotHandler(orchestrator Orchestrator) *SnapShotHandler {
	return &SnapShotHandler{orchestrator: orchestrator}
}

// createSnapShotInput is the expected JSON payload for POST /api/snap-shots.
type createSnapShotInput struct {
	New string `json:"new" binding:"required"`
	Old string `json:"old" binding:"required"`
}

// CreateSnapShotBatch handles POST /api/snap-shots.
func (h *SnapShotHandler) CreateSnapShotBatch(c *gin.Context) {
	var input createSnapShotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.SendValidationError(c, err)
		return
	}

	if err := validateGalleryURL(input.New); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if err := validateGalleryURL(input.Old); err != nil {
		utils.SendValidationError(c, err)
		return
	}

	batch, err := h.orchestrator.CreateBatch(c.Request.Context(), input.New, input.Old)
	if err != nil {
		utils.SendInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

// GetSnapShotBatches handles GET /api/snap-shots.
func (h *SnapShotHandler) GetSnapShotBatches(c *gin.Context) {
	batches, err := h.orchestrator.GetAllBatches(c.Request.Context())
	if err != nil {
		utils.SendInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, batches)
}

// GetSnapShotBatch handles GET /api/snap-shots/:id.
func (h *SnapShotHandler) GetSnapShotBatch(c *gin.Context) {
	id := c.Param("id")
	batch, found, err := h.orchestrator.GetBatchById(c.Request.Context(), id)
	if err != nil {
		utils.SendInternalError(c, err)
		return
	}
	if !found {
		utils.SendError(c, http.StatusNotFound, "batch not found", nil)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// DeleteSnapShotBatch handles DELETE /api/snap-shots/:id.
func (h *SnapShotHandler) DeleteSnapShotBatch(c *gin.Context) {
	id := c.Param("id")
	found, err := h.orchestrator.DeleteBatchById(c.Request.Context(), id)
	if err != nil {
		utils.SendInternalError(c, err)
		return
	}
	if !found {
		utils.SendError(c, http.StatusNotFound, "batch not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// JobHandler serves the /api/jobs surface.
type JobHandler struct {
	orchestrator Orchestrator
}

// NewJobHandler builds a JobHandler over orchestrator.
func NewJobHandler(orchestrator Orchestrator) *JobHandler {
	return &JobHandler{orchestrator: orchestrator}
}

// GetRunningJobs handles GET /api/jobs.
func (h *JobHandler) GetRunningJobs(c *gin.Context) {
	jobs, err := h.orchestrator.GetRunningJobs(c.Request.Context())
	if err != nil {
		utils.SendInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// GetJob handles GET /api/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")
	job, found, err := h.orchestrator.GetJob(c.Request.Context(), id)
	if err != nil {
		utils.SendInternalError(c, err)
		return
	}
	if !found {
		utils.SendError(c, http.StatusNotFound, "job not found", nil)
		return
	}
	c.JSON(http.StatusOK, job)
}

// AdminHandler serves the /api/admin surface.
type AdminHandler struct {
	orchestrator     Orchestrator
	removeAssetsRoot func() error
}

// NewAdminHandler builds an AdminHandler over orchestrator. removeAssetsRoot
// recursively removes the assets root directory.
func NewAdminHandler(orchestrator Orchestrator, removeAssetsRoot func() error) *AdminHandler {
	return &AdminHandler{orchestrator: orchestrator, removeAssetsRoot: removeAssetsRoot}
}

// CleanUp handles GET /api/admin/clean-up.
func (h *AdminHandler) CleanUp(c *gin.Context) {
	if err := h.orchestrator.CleanUp(c.Request.Context(), h.removeAssetsRoot); err != nil {
		utils.SendInternalError(c, err)
		return
	}
	utils.SendSuccess(c, "clean up complete", nil)
}

// validateGalleryURL rejects anything that isn't an absolute http(s) URL.
func validateGalleryURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("gallery url must be an absolute http(s) url")
	}
	if u.Host == "" {
		return errors.New("gallery url must include a host")
	}
	return nil
}
