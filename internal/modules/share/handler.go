package share

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filevault/internal/middleware"
	"filevault/internal/modules/access"
	"filevault/internal/modules/drive"
	"filevault/internal/pkg/response"
	"filevault/internal/pkg/validator"
)

type IssueRequest struct {
	Duration string `json:"duration" form:"duration"`
}

type Handler struct {
	issuer *Issuer
	guard  *access.Guard
	drive  *drive.Service
}

func NewHandler(issuer *Issuer, guard *access.Guard, driveSvc *drive.Service) *Handler {
	return &Handler{issuer: issuer, guard: guard, drive: driveSvc}
}

// RegisterRoutes mounts issuing on protected and the shared views on
// public, which must still run the session middleware.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if protected != nil {
		protected.POST("/folders/:id/shares", h.Issue)
	}
	if public != nil {
		shares := public.Group("/shares/:shareId")
		{
			shares.GET("", h.Folder)
			shares.GET("/files/:fileId", h.File)
			shares.GET("/files/:fileId/download", h.Download)
		}
	}
}

func (h *Handler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	issued, err := h.issuer.Issue(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), req.Duration)
	if err != nil {
		var fields validator.Errors
		if errors.As(err, &fields) {
			response.ValidationFailed(c, fields, req)
			return
		}
		drive.WriteError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, issued)
}

// Folder lists the shared folder. Anyone holding a valid link may call it.
func (h *Handler) Folder(c *gin.Context) {
	ctx := c.Request.Context()
	shareID := c.Param("shareId")

	s, err := h.guard.Share(ctx, shareID)
	if err != nil {
		drive.WriteError(c, err)
		return
	}
	listing, err := h.drive.FolderListing(ctx, middleware.CurrentSession(c).UserID(), s.FolderID, shareID)
	if err != nil {
		drive.WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"share":  gin.H{"id": s.ID, "expiration": s.Expiration},
		"folder": listing.Folder,
		"files":  listing.Files,
	})
}

func (h *Handler) File(c *gin.Context) {
	file, err := h.drive.File(c.Request.Context(), middleware.CurrentSession(c).UserID(), c.Param("fileId"), c.Param("shareId"))
	if err != nil {
		drive.WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, file)
}

func (h *Handler) Download(c *gin.Context) {
	drive.ServeDownload(c, h.drive, c.Param("fileId"), c.Param("shareId"))
}
