package drive

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filevault/internal/middleware"
	"filevault/internal/modules/access"
	"filevault/internal/modules/quota"
	"filevault/internal/pkg/response"
	"filevault/internal/pkg/utils"
	"filevault/internal/pkg/validator"
)

// multipartOverhead is slack for form fields and boundaries on top of the
// file size limit.
const multipartOverhead = 1 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the owner-facing drive routes. protected must
// already require a session.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/drive", h.Root)

	folders := protected.Group("/folders")
	{
		folders.POST("", h.CreateFolder)
		folders.GET("/:id", h.Folder)
		folders.PUT("/:id", h.RenameFolder)
		folders.DELETE("/:id", h.DeleteFolder)
	}

	files := protected.Group("/files")
	{
		files.POST("", h.Upload)
		files.GET("/:id", h.File)
		files.GET("/:id/download", h.Download)
		files.DELETE("/:id", h.DeleteFile)
	}
}

func (h *Handler) Root(c *gin.Context) {
	listing, err := h.svc.RootListing(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}

func (h *Handler) CreateFolder(c *gin.Context) {
	var req FolderRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	folder, err := h.svc.CreateFolder(c.Request.Context(), middleware.CurrentSession(c), req.Name)
	if err != nil {
		writeErrorWithValues(c, err, req)
		return
	}
	response.Success(c, http.StatusCreated, folder)
}

func (h *Handler) Folder(c *gin.Context) {
	listing, err := h.svc.FolderListing(c.Request.Context(), middleware.CurrentSession(c).UserID(), c.Param("id"), "")
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}

func (h *Handler) RenameFolder(c *gin.Context) {
	var req FolderRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	folder, err := h.svc.RenameFolder(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), req.Name)
	if err != nil {
		writeErrorWithValues(c, err, req)
		return
	}
	response.Success(c, http.StatusOK, folder)
}

func (h *Handler) DeleteFolder(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if err := h.svc.DeleteFolder(c.Request.Context(), sess, c.Param("id")); err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "used_space": sess.Data.UsedSpace})
}

// Upload accepts multipart fields file (required), name and folder.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.MaxFileSize()+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			WriteError(c, ErrFileTooLarge)
		case errors.Is(err, http.ErrMissingFile):
			response.ValidationFailed(c, map[string]string{"file": "Please choose a file to upload"}, nil)
		default:
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart form")
		}
		return
	}

	body, err := fh.Open()
	if err != nil {
		response.Internal(c, err)
		return
	}
	defer body.Close()

	in := UploadInput{
		Filename:     fh.Filename,
		DeclaredName: c.PostForm("name"),
		FolderID:     c.PostForm("folder"),
		ContentType:  fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		Body:         body,
	}
	file, err := h.svc.Upload(c.Request.Context(), middleware.CurrentSession(c), in)
	if err != nil {
		writeErrorWithValues(c, err, gin.H{"name": in.DeclaredName, "folder": in.FolderID})
		return
	}
	response.Success(c, http.StatusCreated, file)
}

func (h *Handler) File(c *gin.Context) {
	file, err := h.svc.File(c.Request.Context(), middleware.CurrentSession(c).UserID(), c.Param("id"), "")
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, file)
}

func (h *Handler) Download(c *gin.Context) {
	ServeDownload(c, h.svc, c.Param("id"), "")
}

func (h *Handler) DeleteFile(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if err := h.svc.DeleteFile(c.Request.Context(), sess, c.Param("id")); err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "used_space": sess.Data.UsedSpace})
}

// ServeDownload streams a file as an attachment after authorizing the read.
func ServeDownload(c *gin.Context, svc *Service, fileID, shareID string) {
	dl, err := svc.OpenFile(c.Request.Context(), middleware.CurrentSession(c).UserID(), fileID, shareID)
	if err != nil {
		WriteError(c, err)
		return
	}
	defer dl.Body.Close()

	c.DataFromReader(http.StatusOK, dl.File.Size, dl.File.Type, dl.Body, map[string]string{
		"Content-Disposition":    utils.ContentDisposition(dl.File.Name),
		"X-Content-Type-Options": "nosniff",
	})
}

// WriteError maps a drive, access or quota error onto the response envelope.
func WriteError(c *gin.Context, err error) {
	writeErrorWithValues(c, err, nil)
}

func writeErrorWithValues(c *gin.Context, err error, values any) {
	var fields validator.Errors
	switch {
	case errors.As(err, &fields):
		response.ValidationFailed(c, fields, values)
	case errors.Is(err, access.ErrShareInvalid):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", access.ShareInvalidMessage)
	case errors.Is(err, ErrFolderNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Folder not found")
	case errors.Is(err, access.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, access.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Please log in to continue")
	case errors.Is(err, access.ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Shared links are read-only")
	case errors.Is(err, quota.ErrInsufficientSpace):
		response.Error(c, http.StatusRequestEntityTooLarge, "INSUFFICIENT_SPACE", "Not enough storage space for this file")
	case errors.Is(err, ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File is too large")
	case errors.Is(err, ErrEmptyFile):
		response.ValidationFailed(c, map[string]string{"file": "The file is empty"}, values)
	case errors.Is(err, ErrSizeMismatch):
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Upload was incomplete, please try again")
	case errors.Is(err, ErrNameConflict):
		response.Error(c, http.StatusConflict, "NAME_CONFLICT", "A folder with this name already exists")
	default:
		response.Internal(c, err)
	}
}
