package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/opshare/opshare/internal/api/middleware"
	"github.com/opshare/opshare/internal/catalog"
	"github.com/opshare/opshare/internal/models"
	"github.com/opshare/opshare/internal/token"
	"github.com/opshare/opshare/internal/utils"
	"go.uber.org/zap"
)

const maxUploadSize = 100 << 20 // 100 MB

// requireRole resolves the session user's role and writes a 403 when it is
// not the wanted one. Returns the user ID and whether the caller may
// proceed.
func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, want, denied string) (uint, bool) {
	userID, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return 0, false
	}

	role, err := h.Roles.RoleOf(userID)
	if err != nil {
		h.Log.Error("role lookup failed", zap.Error(err), zap.Uint("userId", userID))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database query failed",
		})
		return 0, false
	}
	if role != want {
		utils.JSONResponse(w, http.StatusForbidden, utils.Payload{
			Success: false,
			Message: denied,
		})
		return 0, false
	}
	return userID, true
}

// POST /files/upload
// Upload godoc
// @Summary Upload a file (Ops only)
// @Description Accepts a single .pptx, .docx or .xlsx file and records it in the catalog.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Router /api/v1/files/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	userID, ok := h.requireRole(w, r, models.RoleOps, "Only Ops users can upload files.")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid file upload form",
		})
		return
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "No file provided.",
		})
		return
	}
	defer src.Close()

	if !catalog.ValidExtension(header.Filename) {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid file type.",
		})
		return
	}

	blobKey := uuid.New().String() + "_" + header.Filename
	if err := h.Blobs.Store(r.Context(), blobKey, src); err != nil {
		h.Log.Error("blob store failed", zap.Error(err), zap.String("key", blobKey))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to store file",
		})
		return
	}

	rec, err := h.Catalog.Create(userID, blobKey, header.Filename, header.Size/1024)
	if err != nil {
		h.Log.Error("file record failed", zap.Error(err), zap.String("key", blobKey))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database insert failed",
		})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "File uploaded successfully.",
		Data: map[string]any{
			"file_id": rec.ID,
		},
	})
}

// GET /files
// List godoc
// @Summary List visible files (Client only)
// @Tags Files
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Router /api/v1/files [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, ok := h.requireRole(w, r, models.RoleClient, "Only Client users can list files.")
	if !ok {
		return
	}

	records, err := h.Catalog.ListActive()
	if err != nil {
		h.Log.Error("file listing failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database query failed",
		})
		return
	}

	files := make([]map[string]any, 0, len(records))
	for _, f := range records {
		files = append(files, map[string]any{
			"id":           f.ID,
			"file_name":    f.Filename,
			"file_size_kb": f.SizeKB,
			"last_opened":  f.LastOpened,
		})
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Files retrieved successfully",
		Data: map[string]any{
			"files": files,
		},
	})
}

// GET /files/{id}/link
// GenerateLink godoc
// @Summary Generate a secure download link (Client only)
// @Description Mints an encrypted token bound to the requesting user and the file.
// @Tags Files
// @Produce json
// @Param id path int true "File ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id}/link [get]
func (h *Handler) GenerateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireRole(w, r, models.RoleClient, "Only Client users can download files.")
	if !ok {
		return
	}

	fileID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid file id",
		})
		return
	}

	rec, err := h.Catalog.GetActive(uint(fileID))
	if errors.Is(err, catalog.ErrNotFound) {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "File not found.",
		})
		return
	}
	if err != nil {
		h.Log.Error("file lookup failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database query failed",
		})
		return
	}

	tok, err := h.Tokens.Mint(userID, rec.ID)
	if err != nil {
		h.Log.Error("token mint failed", zap.Error(err))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create download link",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Download link generated successfully.",
		Data: map[string]any{
			"download_link": h.downloadURL(r, tok),
		},
	})
}

// downloadURL builds an absolute link to the secure-download route.
func (h *Handler) downloadURL(r *http.Request, tok string) string {
	base := h.BaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return fmt.Sprintf("%s/api/v1/files/download/%s", base, tok)
}

// GET /files/download/{token}
// SecureDownload godoc
// @Summary Redeem a download token and stream the file
// @Description The token must have been minted for the requesting user. Streams the blob as an attachment.
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Download token"
// @Success 200 {file} binary
// @Failure 400 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/download/{token} [get]
func (h *Handler) SecureDownload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	fileID, err := h.Tokens.Redeem(r.PathValue("token"), userID)
	if errors.Is(err, token.ErrForbidden) {
		utils.JSONResponse(w, http.StatusForbidden, utils.Payload{
			Success: false,
			Message: "This link is not valid for this user.",
		})
		return
	}
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid or expired download link.",
		})
		return
	}

	rec, err := h.Catalog.GetActive(fileID)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid or expired download link.",
		})
		return
	}

	exists, err := h.Blobs.Exists(r.Context(), rec.BlobKey)
	if err != nil {
		h.Log.Error("blob check failed", zap.Error(err), zap.String("key", rec.BlobKey))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to read file",
		})
		return
	}
	if !exists {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "File no longer exists.",
		})
		return
	}

	src, err := h.Blobs.Open(r.Context(), rec.BlobKey)
	if err != nil {
		h.Log.Error("blob open failed", zap.Error(err), zap.String("key", rec.BlobKey))
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to read file",
		})
		return
	}
	defer src.Close()

	if err := h.Catalog.TouchLastOpened(rec.ID); err != nil {
		h.Log.Error("touch failed", zap.Error(err), zap.Uint("fileId", rec.ID))
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	if _, err := io.Copy(w, src); err != nil {
		h.Log.Error("stream failed", zap.Error(err), zap.String("key", rec.BlobKey))
	}
}
