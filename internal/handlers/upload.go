package handlers

import (
	"net/http"

	"github.com/lumen-journal/lumen-backend/internal/config"
	"github.com/lumen-journal/lumen-backend/internal/services"
)

var cloudinaryService *services.CloudinaryService

func InitCloudinaryService(cfg *config.Config) error {
	service, err := services.NewCloudinaryService(
		cfg.CloudinaryName,
		cfg.CloudinaryAPIKey,
		cfg.CloudinaryAPISecret,
	)
	if err != nil {
		return err
	}
	cloudinaryService = service
	return nil
}

type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// UploadAttachment uploads a journal attachment to Cloudinary and
// returns the secure URL to store on the entry.
func UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(r); !ok {
		writeUnauthorized(w)
		return
	}
	if cloudinaryService == nil {
		writeJSON(w, http.StatusServiceUnavailable, UploadResponse{Success: false, Message: "Uploads are not configured"})
		return
	}

	if err := r.ParseMultipartForm(services.MaxAttachmentSize); err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Message: "Failed to parse form: " + err.Error()})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Message: "No file provided"})
		return
	}
	defer file.Close()

	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = "journal-attachments"
	}
	if !services.ValidUploadFolder(folder) {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Message: "Upload folder not allowed"})
		return
	}

	url, err := cloudinaryService.UploadFileFromHeader(r.Context(), fileHeader, folder)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, UploadResponse{Success: false, Message: "Failed to upload file"})
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		URL:     url,
	})
}
