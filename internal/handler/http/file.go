package http

import (
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/cmlabs-hris/hris-timekeeping/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-timekeeping/internal/service/file"
	"github.com/go-chi/chi/v5"
)

type FileHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
}

type fileHandlerImpl struct {
	fileService file.FileService
}

func NewFileHandler(fileService file.FileService) FileHandler {
	return &fileHandlerImpl{
		fileService: fileService,
	}
}

// Get streams a stored screenshot. Keys have the form
// screenshots/{employee_id}/{session_id}/{name}.jpg and are readable by the
// owning employee or an elevated role.
func (h *fileHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	key := path.Clean("/" + chi.URLParam(r, "*"))[1:]
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "screenshots" || !validator.IsValidUUID(parts[2]) {
		response.NotFound(w, file.ErrFileNotFound.Error())
		return
	}
	if !actor.CanAccess(parts[1]) {
		response.HandleError(w, user.ErrInsufficientPermissions)
		return
	}

	rc, err := h.fileService.OpenFile(r.Context(), key)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("failed to stream file", "key", key, "error", err)
	}
}
