package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
	"github.com/cmlabs-hris/hris-timekeeping/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// maxScreenshotForm bounds the multipart body of a screenshot capture.
const maxScreenshotForm = 10 << 20

type WorkSessionHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	Pause(w http.ResponseWriter, r *http.Request)
	Resume(w http.ResponseWriter, r *http.Request)
	Stop(w http.ResponseWriter, r *http.Request)
	Archive(w http.ResponseWriter, r *http.Request)
	RecordSample(w http.ResponseWriter, r *http.Request)
	CaptureScreenshot(w http.ResponseWriter, r *http.Request)
	DeleteScreenshot(w http.ResponseWriter, r *http.Request)
	AddTask(w http.ResponseWriter, r *http.Request)
	UpdateNotes(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	DailyStats(w http.ResponseWriter, r *http.Request)
	WeeklyStats(w http.ResponseWriter, r *http.Request)
	MonthlyStats(w http.ResponseWriter, r *http.Request)
}

type workSessionHandlerImpl struct {
	sessionService worksession.SessionService
}

func NewWorkSessionHandler(sessionService worksession.SessionService) WorkSessionHandler {
	return &workSessionHandlerImpl{
		sessionService: sessionService,
	}
}

// Start implements WorkSessionHandler.
func (h *workSessionHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	var req worksession.StartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.Start(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Work session started", result)
}

func (h *workSessionHandlerImpl) transition(w http.ResponseWriter, r *http.Request, message string, fn func(*http.Request, string) (worksession.SessionResponse, error)) {
	result, err := fn(r, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, message, result)
}

// Pause implements WorkSessionHandler.
func (h *workSessionHandlerImpl) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Work session paused", func(r *http.Request, id string) (worksession.SessionResponse, error) {
		return h.sessionService.Pause(r.Context(), id)
	})
}

// Resume implements WorkSessionHandler.
func (h *workSessionHandlerImpl) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Work session resumed", func(r *http.Request, id string) (worksession.SessionResponse, error) {
		return h.sessionService.Resume(r.Context(), id)
	})
}

// Stop implements WorkSessionHandler.
func (h *workSessionHandlerImpl) Stop(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Work session stopped", func(r *http.Request, id string) (worksession.SessionResponse, error) {
		return h.sessionService.Stop(r.Context(), id)
	})
}

// Archive implements WorkSessionHandler.
func (h *workSessionHandlerImpl) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Work session archived", func(r *http.Request, id string) (worksession.SessionResponse, error) {
		return h.sessionService.Archive(r.Context(), id)
	})
}

// RecordSample implements WorkSessionHandler.
func (h *workSessionHandlerImpl) RecordSample(w http.ResponseWriter, r *http.Request) {
	var req worksession.SampleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SessionID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.RecordSample(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Activity sample recorded", result)
}

// CaptureScreenshot implements WorkSessionHandler. The body is a multipart
// form with the metadata as JSON in 'data' and an optional 'image' file; a
// plain JSON body is accepted for metadata-only captures.
func (h *workSessionHandlerImpl) CaptureScreenshot(w http.ResponseWriter, r *http.Request) {
	var req worksession.ScreenshotRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if !decodeJSON(w, r, &req) {
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxScreenshotForm)
		if err := r.ParseMultipartForm(maxScreenshotForm); err != nil {
			slog.Error("Failed to parse multipart form", "error", err)
			response.BadRequest(w, "Failed to parse form data", nil)
			return
		}

		dataJSON := r.FormValue("data")
		if dataJSON == "" {
			response.BadRequest(w, "Field 'data' is required", nil)
			return
		}
		if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
			response.HandleDecodeError(w, err)
			return
		}

		file, fileHeader, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			slog.Error("Failed to get file from form", "error", err)
			response.BadRequest(w, "Invalid file upload", nil)
			return
		default:
			defer file.Close()
			req.Image = &worksession.ImageFile{Content: file, Filename: fileHeader.Filename}
		}
	}
	req.SessionID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.CaptureScreenshot(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Screenshot captured", result)
}

// DeleteScreenshot implements WorkSessionHandler.
func (h *workSessionHandlerImpl) DeleteScreenshot(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.SoftDeleteScreenshot(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "screenshotId"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Screenshot deleted", result)
}

// AddTask implements WorkSessionHandler.
func (h *workSessionHandlerImpl) AddTask(w http.ResponseWriter, r *http.Request) {
	var req worksession.AddTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SessionID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.AddTask(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Task added", result)
}

// UpdateNotes implements WorkSessionHandler.
func (h *workSessionHandlerImpl) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req worksession.UpdateNotesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SessionID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.UpdateNotes(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Get implements WorkSessionHandler.
func (h *workSessionHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// List implements WorkSessionHandler.
func (h *workSessionHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := worksession.SessionFilter{
		EmployeeID: queryString(q, "employee_id"),
		ProjectID:  queryString(q, "project_id"),
		Status:     queryString(q, "status"),
		Page:       queryInt(q, "page", 1),
		Limit:      queryInt(q, "limit", 20),
	}

	var errs validator.ValidationErrors
	var ok bool
	if filter.StartFrom, ok = queryTime(q, "start_from"); !ok {
		errs.Add("start_from", "start_from must be RFC 3339 or YYYY-MM-DD")
	}
	if filter.StartTo, ok = queryTime(q, "start_to"); !ok {
		errs.Add("start_to", "start_to must be RFC 3339 or YYYY-MM-DD")
	}
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Sessions, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// DailyStats implements WorkSessionHandler.
func (h *workSessionHandlerImpl) DailyStats(w http.ResponseWriter, r *http.Request) {
	date, ok := requiredDate(w, r, "date")
	if !ok {
		return
	}

	result, err := h.sessionService.DailyStats(r.Context(), r.URL.Query().Get("employee_id"), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// WeeklyStats implements WorkSessionHandler.
func (h *workSessionHandlerImpl) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	start, ok := requiredDate(w, r, "start")
	if !ok {
		return
	}

	result, err := h.sessionService.WeeklyStats(r.Context(), r.URL.Query().Get("employee_id"), start)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// MonthlyStats implements WorkSessionHandler.
func (h *workSessionHandlerImpl) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var errs validator.ValidationErrors
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		errs.Add("month", "month is required and must be a number")
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		errs.Add("year", "year is required and must be a number")
	}
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.MonthlyStats(r.Context(), q.Get("employee_id"), time.Month(month), year)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func requiredDate(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	date, ok := validator.IsValidDate(r.URL.Query().Get(key))
	if !ok {
		var errs validator.ValidationErrors
		errs.Add(key, key+" is required in YYYY-MM-DD format")
		response.HandleError(w, errs.Err())
		return time.Time{}, false
	}
	return date, true
}
