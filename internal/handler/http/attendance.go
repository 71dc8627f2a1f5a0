package http

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	StartNamaz(w http.ResponseWriter, r *http.Request)
	EndNamaz(w http.ResponseWriter, r *http.Request)
	UpdateTasks(w http.ResponseWriter, r *http.Request)
	UpdateNotes(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Stats(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.EntryService
}

func NewAttendanceHandler(attendanceService attendance.EntryService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req attendance.CheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.CheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Check in successful", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req attendance.CheckOutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.CheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Check out successful", result)
}

// StartBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	var req attendance.BreakStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.StartBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break started", result)
}

// EndBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	req := attendance.BreakEndRequest{EntryID: chi.URLParam(r, "id")}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.EndBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended", result)
}

// StartNamaz implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartNamaz(w http.ResponseWriter, r *http.Request) {
	var req attendance.NamazStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.StartNamaz(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Namaz started", result)
}

// EndNamaz implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndNamaz(w http.ResponseWriter, r *http.Request) {
	req := attendance.NamazEndRequest{EntryID: chi.URLParam(r, "id")}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.EndNamaz(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Namaz ended", result)
}

// UpdateTasks implements AttendanceHandler.
func (h *attendanceHandlerImpl) UpdateTasks(w http.ResponseWriter, r *http.Request) {
	var req attendance.UpdateTasksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.UpdateTasks(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UpdateNotes implements AttendanceHandler.
func (h *attendanceHandlerImpl) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req attendance.UpdateNotesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.UpdateNotes(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Delete implements AttendanceHandler.
func (h *attendanceHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.attendanceService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance entry deleted", nil)
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := parseEntryFilter(r)

	result, err := h.attendanceService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Entries, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Stats implements AttendanceHandler.
func (h *attendanceHandlerImpl) Stats(w http.ResponseWriter, r *http.Request) {
	filter := parseEntryFilter(r)

	result, err := h.attendanceService.Stats(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Export implements AttendanceHandler.
func (h *attendanceHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	filter := parseEntryFilter(r)

	data, err := h.attendanceService.Export(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	filename := "attendance.xlsx"
	switch {
	case filter.Date != nil:
		filename = fmt.Sprintf("attendance_%s.xlsx", *filter.Date)
	case filter.StartDate != nil && filter.EndDate != nil:
		filename = fmt.Sprintf("attendance_%s_%s.xlsx", *filter.StartDate, *filter.EndDate)
	}
	response.Attachment(w, filename, xlsxContentType, data)
}

func parseEntryFilter(r *http.Request) attendance.EntryFilter {
	q := r.URL.Query()
	return attendance.EntryFilter{
		EmployeeID: queryString(q, "employee_id"),
		Date:       queryString(q, "date"),
		StartDate:  queryString(q, "start_date"),
		EndDate:    queryString(q, "end_date"),
		Status:     queryString(q, "status"),
		Shift:      queryString(q, "shift"),
		IsRemote:   queryBool(q, "is_remote"),
		Page:       queryInt(q, "page", 1),
		Limit:      queryInt(q, "limit", 20),
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
	}
}
