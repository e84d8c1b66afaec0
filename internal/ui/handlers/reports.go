// reports.go — обращения гражданина: список и создание с фото.
package handlers

import (
	"bufio"
	"errors"
	"net/http"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/service"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
	"github.com/bigkaa/cleancity/portal/internal/ui/pages"
)

const (
	// reportsPageSize — количество обращений на странице «Мои обращения».
	reportsPageSize = 50
	// multipartMemory — часть multipart-формы, хранимая в памяти.
	multipartMemory = 1 << 20
	// sniffLen — байт для определения типа файла.
	sniffLen = 512
)

// ReportsHandler — страницы обращений.
type ReportsHandler struct {
	*Base
	reports  *service.ReportService
	maxPhoto int64
}

// NewReportsHandler создаёт ReportsHandler. maxPhoto — лимит размера фото.
func NewReportsHandler(base *Base, reports *service.ReportService, maxPhoto int64) *ReportsHandler {
	return &ReportsHandler{Base: base, reports: reports, maxPhoto: maxPhoto}
}

// HandleList — GET /reports.
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.reports.ListMine(r.Context(), clientOf(r).Session.Snapshot().UserID, reportsPageSize, 0)
	if err != nil {
		h.failPage(w, r, err)
		return
	}

	v := h.view(r, "reports.title")
	v.Data = items
	h.render(w, http.StatusOK, "reports", v)
}

// HandleNew — GET /reports/new. Город подставляется из профиля.
func (h *ReportsHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	v := h.newView(r)
	if p := v.Session.Profile; p != nil {
		v.Form.Values["city"] = p.City
	}
	h.render(w, http.StatusOK, "report_new", v)
}

// HandleCreate — POST /reports/new (multipart/form-data).
func (h *ReportsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPhoto+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			v := h.newView(r)
			v.Form.Errors["photo"] = service.MsgPhotoTooLarge
			h.render(w, http.StatusRequestEntityTooLarge, "report_new", v)
			return
		}
		h.fail(w, r, err, "/reports/new")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := service.ReportForm{
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		Address:     r.FormValue("address"),
		City:        r.FormValue("city"),
	}

	file, header, err := r.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		h.fail(w, r, err, "/reports/new")
		return
	default:
		defer file.Close()
		if header.Size > 0 {
			br := bufio.NewReaderSize(file, sniffLen)
			head, _ := br.Peek(sniffLen)
			form.Photo = br
			form.PhotoName = header.Filename
			form.PhotoContentType = http.DetectContentType(head)
			form.PhotoSize = header.Size
		}
	}

	_, err = h.reports.Submit(r.Context(), clientOf(r).Session.Snapshot().UserID, form)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !errorsIsValidation(err) {
			h.logError(r, err)
			h.notify(r, notify.Error, errorKey(err))
			status = statusFor(err)
		}
		v := h.newView(r)
		v.Form.Values["category"] = form.Category
		v.Form.Values["description"] = form.Description
		v.Form.Values["address"] = form.Address
		v.Form.Values["city"] = form.City
		formErrors(v, err)
		h.render(w, status, "report_new", v)
		return
	}

	h.notify(r, notify.Success, "reports.submitted")
	redirect(w, r, "/reports")
}

func (h *ReportsHandler) newView(r *http.Request) *pages.View {
	v := h.view(r, "reports.new")
	v.Data = model.ReportCategories
	return v
}
