package api

import (
	"net/http"
	"net/url"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/intraceai/archive-viewer/internal/collection"
	"github.com/intraceai/archive-viewer/internal/export"
	"github.com/intraceai/archive-viewer/internal/filter"
	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

const (
	modeList     = "list"
	modeCalendar = "calendar"
)

// viewRequest is the collection state carried in query and form values.
type viewRequest struct {
	domain   string
	criteria filter.Criteria
	mode     string
	date     string
	selected []string
	toggle   string
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", homePage{page: page{Title: "Archive Viewer"}})
}

func (s *Server) search(c *gin.Context) {
	raw := c.PostForm("domain")
	domain := shared.CleanDomain(raw)
	if err := shared.ValidateDomain(domain); err != nil {
		c.HTML(http.StatusBadRequest, "home.html", homePage{
			page:   page{Title: "Archive Viewer", Notice: noticeFor(err)},
			Domain: raw,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, archiveURL(domain, nil))
}

func parseDomain(c *gin.Context) (string, error) {
	domain := shared.CleanDomain(c.Param("domain"))
	if err := shared.ValidateDomain(domain); err != nil {
		return "", err
	}
	return domain, nil
}

func parseViewRequest(c *gin.Context) (viewRequest, error) {
	domain, err := parseDomain(c)
	if err != nil {
		return viewRequest{}, err
	}
	if err := c.Request.ParseForm(); err != nil {
		return viewRequest{}, &shared.ValidationError{Field: "form", Message: err.Error()}
	}
	form := c.Request.Form

	criteria, err := filter.ParseCriteria(form)
	if err != nil {
		return viewRequest{}, err
	}

	mode := modeList
	if form.Get("view") == modeCalendar {
		mode = modeCalendar
	}

	return viewRequest{
		domain:   domain,
		criteria: criteria,
		mode:     mode,
		date:     form.Get("date"),
		selected: form["selected"],
		toggle:   form.Get("toggle"),
	}, nil
}

// query rebuilds the request's navigation state, without the selection.
func (r viewRequest) query() url.Values {
	q := r.criteria.Values()
	if r.mode == modeCalendar {
		q.Set("view", modeCalendar)
		if r.date != "" {
			q.Set("date", r.date)
		}
	}
	return q
}

func (s *Server) loadView(c *gin.Context, req viewRequest) (*collection.View, error) {
	v := s.newView()
	v.SetCriteria(req.criteria)
	if err := v.Load(c.Request.Context(), req.domain); err != nil {
		return v, err
	}
	v.Select(req.selected...)
	return v, nil
}

func (s *Server) archivePage(c *gin.Context) {
	req, err := parseViewRequest(c)
	if err != nil {
		s.renderError(c, statusFor(err), err.Error(), "/")
		return
	}

	v, err := s.loadView(c, req)
	if err != nil {
		s.renderArchive(c, statusFor(err), v, req, nil)
		return
	}

	switch req.toggle {
	case "":
	case "all":
		v.ToggleAll()
	default:
		v.Toggle(req.toggle)
	}

	s.renderArchive(c, http.StatusOK, v, req, nil)
}

func (s *Server) openSnapshot(c *gin.Context) {
	req, err := parseViewRequest(c)
	if err != nil {
		s.renderError(c, statusFor(err), err.Error(), "/")
		return
	}

	v, err := s.loadView(c, req)
	if err != nil {
		s.renderArchive(c, statusFor(err), v, req, nil)
		return
	}

	route, err := v.Open(c.PostForm("timestamp"))
	if err != nil {
		s.renderArchive(c, statusFor(err), v, req, noticeFor(err))
		return
	}
	c.Redirect(http.StatusSeeOther, route)
}

func (s *Server) deleteSnapshots(c *gin.Context) {
	req, err := parseViewRequest(c)
	if err != nil {
		s.renderError(c, statusFor(err), err.Error(), "/")
		return
	}

	v, err := s.loadView(c, req)
	if err != nil {
		s.renderArchive(c, statusFor(err), v, req, nil)
		return
	}

	deleted, err := v.DeleteSelected(c.Request.Context())
	if err != nil {
		s.renderArchive(c, statusFor(err), v, req, noticeFor(err))
		return
	}
	if len(deleted) == 0 {
		err := &shared.ValidationError{Field: "selected", Message: "select at least one snapshot to delete"}
		s.renderArchive(c, statusFor(err), v, req, noticeFor(err))
		return
	}

	q := req.query()
	for _, id := range v.State().Selected {
		q.Add("selected", id)
	}
	c.Redirect(http.StatusSeeOther, archiveURL(req.domain, q))
}

func (s *Server) startExport(c *gin.Context) {
	req, err := parseViewRequest(c)
	if err != nil {
		s.renderError(c, statusFor(err), err.Error(), "/")
		return
	}

	v, err := s.loadView(c, req)
	if err != nil {
		s.renderArchive(c, statusFor(err), v, req, nil)
		return
	}

	opts, err := exportOptions(c)
	if err != nil {
		s.renderArchive(c, statusFor(err), v, req, noticeFor(err))
		return
	}

	st, err := s.jobs.Create(req.domain, v.SelectedSnapshots(), opts)
	if err != nil {
		s.renderArchive(c, statusFor(err), v, req, noticeFor(err))
		return
	}
	c.Redirect(http.StatusSeeOther, exportURL(st.ID))
}

func exportOptions(c *gin.Context) (export.Options, error) {
	format, err := export.ParseFormat(c.PostForm("format"))
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{
		Format:          format,
		IncludeMetadata: checked(c.PostForm("include_metadata")),
		IncludeContent:  checked(c.PostForm("include_content")),
		IncludeImages:   checked(c.PostForm("include_images")),
	}, nil
}

func checked(v string) bool {
	return v == "on" || v == "true" || v == "1"
}

func (s *Server) archiveJSON(c *gin.Context) {
	req, err := parseViewRequest(c)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	v, err := s.loadView(c, req)
	st := v.State()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "message": st.Message})
		return
	}

	c.JSON(http.StatusOK, models.ArchiveViewResponse{
		Domain:    st.Domain,
		Phase:     st.Phase.String(),
		Total:     len(st.Snapshots),
		Shown:     len(st.Filtered),
		Snapshots: st.Filtered,
		Selected:  st.Selected,
		Filters:   st.Criteria.Active(),
	})
}

func (s *Server) renderArchive(c *gin.Context, status int, v *collection.View, req viewRequest, n *notice) {
	st := v.State()
	base := req.query()

	withSelection := func(q url.Values) url.Values {
		for _, id := range st.Selected {
			q.Add("selected", id)
		}
		return q
	}

	listQuery := req.criteria.Values()
	calendarQuery := req.criteria.Values()
	calendarQuery.Set("view", modeCalendar)

	data := archivePage{
		page:          page{Title: "Archive for " + req.domain, Notice: n},
		Domain:        req.domain,
		Phase:         st.Phase.String(),
		Message:       st.Message,
		Summary:       st.Summary(),
		Rows:          rowsFor(st.Filtered, st),
		Filters:       st.Criteria.Active(),
		Mode:          req.mode,
		Hidden:        hiddenFields(base),
		Selected:      st.Selected,
		SelectedCount: len(st.Selected),
		AllSelected:   st.AllSelected(),
		AllowDelete:   s.allowDelete,
		Export:        export.DefaultOptions(),
		ClearURL:      archiveURL(req.domain, withSelection(url.Values{})),
		ListURL:       archiveURL(req.domain, withSelection(listQuery)),
		CalendarURL:   archiveURL(req.domain, withSelection(calendarQuery)),
		Form: filterForm{
			Status: base.Get("status"),
			Size:   base.Get("size"),
			From:   base.Get("from"),
			To:     base.Get("to"),
			Q:      base.Get("q"),
		},
	}

	if req.mode == modeCalendar && st.Phase == collection.PhaseReady {
		cal := v.Calendar(req.date)
		cv := &calendarView{
			Selected:   cal.Selected,
			OnSelected: rowsFor(cal.OnSelected, st),
			DayCount:   cal.DaysWithSnapshots(),
			Total:      cal.Total,
		}
		for _, day := range cal.Days {
			q := req.criteria.Values()
			q.Set("view", modeCalendar)
			q.Set("date", day.Date)
			cv.Days = append(cv.Days, calendarDay{
				Date:   day.Date,
				Count:  len(day.Snapshots),
				URL:    archiveURL(req.domain, withSelection(q)),
				Active: day.Date == cal.Selected,
			})
		}
		data.Calendar = cv
	}

	c.HTML(status, "archive.html", data)
}

func hiddenFields(q url.Values) []hiddenField {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []hiddenField
	for _, k := range keys {
		for _, v := range q[k] {
			fields = append(fields, hiddenField{Name: k, Value: v})
		}
	}
	return fields
}

func (s *Server) renderError(c *gin.Context, status int, message, back string) {
	c.HTML(status, "error.html", errorPage{
		page:    page{Title: http.StatusText(status)},
		Status:  status,
		Message: message,
		BackURL: back,
	})
}
