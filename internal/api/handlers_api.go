package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gridhall/ghatz/internal/export"
	"github.com/gridhall/ghatz/internal/filter"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/views"
)

// EmptyResponse is returned with 200 when the filters match no rows.
type EmptyResponse struct {
	Empty  bool   `json:"empty"`
	Notice string `json:"notice"`
}

var emptyResponse = EmptyResponse{Empty: true, Notice: views.NoDataNotice}

type DomainInfo struct {
	Domain    models.Domain `json:"domain"`
	Title     string        `json:"title"`
	Worksheet string        `json:"worksheet"`
	Facility  bool          `json:"facility"`
}

type HealthStatus struct {
	Status  string         `json:"status"`
	Domains []DomainHealth `json:"domains"`
	Errors  []string       `json:"errors,omitempty"`
}

type DomainHealth struct {
	Domain     models.Domain `json:"domain"`
	Cached     bool          `json:"cached"`
	AgeMinutes int           `json:"age_minutes"`
	LastRunOK  *bool         `json:"last_run_ok,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	health := HealthStatus{Status: "ok", Domains: make([]DomainHealth, 0, len(s.domains))}

	var lastOK map[string]bool
	if st := s.loader.Store(); st != nil {
		runs, err := st.LatestLoadRuns()
		if err != nil {
			health.Errors = append(health.Errors, err.Error())
		}
		lastOK = make(map[string]bool, len(runs))
		for d, r := range runs {
			lastOK[d] = r.Success
		}
	}

	now := time.Now()
	for _, d := range s.domains {
		dh := DomainHealth{Domain: d, AgeMinutes: -1}
		if l, ok := s.loader.Cached(d); ok {
			dh.Cached = true
			dh.AgeMinutes = int(now.Sub(l.LoadedAt).Minutes())
		}
		if ok, seen := lastOK[string(d)]; seen {
			dh.LastRunOK = &ok
			if !ok {
				health.Status = "degraded"
			}
		}
		health.Domains = append(health.Domains, dh)
	}
	if len(health.Errors) > 0 {
		health.Status = "error"
	}

	code := http.StatusOK
	if health.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, health)
}

func (s *Server) handleDomains(c echo.Context) error {
	out := make([]DomainInfo, 0, len(s.domains))
	for _, d := range s.domains {
		def, err := s.loader.Definition(d)
		if err != nil {
			return httpError(err)
		}
		out = append(out, DomainInfo{Domain: d, Title: def.Title, Worksheet: def.Schema.Worksheet, Facility: d.IsFacility()})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleOverview(c echo.Context) error {
	out, err := views.Overview(c.Request().Context(), s.loader, s.domains)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

// request resolves the domain and filter constraints of a request and loads
// the domain's table.
func (s *Server) request(c echo.Context) (*ingest.Loaded, filter.Constraints, error) {
	d, ok := models.ParseDomain(c.Param("domain"))
	if !ok {
		return nil, filter.Constraints{}, echo.NewHTTPError(http.StatusNotFound, "unknown domain "+strconv.Quote(c.Param("domain")))
	}
	cons, err := filter.ParseQuery(c.QueryParams())
	if err != nil {
		return nil, cons, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	loaded, err := s.loader.Load(c.Request().Context(), d)
	if err != nil {
		return nil, cons, httpError(err)
	}
	return loaded, cons, nil
}

func (s *Server) handleTable(c echo.Context) error {
	loaded, cons, err := s.request(c)
	if err != nil {
		return err
	}
	t, err := views.Filtered(loaded, cons)
	if errors.Is(err, filter.ErrEmptyResult) {
		return c.JSON(http.StatusOK, emptyResponse)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleView(c echo.Context) error {
	loaded, cons, err := s.request(c)
	if err != nil {
		return err
	}
	page, err := views.Build(loaded, cons, s.opts)
	if err != nil {
		return httpError(err)
	}
	if page.Empty {
		return c.JSON(http.StatusOK, emptyResponse)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleExport(c echo.Context) error {
	loaded, cons, err := s.request(c)
	if err != nil {
		return err
	}
	t, err := views.Filtered(loaded, cons)
	if errors.Is(err, filter.ErrEmptyResult) {
		return c.JSON(http.StatusOK, emptyResponse)
	}
	if err != nil {
		return httpError(err)
	}
	data, err := export.Bytes(t)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.FileName(loaded.Definition.Domain, cons)+`"`)
	return c.Blob(http.StatusOK, export.ContentType, data)
}

func (s *Server) handleGallery(c echo.Context) error {
	loaded, cons, err := s.request(c)
	if err != nil {
		return err
	}
	if !loaded.Definition.Domain.IsFacility() {
		return echo.NewHTTPError(http.StatusNotFound, "no gallery for "+string(loaded.Definition.Domain))
	}
	state := views.GalleryState{SessionID: c.QueryParam("session")}
	var step int
	if v := c.QueryParam("index"); v != "" {
		if state.Index, err = strconv.Atoi(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
		}
	}
	if v := c.QueryParam("step"); v != "" {
		if step, err = strconv.Atoi(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid step")
		}
	}
	t, err := views.Filtered(loaded, cons)
	if err != nil && !errors.Is(err, filter.ErrEmptyResult) {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views.Gallery(t, state, step))
}

type refreshResponse struct {
	Domain   models.Domain `json:"domain"`
	Rows     int           `json:"rows"`
	Dropped  int           `json:"dropped"`
	Warnings []string      `json:"warnings,omitempty"`
	LoadedAt time.Time     `json:"loaded_at"`
}

func (s *Server) handleRefresh(c echo.Context) error {
	d, ok := models.ParseDomain(c.Param("domain"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown domain "+strconv.Quote(c.Param("domain")))
	}
	loaded, err := s.loader.Refresh(c.Request().Context(), d)
	if err != nil {
		return httpError(err)
	}
	resp := refreshResponse{
		Domain:   d,
		Rows:     loaded.Table.Len(),
		Dropped:  loaded.Report.RowsDropped(),
		Warnings: append([]string(nil), loaded.Report.Warnings...),
		LoadedAt: loaded.LoadedAt,
	}
	for _, w := range loaded.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return c.JSON(http.StatusOK, resp)
}
