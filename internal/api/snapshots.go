package api

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/intraceai/archive-viewer/internal/collection"
	"github.com/intraceai/archive-viewer/internal/renderer"
	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

// findSnapshot looks a snapshot up in the (cached) domain listing.
func (s *Server) findSnapshot(c *gin.Context, domain, timestamp string) (models.Snapshot, bool, error) {
	resp, err := s.cache.Snapshots(c.Request.Context(), domain, s.backend.ListSnapshots)
	if err != nil {
		return models.Snapshot{}, false, err
	}
	for _, snap := range resp.Snapshots {
		if snap.Timestamp == timestamp {
			return snap, true, nil
		}
	}
	return models.Snapshot{}, false, nil
}

func parseSnapshotParams(c *gin.Context) (string, string, error) {
	domain, err := parseDomain(c)
	if err != nil {
		return "", "", err
	}
	timestamp := c.Param("timestamp")
	if err := shared.ValidateTimestamp(timestamp); err != nil {
		return "", "", err
	}
	return domain, timestamp, nil
}

func (s *Server) viewSnapshot(c *gin.Context) {
	domain, timestamp, err := parseSnapshotParams(c)
	if err != nil {
		s.renderError(c, statusFor(err), err.Error(), "/")
		return
	}
	back := archiveURL(domain, nil)

	snap, found, err := s.findSnapshot(c, domain, timestamp)
	if err != nil {
		s.renderError(c, statusFor(err), err.Error(), back)
		return
	}
	if !found {
		s.renderError(c, http.StatusNotFound, "Snapshot not found.", back)
		return
	}
	if !collection.CanView(snap.Status) {
		err := &shared.UnavailableActionError{Timestamp: snap.Timestamp, Status: string(snap.Status)}
		s.renderError(c, statusFor(err), err.Error(), back)
		return
	}

	title := snap.Title
	if title == "" {
		title = snap.URL
	}

	mode := renderer.ParseMode(c.Query("mode"))
	modes := make([]modeLink, 0, 3)
	for _, m := range []struct {
		label string
		mode  renderer.Mode
	}{
		{"Original", renderer.ModeRaw},
		{"Safe", renderer.ModeSafe},
		{"Reader", renderer.ModeReader},
	} {
		link := collection.SnapshotRoute(domain, timestamp)
		if m.mode != renderer.ModeRaw {
			link += "?" + url.Values{"mode": {string(m.mode)}}.Encode()
		}
		modes = append(modes, modeLink{Label: m.label, URL: link, Active: m.mode == mode})
	}

	c.HTML(http.StatusOK, "viewer.html", viewerPage{
		page:     page{Title: title},
		Domain:   domain,
		Snapshot: snap,
		Frame:    s.renderer.Frame(domain, timestamp, mode),
		Mode:     string(mode),
		Modes:    modes,
		BackURL:  back,
		Captured: formatCaptured(snap.Timestamp),
	})
}

// rawSnapshot serves a captured body for the sandboxed frame. It is the
// only handler that writes captured markup.
func (s *Server) rawSnapshot(c *gin.Context) {
	s.renderer.ApplyHeaders(c.Writer.Header())

	domain, timestamp, err := parseSnapshotParams(c)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}

	snap, found, err := s.findSnapshot(c, domain, timestamp)
	if err != nil {
		c.String(statusFor(err), "Failed to load snapshot listing.")
		return
	}
	if !found {
		c.String(http.StatusNotFound, "Snapshot not found.")
		return
	}
	if !collection.CanView(snap.Status) {
		err := &shared.UnavailableActionError{Timestamp: snap.Timestamp, Status: string(snap.Status)}
		c.String(statusFor(err), err.Error())
		return
	}

	content, err := s.backend.GetSnapshotContent(c.Request.Context(), domain, timestamp)
	if err != nil {
		s.logger.Error("failed to fetch snapshot content", "domain", domain, "timestamp", timestamp, "error", err)
		c.String(statusFor(err), "Failed to load snapshot content.")
		return
	}

	mode := renderer.ParseMode(c.Query("mode"))
	pageURL := snap.URL
	if pageURL == "" {
		pageURL = "https://" + domain
	}

	body, contentType, err := s.renderer.Render(content, pageURL, mode)
	if err != nil {
		s.logger.Error("failed to render snapshot", "domain", domain, "timestamp", timestamp, "mode", mode, "error", err)
		c.String(http.StatusInternalServerError, "Failed to render snapshot.")
		return
	}
	c.Data(http.StatusOK, contentType, body)
}
