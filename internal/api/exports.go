package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/intraceai/archive-viewer/internal/export"
	"github.com/intraceai/archive-viewer/pkg/models"
)

const wsWriteWait = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func jobResponse(st export.Status) models.ExportJobResponse {
	resp := models.ExportJobResponse{
		JobID:    st.ID,
		State:    string(st.State),
		Progress: st.Progress,
		Count:    st.Count,
	}
	if st.File != nil {
		resp.Filename = st.File.Name
		resp.SHA256 = st.File.SHA256
		resp.DownloadURL = exportURL(st.ID) + "/download"
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	return resp
}

func (s *Server) exportPage(c *gin.Context) {
	st, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
			c.JSON(http.StatusNotFound, gin.H{"error": "export not found"})
			return
		}
		s.renderError(c, http.StatusNotFound, "This export does not exist or has expired.", "/")
		return
	}

	status := http.StatusOK
	if st.State == export.JobFailed {
		status = http.StatusInternalServerError
	}

	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(status, jobResponse(st))
		return
	}

	data := exportPage{
		page:     page{Title: fmt.Sprintf("Export of %d snapshots", st.Count)},
		Domain:   st.Domain,
		Job:      jobResponse(st),
		Running:  st.State == export.JobRunning,
		Done:     st.State == export.JobDone,
		Failed:   st.State == export.JobFailed,
		Options:  st.Options,
		Selected: st.Selected,
		Expires:  humanExpiry(st.ExpiresAt),
		BackURL:  archiveURL(st.Domain, nil),
	}
	if st.File != nil {
		data.Size = humanize.Bytes(uint64(len(st.File.Data)))
	}
	if data.Failed {
		data.Notice = noticeFor(st.Err)
	}
	if data.Done {
		// Start the file save as soon as the finished page loads.
		c.Header("Refresh", "0; url="+data.Job.DownloadURL)
	}
	c.HTML(status, "export.html", data)
}

// exportProgress streams job status as JSON text frames until the job
// finishes or the client goes away.
func (s *Server) exportProgress(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.jobs.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found"})
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "job_id", id, "error", err)
		return
	}
	defer conn.Close()

	updates, cancel, ok := s.jobs.Subscribe(id)
	if !ok {
		return
	}
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for st := range updates {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(jobResponse(st)); err != nil {
			s.logger.Debug("websocket write failed", "job_id", id, "error", err)
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "export finished"))
}

func (s *Server) downloadExport(c *gin.Context) {
	st, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found"})
		return
	}

	switch st.State {
	case export.JobRunning:
		c.JSON(http.StatusConflict, gin.H{"error": "export is still running", "progress": st.Progress})
		return
	case export.JobFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": st.Err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", st.File.Name))
	c.Header("X-Content-SHA256", st.File.SHA256)
	c.Data(http.StatusOK, st.File.ContentType, st.File.Data)
}
