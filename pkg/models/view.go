package models

// ArchiveViewResponse is the JSON shape of a filtered collection view.
type ArchiveViewResponse struct {
	Domain    string     `json:"domain"`
	Phase     string     `json:"phase"`
	Message   string     `json:"message,omitempty"`
	Total     int        `json:"total"`
	Shown     int        `json:"shown"`
	Snapshots []Snapshot `json:"snapshots"`
	Selected  []string   `json:"selected"`
	Filters   []string   `json:"filters,omitempty"`
}

type ExportJobResponse struct {
	JobID       string `json:"job_id"`
	State       string `json:"state"`
	Progress    int    `json:"progress"`
	Count       int    `json:"count"`
	Filename    string `json:"filename,omitempty"`
	SHA256      string `json:"sha256,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Error       string `json:"error,omitempty"`
}
