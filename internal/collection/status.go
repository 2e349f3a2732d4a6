package collection

import "github.com/intraceai/archive-viewer/pkg/models"

type Style int

const (
	StyleNeutral Style = iota
	StyleSuccess
	StyleWarning
	StyleError
)

func StatusStyle(status models.Status) Style {
	switch status {
	case models.StatusCompleted:
		return StyleSuccess
	case models.StatusProcessing:
		return StyleWarning
	case models.StatusFailed:
		return StyleError
	default:
		return StyleNeutral
	}
}

// Class is the CSS class for a status badge.
func (s Style) Class() string {
	switch s {
	case StyleSuccess:
		return "badge-success"
	case StyleWarning:
		return "badge-warning"
	case StyleError:
		return "badge-error"
	default:
		return "badge-neutral"
	}
}

// CanView reports whether the View action is enabled for status.
func CanView(status models.Status) bool {
	return status == models.StatusCompleted
}
