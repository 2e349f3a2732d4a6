package api

import (
	"errors"
	"net/http"

	"github.com/intraceai/archive-viewer/internal/collection"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, collection.ErrDeleteUnsupported):
		return http.StatusForbidden
	case errors.Is(err, collection.ErrSuperseded), errors.Is(err, collection.ErrNotReady):
		return http.StatusConflict
	}

	var ne *shared.NetworkError
	if errors.As(err, &ne) && ne.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}

	switch shared.KindOf(err) {
	case shared.KindNetwork:
		return http.StatusBadGateway
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindExport:
		return http.StatusInternalServerError
	case shared.KindUnavailableAction:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type notice struct {
	Kind    string
	Message string
}

// noticeFor picks the banner style for an action error.
func noticeFor(err error) *notice {
	n := &notice{Kind: "error", Message: err.Error()}
	switch shared.KindOf(err) {
	case shared.KindValidation, shared.KindUnavailableAction:
		n.Kind = "warning"
	}

	var ve *shared.ValidationError
	if errors.As(err, &ve) {
		n.Message = ve.Message
	}
	return n
}
