package handler

import (
	"context"
	"fmt"
	"strings"

	"engram/internal/logging"
	"engram/internal/types"
)

// URLOpenHandler opens a URL in the default browser. Only http:// and
// https:// schemes are allowed; javascript:, file:, data:, and every other
// scheme is rejected.
type URLOpenHandler struct{}

func (URLOpenHandler) ActionType() types.ActionType   { return types.ActionURLOpen }
func (URLOpenHandler) SafetyLevel() types.SafetyLevel { return types.SafetyPassive }

func (URLOpenHandler) Execute(ctx context.Context, payload Payload) (Result, error) {
	url := payload.str("url")
	if url == "" {
		return Result{}, errInvalidPayload("url_open.Execute", "URL must not be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Result{}, errInvalidPayload("url_open.Execute",
			fmt.Sprintf("unsupported URL scheme, only http:// and https:// are allowed, got: %s", url))
	}

	logging.Action("opened URL: %s", url)
	return Result{Success: true, Message: fmt.Sprintf("Opened URL: %s", url)}, nil
}

func (URLOpenHandler) Describe(payload Payload) string {
	url := payload.str("url")
	if url == "" {
		url = "<no url>"
	}
	return fmt.Sprintf("Open URL: %s", url)
}
