package booking

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "seatdesk/internal/errors"
)

const (
	msgBookingFailed = "Booking Failed"
	msgSeatTaken     = "One of these seats was just taken!"
)

// FailureMessage turns a failed submission into the message shown to the
// visitor. status 0 means no response was received.
//
// A JSON body with a non-empty "detail" yields the detail itself, a JSON body
// without one yields a generic failure, anything else with a status yields
// "Server Error: <status>".
func FailureMessage(status int, contentType string, body []byte) string {
	if status == 0 {
		return msgSeatTaken
	}

	if isJSON(contentType) && gjson.ValidBytes(body) {
		if detail := gjson.GetBytes(body, "detail").String(); detail != "" {
			return detail
		}
		return msgBookingFailed
	}

	return fmt.Sprintf("Server Error: %d", status)
}

// CredentialError reports whether status means the server refused the
// credential itself. Such a response resets the session instead of showing
// an error.
func CredentialError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	}
	return nil
}

// isJSON accepts application/json and structured +json types such as
// application/problem+json
func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
