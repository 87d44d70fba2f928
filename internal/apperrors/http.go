package apperrors

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MinErrorStatusCode is the minimum HTTP status code considered an error.
const MinErrorStatusCode = 400

const maxErrorBody = 64 << 10

// ParseHTTPError turns an error response into a ServiceError. It returns nil
// for status codes below 400.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode < MinErrorStatusCode {
		return nil
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &ServiceError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read error response body: %v", err),
		}
	}

	bodyStr := strings.TrimSpace(string(bodyBytes))

	var jsonErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}

	if json.Unmarshal(bodyBytes, &jsonErr) == nil && (jsonErr.Error != "" || jsonErr.Message != "") {
		msg := jsonErr.Error
		if msg == "" {
			msg = jsonErr.Message
		}
		return &ServiceError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			Code:       jsonErr.Code,
			Body:       bodyStr,
		}
	}

	msg := bodyStr
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &ServiceError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Body:       bodyStr,
	}
}
