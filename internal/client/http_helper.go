package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
)

// doJSON performs a JSON request and decodes a 2xx body into T. Network
// failures come back as TransportError and non-2xx answers as ServiceError.
func doJSON[T any](ctx context.Context, c *ReviewClient, op, method, endpoint string, requestBody any) (*T, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		body, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, tokenErr := c.tokens.Token(ctx)
		if tokenErr != nil {
			return nil, tokenErr
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, &apperrors.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if parseErr := apperrors.ParseHTTPError(resp); parseErr != nil {
		if resp.StatusCode == http.StatusUnauthorized && c.guard != nil {
			c.guard.Expire(parseErr.Error())
		}
		return nil, parseErr
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	var result T
	if err = json.Unmarshal(respBody, &result); err != nil {
		return nil, apperrors.NewValidation(op, fmt.Sprintf("malformed response: %v", err))
	}

	return &result, nil
}
