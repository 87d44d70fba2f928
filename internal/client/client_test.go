package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/client"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func sampleDraft(id string) domain.Draft {
	return domain.Draft{
		ID:        id,
		Status:    domain.StatusPending,
		Priority:  domain.PriorityMedium,
		Extracted: domain.Extracted{Title: "Fellowship " + id, Type: domain.KindFellowship},
	}
}

func TestListDrafts_SendsFiltersAndValidates(t *testing.T) {
	t.Parallel()

	var gotQuery string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/drafts", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, domain.ListResponse{
			Items: []domain.Draft{sampleDraft("d1")}, Total: 1, Pending: 1, Page: 1, TotalPages: 1,
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL+"/", client.WithTokenSource(session.StaticToken("tok")))
	list, err := c.ListDrafts(context.Background(), filter.Filters{Status: "pending", Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, "limit=10&page=1&status=pending", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "d1", list.Items[0].ID)
}

func TestListDrafts_RejectsUncheckedShapes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		bad := sampleDraft("d1")
		bad.Type = "raffle"
		writeJSON(t, w, http.StatusOK, domain.ListResponse{Items: []domain.Draft{bad}, Total: 1, Page: 1, TotalPages: 1})
	}))
	defer srv.Close()

	_, err := client.New(srv.URL).ListDrafts(context.Background(), filter.Default(0))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestServiceErrorAndUnauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/drafts/stats" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}
		writeJSON(t, w, http.StatusConflict, map[string]string{"error": "draft is not pending"})
	}))
	defer srv.Close()

	guard := session.NewGuard(true)
	c := client.New(srv.URL, client.WithGuard(guard))

	_, err := c.ReviewDraft(context.Background(), "d1", domain.ReviewRequest{Action: domain.ActionReject})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.True(t, guard.Authenticated())

	_, err = c.DraftStats(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.False(t, guard.Authenticated(), "401 expires the session")
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.New(url, client.WithHTTPClient(&http.Client{Timeout: time.Second})).DraftStats(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.Equal(t, apperrors.StatusTransport, apperrors.StatusOf(err))
}

func TestExpiredTokenNeverDialsOut(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	raw, err := session.MintToken("secret", "reviewer", -time.Minute)
	require.NoError(t, err)

	guard := session.NewGuard(true)
	tok, err := session.NewJWTToken(raw, guard)
	require.NoError(t, err)

	_, err = client.New(srv.URL, client.WithTokenSource(tok), client.WithGuard(guard)).DraftStats(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.False(t, called)
	assert.False(t, guard.Authenticated())
}

func TestReviewDraft_ApproveRequiresOpportunity(t *testing.T) {
	t.Parallel()

	var body domain.ReviewRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/drafts/d7/review", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(t, w, http.StatusOK, domain.ReviewResponse{Message: "approved"})
	}))
	defer srv.Close()

	_, err := client.New(srv.URL).ReviewDraft(context.Background(), "d7", domain.ReviewRequest{Action: domain.ActionApprove})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, domain.ActionApprove, body.Action)
}

func TestReviewDraft_InvalidRequestMakesNoCall(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	_, err := client.New(srv.URL).ReviewDraft(context.Background(), "", domain.ReviewRequest{Action: domain.ActionApprove})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, called)
}

func TestBulkEndpoints(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/drafts/bulk-review":
			var req domain.BulkReviewRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(t, w, http.StatusOK, domain.BulkReviewResponse{Message: "ok", Processed: len(req.IDs)})
		case "/api/v1/drafts/bulk-delete":
			writeJSON(t, w, http.StatusOK, domain.BulkDeleteResponse{Message: "ok", Deleted: 99})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL)

	res, err := c.BulkReview(context.Background(), domain.BulkReviewRequest{IDs: []string{"a", "b"}, Action: domain.ActionApprove})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)

	_, err = c.BulkReview(context.Background(), domain.BulkReviewRequest{IDs: []string{"a"}, Action: domain.ActionEdit})
	assert.True(t, apperrors.IsValidation(err), "bulk edit is not a thing")

	_, err = c.BulkDelete(context.Background(), domain.BulkDeleteRequest{IDs: []string{"a"}})
	assert.True(t, apperrors.IsValidation(err), "deleted count above request size is rejected")
}
