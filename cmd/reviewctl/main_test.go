package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/draft-review/internal/api"
	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/database"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/service"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
)

const testSecret = "reviewctl-secret"

func startService(t *testing.T) (*httptest.Server, *database.MemoryRepository) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	repo := database.NewMemoryRepository()
	repo.Seed(database.DemoDrafts(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))...)

	svc := service.NewReviewService(repo, nil)
	srv := httptest.NewServer(api.NewRouter(api.NewDraftHandler(svc, nil), api.RouterConfig{
		JWTSecret: testSecret,
		Debug:     true,
	}))
	t.Cleanup(srv.Close)
	return srv, repo
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReviewctl_ReviewFlow(t *testing.T) {
	srv, repo := startService(t)

	token, err := session.MintToken(testSecret, "ana", time.Hour)
	require.NoError(t, err)
	common := []string{"--api", srv.URL, "--token", token}

	out, err := execute(t, append([]string{"list", "--status", "pending"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "demo-1")
	assert.Contains(t, out, "5 matching")

	out, err = execute(t, append([]string{"approve", "demo-1"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Draft approved")
	assert.Contains(t, out, "opportunity: ")

	d, err := repo.GetDraft(context.Background(), "demo-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, d.Status)
	assert.Equal(t, "ana", d.ReviewedBy)

	out, err = execute(t, append([]string{"edit", "demo-2", "--set", "title=Renamed Scholarship", "--set", "eligibility=students, veterans"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed Scholarship")

	d, err = repo.GetDraft(context.Background(), "demo-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"students", "veterans"}, d.Eligibility)

	out, err = execute(t, append([]string{"bulk-review", "--action", "reject", "demo-1", "demo-3"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 drafts processed")

	_, err = execute(t, append([]string{"reject", "demo-1"}, common...)...)
	require.Error(t, err)
}

func TestReviewctl_RejectsBadToken(t *testing.T) {
	srv, _ := startService(t)

	token, err := session.MintToken("wrong", "ana", time.Hour)
	require.NoError(t, err)

	_, err = execute(t, "stats", "--api", srv.URL, "--token", token)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestReviewctl_Token(t *testing.T) {
	out, err := execute(t, "token", "--secret", testSecret, "--subject", "bo", "--ttl", "1m")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."))

	_, err = execute(t, "token", "--secret", "")
	require.Error(t, err)
}

func TestTokenSource(t *testing.T) {
	guard := session.NewGuard(false)

	ts, err := tokenSource("opaque", guard)
	require.NoError(t, err)
	assert.Equal(t, session.StaticToken("opaque"), ts)

	raw, err := session.MintToken(testSecret, "ana", time.Hour)
	require.NoError(t, err)
	ts, err = tokenSource(raw, guard)
	require.NoError(t, err)
	assert.IsType(t, &session.JWTToken{}, ts)
	assert.True(t, guard.Authenticated())

	_, err = tokenSource("a.b.c", guard)
	require.Error(t, err)
}

func TestDescribeError(t *testing.T) {
	t.Parallel()

	unauthorized := &apperrors.ServiceError{StatusCode: http.StatusUnauthorized, Message: "session expired"}
	assert.Contains(t, describeError(unauthorized), "reviewctl token")

	missing := fmt.Errorf("show: %w", &apperrors.ServiceError{StatusCode: http.StatusNotFound, Message: "draft not found"})
	assert.Contains(t, describeError(missing), "reviewctl list")

	assert.Equal(t, "boom", describeError(errors.New("boom")))
}

func TestReviewctl_ListRejectsUnknownCategory(t *testing.T) {
	srv, _ := startService(t)

	_, err := execute(t, "list", "--api", srv.URL, "--category", "raffle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scholarship")

	token, err := session.MintToken(testSecret, "ana", time.Hour)
	require.NoError(t, err)

	out, err := execute(t, "list", "--api", srv.URL, "--token", token, "--category", "Grant")
	require.NoError(t, err)
	assert.Contains(t, out, "demo-1")
	assert.NotContains(t, out, "demo-2")
}
