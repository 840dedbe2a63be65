package service

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
)

func newGrantService(t *testing.T) (*GrantService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewWithDB(sqlx.NewDb(db, "sqlmock"))
	log := zap.NewNop().Sugar()
	routerSvc := NewRouterService(repo, log)
	return NewGrantService(repo, routerSvc, log), mock
}

func unreachableRouterRows(id uuid.UUID) *sqlmock.Rows {
	// Port 1 refuses immediately, every dial counts as one spent retry.
	return sqlmock.NewRows([]string{
		"id", "name", "address", "location", "api_port", "api_username", "api_password",
		"is_active", "status", "ping_ms", "last_seen_at", "created_at", "updated_at",
	}).AddRow(id, "lobby", "127.0.0.1", "", 1, "admin", "", true, "online", nil, nil, time.Now(), time.Now())
}

func TestIssueForAttempt_ExhaustedPushRetriesFlagGrant(t *testing.T) {
	svc, mock := newGrantService(t)

	attemptID := uuid.New()
	packageID := uuid.New()
	routerID := uuid.New()
	grantID := uuid.New()
	now := time.Now()
	ref := "ref-1"

	attempt := &model.PaymentAttempt{
		ID:          attemptID,
		Provider:    model.PaymentProviderVodacom,
		PackageID:   packageID,
		RouterID:    routerID,
		Amount:      2000,
		Currency:    "TZS",
		Contact:     "255712345678",
		State:       model.PaymentStateConfirmed,
		ProviderRef: &ref,
		CreatedAt:   now.Add(-time.Minute),
		ConfirmedAt: &now,
	}

	mock.ExpectQuery(`SELECT \* FROM packages WHERE id = \$1`).
		WithArgs(packageID).
		WillReturnRows(packageRows(packageID, true))
	mock.ExpectQuery(`INSERT INTO access_grants`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(grantID, now))
	mock.ExpectQuery(`SELECT \* FROM payment_attempts WHERE id = \$1`).
		WithArgs(attemptID).
		WillReturnRows(attemptRows(attempt))
	mock.ExpectQuery(`SELECT \* FROM packages WHERE id = \$1`).
		WithArgs(packageID).
		WillReturnRows(packageRows(packageID, true))
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(`SELECT \* FROM routers WHERE id = \$1`).
			WithArgs(routerID).
			WillReturnRows(unreachableRouterRows(routerID))
	}
	mock.ExpectExec(`UPDATE access_grants`).
		WithArgs(grantID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grant, err := svc.IssueForAttempt(context.Background(), attempt)
	require.ErrorIs(t, err, ErrProvisioningFailed)
	require.NotNil(t, grant, "the grant survives a failed push")
	require.Equal(t, grantID, grant.ID)
	require.False(t, grant.AppliedToRouter)
	require.True(t, grant.ProvisioningFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueForAttempt_RouterErrorIsNotRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	svc, mock := newGrantService(t)

	attemptID := uuid.New()
	packageID := uuid.New()
	routerID := uuid.New()
	grantID := uuid.New()
	now := time.Now()

	attempt := &model.PaymentAttempt{
		ID:          attemptID,
		Provider:    model.PaymentProviderVodacom,
		PackageID:   packageID,
		RouterID:    routerID,
		Amount:      2000,
		Currency:    "TZS",
		Contact:     "255712345678",
		State:       model.PaymentStateConfirmed,
		CreatedAt:   now.Add(-time.Minute),
		ConfirmedAt: &now,
	}

	mock.ExpectQuery(`SELECT \* FROM packages WHERE id = \$1`).
		WithArgs(packageID).
		WillReturnRows(packageRows(packageID, true))
	mock.ExpectQuery(`INSERT INTO access_grants`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(grantID, now))
	mock.ExpectQuery(`SELECT \* FROM payment_attempts WHERE id = \$1`).
		WithArgs(attemptID).
		WillReturnRows(attemptRows(attempt))
	mock.ExpectQuery(`SELECT \* FROM packages WHERE id = \$1`).
		WithArgs(packageID).
		WillReturnRows(packageRows(packageID, true))
	mock.ExpectQuery(`SELECT \* FROM routers WHERE id = \$1`).
		WithArgs(routerID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "address", "location", "api_port", "api_username", "api_password",
			"is_active", "status", "ping_ms", "last_seen_at", "created_at", "updated_at",
		}).AddRow(routerID, "lobby", host, "", port, "admin", "", true, "online", nil, nil, now, now))
	mock.ExpectExec(`UPDATE access_grants`).
		WithArgs(grantID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grant, err := svc.IssueForAttempt(context.Background(), attempt)
	require.ErrorIs(t, err, ErrProvisioningFailed)
	require.True(t, grant.ProvisioningFailed)
	require.Equal(t, int32(1), atomic.LoadInt32(&requests), "a rejection from the router API must not be retried")
	require.NoError(t, mock.ExpectationsWereMet())
}
