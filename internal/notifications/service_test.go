package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
	paginationpkg "github.com/angelmondragon/artmarket-backend/pkg/pagination"
)

type fakeRepository struct {
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error)
	markReadFn    func(ctx context.Context, userID int64, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, userID int64, now time.Time) (int64, error)
	unread        int64
	unreadErr     error
}

func (f *fakeRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return f.unread, f.unreadErr
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) (bool, error) {
	return true, nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, userID int64, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, userID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID int64, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, userID, now)
	}
	return 0, nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo)
	return svc
}

func TestService_ListNotifications(t *testing.T) {
	first := models.Notification{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Hour)}
	second := models.Notification{ID: uuid.New(), CreatedAt: time.Now()}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			assert.Equal(t, 1, params.Limit)
			assert.Equal(t, int64(42), params.UserID)
			return []models.Notification{first}, &paginationpkg.Cursor{CreatedAt: second.CreatedAt, ID: second.ID}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.List(context.Background(), ListParams{UserID: 42, Limit: 1})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.NotEmpty(t, result.Cursor)

	decoded, err := paginationpkg.ParseCursor(result.Cursor)
	require.NoError(t, err)
	assert.Equal(t, second.ID, decoded.ID)
}

func TestService_ListNotificationsEmptyIsNotNil(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	result, err := svc.List(context.Background(), ListParams{UserID: 1})
	require.NoError(t, err)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Cursor)
}

func TestService_ListNotificationsInvalidInput(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})

	_, err := svc.List(context.Background(), ListParams{UserID: 1, Cursor: "bad"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.List(context.Background(), ListParams{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestService_MarkRead(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, userID int64, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: true, Updated: true}, nil
		},
	}
	svc := newServiceWithRepo(repo)
	require.NoError(t, svc.MarkRead(context.Background(), 1, uuid.New()))
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, userID int64, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	svc := newServiceWithRepo(repo)
	err := svc.MarkRead(context.Background(), 1, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, userID int64, now time.Time) (int64, error) {
			return 3, nil
		},
	}
	svc := newServiceWithRepo(repo)
	count, err := svc.MarkAllRead(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestService_MarkAllReadError(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, userID int64, now time.Time) (int64, error) {
			return 0, errors.New("boom")
		},
	}
	svc := newServiceWithRepo(repo)
	_, err := svc.MarkAllRead(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestService_UnreadCount(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{unread: 4})
	n, err := svc.UnreadCount(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = svc.UnreadCount(context.Background(), 0)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = newServiceWithRepo(&fakeRepository{unreadErr: errors.New("boom")}).UnreadCount(context.Background(), 9)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestService_MarkReadStampsUTCClock(t *testing.T) {
	fixed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))
	var stamped time.Time
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, userID int64, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			stamped = now
			return notificationMarkResult{Found: true}, nil
		},
	}
	svc := &service{repo: repo, now: func() time.Time { return fixed }}
	require.NoError(t, svc.MarkRead(context.Background(), 1, uuid.New()))
	assert.Equal(t, time.UTC, stamped.Location())
	assert.True(t, stamped.Equal(fixed))
}

func TestService_ListDefaultsLimit(t *testing.T) {
	var got int
	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			got = params.Limit
			return nil, nil, nil
		},
	}
	_, err := newServiceWithRepo(repo).List(context.Background(), ListParams{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, paginationpkg.DefaultLimit, got)
}
