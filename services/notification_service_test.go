package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/techagentng/wastewatch/db/memory"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/logger"
	"github.com/techagentng/wastewatch/metrics"
	"github.com/techagentng/wastewatch/mocks"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/realtime"
)

func TestDispatchKeepsRecordWhenPublishFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	store := memory.New()
	m := metrics.NewNoop()
	svc := NewNotificationService(store.Notifications(), publisher, testConfig(), logger.Discard(), m)

	citizen := uuid.New()
	room := models.Room(models.RoleCitizen, &citizen)
	publisher.EXPECT().
		Publish(gomock.Any(), room, gomock.AssignableToTypeOf(realtime.Event{})).
		Return(errors.New("broker down"))

	n, err := svc.Dispatch(context.Background(), &citizen, models.RoleCitizen, "resolved", "/citizen/reports/1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures))

	stored, err := svc.List(context.Background(), models.RoleCitizen, citizen)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, n.ID, stored[0].ID)
	assert.False(t, stored[0].Read)
}

func TestDispatchPublishesToAudienceRoom(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	svc := NewNotificationService(memory.New().Notifications(), publisher, testConfig(), logger.Discard(), metrics.NewNoop())

	publisher.EXPECT().
		Publish(gomock.Any(), "admin", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, ev realtime.Event) error {
			assert.Equal(t, "New authority request: Ikeja LGA", ev.Message)
			assert.Equal(t, models.RoleAdmin, ev.Role)
			return nil
		})

	_, err := svc.Dispatch(context.Background(), nil, models.RoleAdmin, "New authority request: Ikeja LGA", "/admin/authorities")
	require.NoError(t, err)
}

func TestDispatchRejectsUnknownRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewNotificationService(memory.New().Notifications(), mocks.NewMockPublisher(ctrl), testConfig(), logger.Discard(), metrics.NewNoop())

	_, err := svc.Dispatch(context.Background(), nil, models.Role("janitor"), "hello", "")
	assert.True(t, errs.HasKind(err, errs.KindValidation))
}

func TestNotificationInbox(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(memory.New().Notifications(), &recordingPublisher{}, testConfig(), logger.Discard(), metrics.NewNoop())

	me, other := uuid.New(), uuid.New()
	first, err := svc.Dispatch(ctx, &me, models.RoleAuthority, "first", "")
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, &me, models.RoleAuthority, "second", "")
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, nil, models.RoleAuthority, "to every authority", "")
	require.NoError(t, err)
	foreign, err := svc.Dispatch(ctx, &other, models.RoleAuthority, "not mine", "")
	require.NoError(t, err)

	inbox, err := svc.List(ctx, models.RoleAuthority, me)
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	assert.Equal(t, "to every authority", inbox[0].Message, "newest first")

	require.NoError(t, svc.MarkRead(ctx, models.RoleAuthority, me, first.ID))
	assert.True(t, errs.HasKind(svc.MarkRead(ctx, models.RoleAuthority, me, foreign.ID), errs.KindNotFound))

	updated, err := svc.MarkAllRead(ctx, models.RoleAuthority, me)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	assert.True(t, errs.HasKind(svc.DeleteOne(ctx, models.RoleAuthority, me, foreign.ID), errs.KindNotFound))
	require.NoError(t, svc.DeleteOne(ctx, models.RoleAuthority, me, first.ID))

	deleted, err := svc.DeleteAll(ctx, models.RoleAuthority, me)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	theirs, err := svc.List(ctx, models.RoleAuthority, other)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, foreign.ID, theirs[0].ID)
}
