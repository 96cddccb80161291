package service_test

import (
	"context"
	"testing"
	"time"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/service"
	"docuchat-be/pkg/quota"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminResetQuota(t *testing.T) {
	ctx := context.Background()
	factory := newFactory()
	ledger := quota.NewLedger(service.NewUsageStore(factory), quota.Limits{Daily: 1000, Monthly: 10000}, nopLogger)
	svc := service.NewAdminService(factory, ledger, nopLogger)

	user := &entity.User{Email: "a@example.com", IsActive: true}
	require.NoError(t, factory.NewUnitOfWork(ctx).UserRepository().Create(ctx, user))
	require.NoError(t, ledger.Commit(ctx, user.Id.String(), 250))

	res, err := svc.ResetQuota(ctx, user.Id, &dto.ResetQuotaRequest{Type: "daily"})
	require.NoError(t, err)
	assert.Zero(t, res.TokensUsedToday)
	assert.EqualValues(t, 250, res.TokensUsedThisMonth)

	_, err = svc.ResetQuota(ctx, uuid.New(), &dto.ResetQuotaRequest{Type: "all"})
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestAdminListUsersPaginates(t *testing.T) {
	ctx := context.Background()
	factory := newFactory()
	svc := service.NewAdminService(factory, nil, nopLogger)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, factory.NewUnitOfWork(ctx).UserRepository().Create(ctx, &entity.User{Email: email, IsActive: true}))
		time.Sleep(2 * time.Millisecond)
	}

	page, err := svc.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c@example.com", page[0].Email)

	page, err = svc.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a@example.com", page[0].Email)
}

func TestAdminLogsWithoutFile(t *testing.T) {
	svc := service.NewAdminService(newFactory(), nil, nopLogger)

	logs, err := svc.GetSystemLogs(context.Background(), 0, 0, "")
	require.NoError(t, err)
	assert.Empty(t, logs.Logs)
	assert.Equal(t, 1, logs.Page)
	assert.Equal(t, 20, logs.Limit)

	_, err = svc.GetLogDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrLogNotFound)
}

func TestStatsCountsOwnedRows(t *testing.T) {
	ctx := context.Background()
	factory := newFactory()
	owner, other := uuid.New(), uuid.New()

	uow := factory.NewUnitOfWork(ctx)
	require.NoError(t, uow.DocumentRepository().Create(ctx, &entity.Document{UserId: owner}))
	require.NoError(t, uow.DocumentRepository().Create(ctx, &entity.Document{UserId: other}))
	mine := createConversation(t, factory, owner, "mine")
	theirs := createConversation(t, factory, other, "theirs")
	require.NoError(t, uow.MessageRepository().Create(ctx, &entity.Message{ConversationId: mine.Id, Role: entity.MessageRoleUser, Content: "q"}))
	require.NoError(t, uow.MessageRepository().Create(ctx, &entity.Message{ConversationId: mine.Id, Role: entity.MessageRoleAssistant, Content: "a"}))
	require.NoError(t, uow.MessageRepository().Create(ctx, &entity.Message{ConversationId: theirs.Id, Role: entity.MessageRoleUser, Content: "q"}))

	ledger := quota.NewLedger(service.NewUsageStore(factory), quota.Limits{Daily: 1000, Monthly: 10000}, nopLogger)
	svc := service.NewStatsService(factory, ledger)

	stats, err := svc.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, &dto.StatsResponse{Documents: 1, Conversations: 1, Messages: 2}, stats)

	usage, err := svc.Usage(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, usage.DailyLimit)
}
