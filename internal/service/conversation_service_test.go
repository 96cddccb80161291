package service_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/service"
	"docuchat-be/pkg/rag"
	"docuchat-be/pkg/sharetoken"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversationService(engine *fakeEngine) service.IConversationService {
	factory := newFactory()
	query := service.NewQueryService(factory, engine, allowAll(), 1000, nopLogger)
	return service.NewConversationService(factory, query, sharetoken.NewSigner("test-secret"), nopLogger)
}

func strPtr(s string) *string { return &s }

func TestConversationCreateListFilter(t *testing.T) {
	ctx := context.Background()
	svc := newConversationService(&fakeEngine{})
	alice, bob := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, alice, &dto.CreateConversationRequest{Title: strPtr("Tax Questions")})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	latest, err := svc.Create(ctx, alice, &dto.CreateConversationRequest{Title: strPtr("Holiday plans")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, &dto.CreateConversationRequest{})
	require.NoError(t, err)

	all, err := svc.List(ctx, alice, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, latest.Id, all[0].Id)

	filtered, err := svc.List(ctx, alice, "tax")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Tax Questions", *filtered[0].Title)
}

func TestConversationAccessIsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc := newConversationService(&fakeEngine{})
	owner := uuid.New()
	conv, err := svc.Create(ctx, owner, &dto.CreateConversationRequest{})
	require.NoError(t, err)

	stranger := uuid.New()
	_, err = svc.Get(ctx, stranger, conv.Id)
	assert.ErrorIs(t, err, service.ErrConversationNotFound)
	_, err = svc.ListMessages(ctx, stranger, conv.Id)
	assert.ErrorIs(t, err, service.ErrConversationNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, stranger, conv.Id), service.ErrConversationNotFound)
	_, err = svc.Share(ctx, stranger, conv.Id)
	assert.ErrorIs(t, err, service.ErrConversationNotFound)
}

func TestConversationSendMessageAndDelete(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{result: &rag.Result{Answer: "Paris", Sources: sampleSources}}
	svc := newConversationService(engine)
	owner := uuid.New()
	conv, err := svc.Create(ctx, owner, &dto.CreateConversationRequest{})
	require.NoError(t, err)

	res, err := svc.SendMessage(ctx, owner, conv.Id, &dto.SendMessageRequest{Question: "Capital of France?"})
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Answer)
	assert.Equal(t, conv.Id, res.ConversationId)

	detail, err := svc.Get(ctx, owner, conv.Id)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "user", detail.Messages[0].Role)
	assert.Empty(t, detail.Messages[0].Sources)
	assert.Equal(t, sampleSources, detail.Messages[1].Sources)

	require.NoError(t, svc.Delete(ctx, owner, conv.Id))
	_, err = svc.Get(ctx, owner, conv.Id)
	assert.ErrorIs(t, err, service.ErrConversationNotFound)
}

func TestRenderTranscript(t *testing.T) {
	id := uuid.MustParse("6f1c1f47-8a3e-4c54-9f1e-3f4f0e6f2a10")
	msgs := []*entity.Message{
		{Role: entity.MessageRoleUser, Content: "Where is it?"},
		{Role: entity.MessageRoleAssistant, Content: "On page three.", Sources: []entity.MessageSource{
			{Filename: "guide.pdf", Page: 3},
			{Filename: "notes.txt"},
		}},
	}

	tests := []struct {
		name  string
		title *string
		want  string
	}{
		{
			name:  "titled",
			title: strPtr("Manual"),
			want:  "# Manual\n\n## User\nWhere is it?\n\n## Assistant\nOn page three.\n\nSources:\n- guide.pdf (p. 3)\n- notes.txt\n",
		},
		{
			name: "untitled",
			want: "# Conversation " + id.String() + "\n\n## User\nWhere is it?\n\n## Assistant\nOn page three.\n\nSources:\n- guide.pdf (p. 3)\n- notes.txt\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.RenderTranscript(&entity.Conversation{Id: id, Title: tt.title}, msgs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConversationExport(t *testing.T) {
	ctx := context.Background()
	svc := newConversationService(&fakeEngine{result: &rag.Result{Answer: "Fine."}})
	owner := uuid.New()
	conv, err := svc.Create(ctx, owner, &dto.CreateConversationRequest{Title: strPtr("Check-in")})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, owner, conv.Id, &dto.SendMessageRequest{Question: "How are you?"})
	require.NoError(t, err)

	md, err := svc.Export(ctx, owner, conv.Id, "")
	require.NoError(t, err)
	assert.Equal(t, "conversation-"+conv.Id.String()+".md", md.Filename)
	assert.True(t, strings.HasPrefix(md.ContentType, "text/markdown"))
	assert.Equal(t, "# Check-in\n\n## User\nHow are you?\n\n## Assistant\nFine.\n", md.Content)

	txt, err := svc.Export(ctx, owner, conv.Id, "txt")
	require.NoError(t, err)
	assert.Equal(t, "conversation-"+conv.Id.String()+".txt", txt.Filename)
	assert.Equal(t, "Check-in\n\nUser\nHow are you?\n\nAssistant\nFine.\n", txt.Content)

	_, err = svc.Export(ctx, owner, conv.Id, "pdf")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestConversationShare(t *testing.T) {
	ctx := context.Background()
	svc := newConversationService(&fakeEngine{})
	owner := uuid.New()
	conv, err := svc.Create(ctx, owner, &dto.CreateConversationRequest{Title: strPtr("Shared")})
	require.NoError(t, err)

	share, err := svc.Share(ctx, owner, conv.Id)
	require.NoError(t, err)
	assert.Equal(t, service.SharedConversationPath+share.ShareToken, share.SharePath)

	shared, err := svc.GetShared(ctx, share.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, conv.Id, shared.Id)
	assert.Equal(t, "Shared", *shared.Title)

	_, err = svc.GetShared(ctx, "garbage")
	assert.ErrorIs(t, err, service.ErrInvalidShareToken)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	require.NoError(t, svc.Delete(ctx, owner, conv.Id))
	_, err = svc.GetShared(ctx, share.ShareToken)
	assert.ErrorIs(t, err, service.ErrSharedNotFound)
}
