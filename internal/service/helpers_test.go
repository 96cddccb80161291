package service_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/memory"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/internal/service"
	"docuchat-be/pkg/quota"
	"docuchat-be/pkg/rag"

	"github.com/stretchr/testify/require"
)

func newFactory() unitofwork.RepositoryFactory {
	return memory.NewRepositoryFactory(memory.NewStore())
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []dto.IngestDocumentMessage
	err  error
}

func (p *fakePublisher) PublishIngest(_ context.Context, msg dto.IngestDocumentMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type fakeEngine struct {
	result  *rag.Result
	events  []rag.StreamEvent
	err     error
	lastReq rag.Request
	calls   int
}

func (e *fakeEngine) Query(_ context.Context, req rag.Request) (*rag.Result, error) {
	e.calls++
	e.lastReq = req
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func (e *fakeEngine) Stream(_ context.Context, req rag.Request, emit func(rag.StreamEvent) error) error {
	e.calls++
	e.lastReq = req
	for _, ev := range e.events {
		if err := emit(ev); err != nil {
			return err
		}
	}
	return e.err
}

type fakeLedger struct {
	decision  quota.Decision
	committed []int64
}

func (l *fakeLedger) CheckAndReserve(context.Context, string, int64) (quota.Decision, error) {
	return l.decision, nil
}

func (l *fakeLedger) Commit(_ context.Context, _ string, actual int64) error {
	l.committed = append(l.committed, actual)
	return nil
}

func allowAll() *fakeLedger {
	return &fakeLedger{decision: quota.Decision{Allowed: true}}
}

func statusOf(err error) int {
	var se *service.Error
	if errors.As(err, &se) {
		return se.StatusCode()
	}
	return 0
}

var nopLogger = logger.NewNopLogger()
