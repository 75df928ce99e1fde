package cancel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifsp-pirituba/almoco-bot/internal/notify"
	"github.com/ifsp-pirituba/almoco-bot/internal/observability/metrics"
	"github.com/ifsp-pirituba/almoco-bot/internal/orders"
	"github.com/ifsp-pirituba/almoco-bot/internal/students"
)

type captureSender struct {
	sent []notify.EmailMessage
	err  error
}

func (c *captureSender) Send(_ context.Context, msg notify.EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func testStudent() *students.Student {
	return &students.Student{ID: 1, Registration: "PT3029791", Name: "Maria Silva", Active: true}
}

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func TestDecideEmailBeforeCutoff(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	svc := NewService(repo, &captureSender{}, "cae@example.edu.br", nil, nil)

	// Tuesday 09:00, no order row yet.
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, loc)
	method, err := svc.Decide(t.Context(), 1, now, now)
	require.NoError(t, err)
	assert.Equal(t, MethodEmail, method)
}

func TestDecideEmailWhenNoRowEvenAfterCutoff(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	svc := NewService(repo, &captureSender{}, "cae@example.edu.br", nil, nil)

	// 14:00 but the ordering job never wrote a row for this student.
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, loc)
	method, err := svc.Decide(t.Context(), 1, now, now)
	require.NoError(t, err)
	assert.Equal(t, MethodEmail, method)
}

func TestDecideDirectWithRowPastCutoff(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	repo.SeedOrder(1, "2025-06-10", "pediu_ok: confirmado")
	svc := NewService(repo, &captureSender{}, "cae@example.edu.br", nil, nil)

	now := time.Date(2025, 6, 10, 13, 15, 0, 0, loc)
	method, err := svc.Decide(t.Context(), 1, now, now)
	require.NoError(t, err)
	assert.Equal(t, MethodDirect, method)
}

func TestDecideEmailWithRowBeforeCutoff(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	repo.SeedOrder(1, "2025-06-10", "pediu_ok: confirmado")
	svc := NewService(repo, &captureSender{}, "cae@example.edu.br", nil, nil)

	now := time.Date(2025, 6, 10, 13, 14, 59, 0, loc)
	method, err := svc.Decide(t.Context(), 1, now, now)
	require.NoError(t, err)
	assert.Equal(t, MethodEmail, method)
}

func TestDecideAlreadyCancelled(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	repo.SeedOrder(1, "2025-06-10", orders.TagDirectCancel+": Aluno solicitou via Bot.")
	svc := NewService(repo, &captureSender{}, "cae@example.edu.br", nil, nil)

	now := time.Date(2025, 6, 10, 9, 0, 0, 0, loc)
	_, err := svc.Decide(t.Context(), 1, now, now)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestExecuteDirect(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	repo.SeedOrder(1, "2025-06-10", "pediu_ok: confirmado")
	sender := &captureSender{}
	svc := NewService(repo, sender, "cae@example.edu.br", nil, nil)

	now := time.Date(2025, 6, 10, 14, 0, 0, 0, loc)
	err := svc.Execute(t.Context(), testStudent(), now, MethodDirect, now)
	require.NoError(t, err)

	assert.Empty(t, sender.sent)
	motivo := repo.Motivo(1, "2025-06-10")
	assert.True(t, strings.HasPrefix(motivo, orders.TagDirectCancel))
	assert.True(t, orders.IsCancellationMotivo(motivo))
}

func TestExecuteEmailRecordsAfterSend(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	sender := &captureSender{}
	svc := NewService(repo, sender, "cae@example.edu.br", nil, nil)

	now := time.Date(2025, 6, 10, 9, 0, 0, 0, loc)
	err := svc.Execute(t.Context(), testStudent(), now, MethodEmail, now)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "cae@example.edu.br", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "Cancelamento de almoço")

	motivo := repo.Motivo(1, "2025-06-10")
	assert.True(t, strings.HasPrefix(motivo, orders.TagEmailCancel))
	assert.Contains(t, motivo, "10/06/2025 09:00")
}

func TestExecuteEmailFailureLeavesNoRow(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	sendErr := &notify.DeliveryError{Err: errors.New("smtp down")}
	sender := &captureSender{err: sendErr}
	svc := NewService(repo, sender, "cae@example.edu.br", nil, nil)

	now := time.Date(2025, 6, 10, 9, 0, 0, 0, loc)
	err := svc.Execute(t.Context(), testStudent(), now, MethodEmail, now)
	require.Error(t, err)

	var de *notify.DeliveryError
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, 0, repo.OrderCount(1))
}

func TestExecuteUnknownMethod(t *testing.T) {
	repo := orders.NewInMemoryRepository()
	svc := NewService(repo, &captureSender{}, "cae@example.edu.br", nil, nil)
	err := svc.Execute(t.Context(), testStudent(), time.Now(), Method("FAX"), time.Now())
	assert.Error(t, err)
}

func TestExecuteCountsCancellationsByMethod(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	repo.SeedOrder(1, "2025-06-10", "pediu_ok: confirmado")
	reg := prometheus.NewRegistry()
	svc := NewService(repo, &captureSender{}, "cae@example.edu.br", metrics.NewBotMetrics(reg), nil)

	now := time.Date(2025, 6, 10, 14, 0, 0, 0, loc)
	require.NoError(t, svc.Execute(t.Context(), testStudent(), now, MethodDirect, now))

	next := time.Date(2025, 6, 11, 9, 0, 0, 0, loc)
	require.NoError(t, svc.Execute(t.Context(), testStudent(), next, MethodEmail, next))

	expected := strings.NewReader(`
# HELP almoco_bot_cancellations_total Total cancellations recorded, by delivery method
# TYPE almoco_bot_cancellations_total counter
almoco_bot_cancellations_total{method="DIRECT"} 1
almoco_bot_cancellations_total{method="EMAIL"} 1
`)
	require.NoError(t, testutil.GatherAndCompare(reg, expected, "almoco_bot_cancellations_total"))
}

func TestExecuteEmailFailureCountsNothing(t *testing.T) {
	loc := saoPaulo(t)
	repo := orders.NewInMemoryRepository()
	sender := &captureSender{err: &notify.DeliveryError{Err: errors.New("smtp down")}}
	reg := prometheus.NewRegistry()
	svc := NewService(repo, sender, "cae@example.edu.br", metrics.NewBotMetrics(reg), nil)

	now := time.Date(2025, 6, 10, 9, 0, 0, 0, loc)
	require.Error(t, svc.Execute(t.Context(), testStudent(), now, MethodEmail, now))

	// A counter with no observed label values never makes it into a gather.
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.NotEqual(t, "almoco_bot_cancellations_total", mf.GetName())
	}
}
