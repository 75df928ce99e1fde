// Package cancel decides how a lunch cancellation is routed and executes
// it. Before the daily cutoff the order has not been placed yet, so an
// e-mail notice to staff suffices; after it, the only recourse is flagging
// the order row directly so staff and the ordering job disregard it.
package cancel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ifsp-pirituba/almoco-bot/internal/notify"
	"github.com/ifsp-pirituba/almoco-bot/internal/observability/metrics"
	"github.com/ifsp-pirituba/almoco-bot/internal/orders"
	"github.com/ifsp-pirituba/almoco-bot/internal/schedule"
	"github.com/ifsp-pirituba/almoco-bot/internal/students"
	"github.com/ifsp-pirituba/almoco-bot/pkg/logging"
)

// Method is how a cancellation reaches the cafeteria.
type Method string

const (
	// MethodDirect flags the order row in the shared table.
	MethodDirect Method = "DIRECT"
	// MethodEmail sends an asynchronous notice to the staff mailbox.
	MethodEmail Method = "EMAIL"
)

// ErrAlreadyCancelled guards against re-cancelling a date that already
// carries a cancellation motivo.
var ErrAlreadyCancelled = errors.New("lunch already cancelled for this date")

// Service routes and executes cancellations.
type Service struct {
	orders     orders.Repository
	sender     notify.EmailSender
	staffEmail string
	metrics    *metrics.BotMetrics
	logger     *logging.Logger
}

// NewService creates a cancellation service. m may be nil.
func NewService(ordersRepo orders.Repository, sender notify.EmailSender, staffEmail string, m *metrics.BotMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		orders:     ordersRepo,
		sender:     sender,
		staffEmail: staffEmail,
		metrics:    m,
		logger:     logger,
	}
}

// Decide picks the cancellation method for target. DIRECT only applies when
// an order row already exists and now is at/after target's cutoff; in every
// other case the order is not believed placed yet and an e-mail suffices.
// Returns ErrAlreadyCancelled when the date already carries a cancellation.
func (s *Service) Decide(ctx context.Context, studentID int64, target, now time.Time) (Method, error) {
	iso := schedule.ISODate(target)

	cancelled, err := s.orders.IsCancelled(ctx, studentID, iso)
	if err != nil {
		return "", fmt.Errorf("cancel: check existing cancellation: %w", err)
	}
	if cancelled {
		return "", ErrAlreadyCancelled
	}

	exists, err := s.orders.HasOrder(ctx, studentID, iso)
	if err != nil {
		return "", fmt.Errorf("cancel: check existing order: %w", err)
	}

	if exists && !now.Before(schedule.CutoffTime(target)) {
		return MethodDirect, nil
	}
	return MethodEmail, nil
}

// Execute performs the cancellation. For EMAIL the order row is only
// written after the send succeeds, so a delivery failure leaves no trace
// and the confirmation can be retried.
func (s *Service) Execute(ctx context.Context, student *students.Student, target time.Time, method Method, now time.Time) error {
	iso := schedule.ISODate(target)

	switch method {
	case MethodDirect:
		motivo := orders.TagDirectCancel + ": Aluno solicitou via Bot."
		if err := s.orders.RecordCancellation(ctx, student.ID, iso, motivo); err != nil {
			return fmt.Errorf("cancel: record direct cancellation: %w", err)
		}
		s.logger.Info("direct cancellation recorded", "student_id", student.ID, "date", iso)
		s.metrics.ObserveCancellation(string(MethodDirect))
		return nil

	case MethodEmail:
		msg := notify.BuildCancellationEmail(student, target, s.staffEmail)
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.Error("cancellation email failed", "student_id", student.ID, "date", iso, "error", err)
			return err
		}
		motivo := fmt.Sprintf("%s: Enviado para CAE em %s", orders.TagEmailCancel, now.Format("02/01/2006 15:04"))
		if err := s.orders.RecordCancellation(ctx, student.ID, iso, motivo); err != nil {
			return fmt.Errorf("cancel: record email cancellation: %w", err)
		}
		s.logger.Info("cancellation email sent", "student_id", student.ID, "date", iso, "to", s.staffEmail)
		s.metrics.ObserveCancellation(string(MethodEmail))
		return nil

	default:
		return fmt.Errorf("cancel: unknown method %q", method)
	}
}
