// Package orders manages the order-history table shared with the automatic
// ordering job. The job is the primary writer of placed/skipped/error rows;
// this side only records cancellations and reads history.
package orders

import (
	"strings"

	"github.com/ifsp-pirituba/almoco-bot/internal/ptbr"
)

// Order is one row per (student, calendar date). Motivo is a free-text
// reason whose leading "TAG:" encodes the outcome.
type Order struct {
	StudentID int64
	Date      string // YYYY-MM-DD
	Motivo    string
}

// Dish is the upcoming menu entry published by the ordering job.
type Dish struct {
	Date string // YYYY-MM-DD
	Name string
}

// Motivo tags written by this service. The ordering job writes PEDIU_OK,
// NAO_PEDIU and ERRO_PEDIDO rows.
const (
	TagDirectCancel = "CANCELADO_DIRETAMENTE"
	TagEmailCancel  = "CANCELAMENTO_EMAIL"
)

// MotivoKind groups motivo tags into outcome classes.
type MotivoKind int

const (
	KindOther MotivoKind = iota
	KindPlaced
	KindSkipped
	KindError
	KindCancelled
)

// ClassifyMotivo splits "TAG: detail" and maps the tag to a kind.
func ClassifyMotivo(raw string) (MotivoKind, string) {
	tag, detail := raw, ""
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		tag, detail = raw[:i], strings.TrimSpace(raw[i+1:])
	}
	tagNorm := ptbr.Normalize(tag)

	switch {
	case IsCancellationMotivo(tag):
		return KindCancelled, detail
	case strings.HasPrefix(tagNorm, "pediu_ok"):
		return KindPlaced, detail
	case strings.HasPrefix(tagNorm, "nao_pediu") || strings.HasPrefix(tagNorm, "nao pediu"):
		return KindSkipped, detail
	case strings.HasPrefix(tagNorm, "erro_pedido"):
		return KindError, detail
	default:
		return KindOther, detail
	}
}

// IsCancellationMotivo reports whether a motivo carries a cancellation
// marker. Matching is a case-insensitive substring check because older rows
// mix tag spellings.
func IsCancellationMotivo(motivo string) bool {
	m := ptbr.Normalize(motivo)
	return strings.Contains(m, "cancelamento") || strings.Contains(m, "cancelado")
}

// isNoiseMotivo filters rows that only exist as bookkeeping leftovers and
// should never surface in status or history replies. The "Final" marker is
// matched case-sensitively: it is a capitalized bookkeeping tag, and a dish
// description with lowercase "final" is a legitimate motivo.
func isNoiseMotivo(motivo string) bool {
	if strings.Contains(motivo, "Final") {
		return true
	}
	return strings.Contains(ptbr.Normalize(motivo), "anteriormente")
}
