// Package assistant provides an optional LLM fallback for messages the
// rule-based command parser does not recognize. The model either maps the
// message onto one of the bot commands or produces a short free-form
// answer; usage is capped per user and globally per day.
package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/ifsp-pirituba/almoco-bot/internal/ptbr"
)

// commandPrefix marks a model response that names a bot command instead of
// answering in prose.
const commandPrefix = "COMANDO:"

// ErrQuotaExceeded is returned when the daily usage cap was reached.
var ErrQuotaExceeded = errors.New("assistant: daily quota exceeded")

// Kind discriminates classification outcomes.
type Kind int

const (
	// KindNone means the assistant could not help with this message.
	KindNone Kind = iota
	// KindCommand maps the message onto a known bot command.
	KindCommand
	// KindAnswer carries a free-form reply to forward verbatim.
	KindAnswer
)

// Result is the outcome of classifying one user message.
type Result struct {
	Kind    Kind
	Command string
	Answer  string
}

// UserContext is what the model is told about the student it is talking to.
type UserContext struct {
	ChatID        string
	StudentName   string
	Registration  string
	PreferredDays string
	BlockedDishes string
	LastOrder     string
	Active        bool
}

// IntentClassifier turns an unrecognized message into a Result.
type IntentClassifier interface {
	Classify(ctx context.Context, text string, uc UserContext) (Result, error)
}

// validCommands are the only command names the model may emit. Anything
// else is treated as a failed classification.
var validCommands = map[string]struct{}{
	"cancelar":    {},
	"status":      {},
	"historico":   {},
	"preferencia": {},
	"bloquear":    {},
	"desbloquear": {},
	"ativar":      {},
	"desativar":   {},
	"ajuda":       {},
}

// cacheKey folds a message into the form used for cache lookups.
func cacheKey(text string) string {
	return ptbr.Normalize(text)
}

// parseResponse interprets the raw model output. A line starting with
// "COMANDO:" names a command; any other non-empty text is an answer.
func parseResponse(raw string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Kind: KindNone}
	}

	upper := strings.ToUpper(text)
	if strings.HasPrefix(upper, commandPrefix) {
		name := ptbr.Normalize(text[len(commandPrefix):])
		name = strings.TrimSpace(name)
		if _, ok := validCommands[name]; ok {
			return Result{Kind: KindCommand, Command: name}
		}
		return Result{Kind: KindNone}
	}

	return Result{Kind: KindAnswer, Answer: text}
}
