package conversation

import (
	"regexp"
	"strings"

	"github.com/ifsp-pirituba/almoco-bot/internal/ptbr"
)

// Command names understood by the bot. The assistant classifier emits the
// same vocabulary.
const (
	cmdCancel      = "cancelar"
	cmdStatus      = "status"
	cmdHistory     = "historico"
	cmdPreferences = "preferencia"
	cmdBlock       = "bloquear"
	cmdUnblock     = "desbloquear"
	cmdActivate    = "ativar"
	cmdDeactivate  = "desativar"
	cmdHelp        = "ajuda"
	cmdContinue    = "continuar"
)

// menuShortcuts maps main-menu digits onto commands.
var menuShortcuts = map[string]string{
	"1": cmdCancel,
	"2": cmdStatus,
	"3": cmdHistory,
	"4": cmdPreferences,
	"5": cmdBlock,
	"6": cmdUnblock,
	"7": cmdActivate,
}

// globalShortcuts always reset the dialogue to the main menu, whatever
// step the user is in.
var globalShortcuts = map[string]struct{}{
	"ajuda": {}, "menu": {}, "help": {}, "comandos": {},
	"oi": {}, "ola": {}, "bom dia": {}, "boa tarde": {},
}

func isGlobalShortcut(norm string) bool {
	_, ok := globalShortcuts[norm]
	return ok
}

func isYes(norm string) bool {
	switch norm {
	case "sim", "s", "ok":
		return true
	}
	return false
}

func isNo(norm string) bool {
	switch norm {
	case "nao", "n":
		return true
	}
	return false
}

func isClearAll(norm string) bool {
	switch norm {
	case "todos", "tudo", "limpar":
		return true
	}
	return false
}

var registrationPattern = regexp.MustCompile(`^\d{5,12}$`)

// parseRegistration extracts the numeric registration from free text,
// tolerating a PT prefix, spaces and punctuation. Empty when invalid.
func parseRegistration(text string) string {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), " ", ""))
	s = strings.TrimPrefix(s, "PT")
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if !registrationPattern.MatchString(digits) {
		return ""
	}
	return digits
}

// splitDishList breaks "peixe, fígado; couve" into trimmed dish names.
func splitDishList(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// wantsCancellation reports whether the message starts a cancellation.
func wantsCancellation(norm string) bool {
	return strings.HasPrefix(norm, cmdCancel) || strings.Contains(norm, "nao vou")
}

// normalize folds a message for matching.
func normalize(text string) string {
	return ptbr.Normalize(text)
}
