package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ifsp-pirituba/almoco-bot/internal/orders"
	"github.com/ifsp-pirituba/almoco-bot/internal/ptbr"
	"github.com/ifsp-pirituba/almoco-bot/internal/schedule"
	"github.com/ifsp-pirituba/almoco-bot/internal/students"
)

const welcomeMessage = "*IFSP Pirituba - Assistente de Almoço*\n\n" +
	"Esse bot *pede seu almoço automaticamente* no site do SUAP todo dia de manhã!\n\n" +
	"Você só precisa:\n" +
	"1. Vincular seu prontuário IFSP\n" +
	"2. Escolher quais dias da semana você almoça\n\n" +
	"Depois disso, o bot cuida do resto. Se não quiser comer algum dia, é só cancelar pelo bot.\n\n" +
	"Envie *continuar* para começar o cadastro."

const unavailableMessage = "Estou com problemas para acessar o sistema agora. Tente novamente em alguns minutos."

// buildHeader opens every informational reply with the student's name, the
// upcoming dish and the most recent order.
func buildHeader(student *students.Student, lastOrder *orders.Order, dish *orders.Dish, loc *time.Location) string {
	if student == nil {
		return "*IFSP Pirituba - Almoço*\n\n"
	}

	var b strings.Builder
	b.WriteString("*IFSP Pirituba - Almoço*\n")
	fmt.Fprintf(&b, "Olá, %s!\n\n", student.FirstName())

	if dish != nil && dish.Name != "" {
		if d, err := schedule.ParseISODate(dish.Date, loc); err == nil {
			fmt.Fprintf(&b, "Cardápio %s %s: *%s*\n",
				schedule.WeekdayShort(d), schedule.FormatDayMonth(d), ptbr.TitleCase(dish.Name))
		}
	}

	if lastOrder != nil {
		if d, err := schedule.ParseISODate(lastOrder.Date, loc); err == nil {
			kind, detail := orders.ClassifyMotivo(lastOrder.Motivo)
			status := "Sem informação"
			switch kind {
			case orders.KindPlaced:
				status = "Pedido feito"
			case orders.KindSkipped:
				status = "Não pedido"
			case orders.KindError:
				status = "Erro no pedido"
			}
			dishInfo := ""
			if detail != "" {
				dishInfo = fmt.Sprintf(" (%s)", ptbr.TitleCase(detail))
			}
			fmt.Fprintf(&b, "Último pedido: %s %s - %s%s\n",
				schedule.WeekdayShort(d), schedule.FormatDayMonth(d), status, dishInfo)
		}
	}

	b.WriteString("───────────────\n")
	return b.String()
}

func buildMenu(student *students.Student, lastOrder *orders.Order, dish *orders.Dish, loc *time.Location) string {
	return buildHeader(student, lastOrder, dish, loc) +
		"*Como posso ajudar?*\n" +
		"Responda com o *número* ou o *nome* do comando:\n\n" +
		"*Ações Rápidas*\n" +
		"1. Cancelar Almoço\n" +
		"2. Meu Status\n" +
		"3. Histórico\n\n" +
		"*Configurações*\n" +
		"4. Definir Dias\n" +
		"5. Bloquear Pratos\n" +
		"6. Desbloquear Pratos\n" +
		"7. Ativar/Desativar"
}

func buildWeekdaysPrompt(reason string) string {
	if reason == "" {
		reason = "Escolha os dias da semana:"
	}
	return reason + "\n\n" +
		"Em quais dias você almoça no IFSP?\n" +
		"O bot vai pedir seu almoço *automaticamente* nesses dias.\n\n" +
		"Escreva os dias separados por vírgula:\n" +
		"Ex: *seg, ter, qua, qui, sex*\n\n" +
		"Dias válidos: seg, ter, qua, qui, sex"
}

func buildStatus(student *students.Student, days []int, blocked []string, header string) string {
	daysTxt := "nenhum"
	if len(days) > 0 {
		daysTxt = schedule.FormatWeekdays(days)
	}
	blockedTxt := "nenhum"
	if len(blocked) > 0 {
		blockedTxt = strings.Join(blocked, ", ")
	}

	active := "Não"
	if student.Active {
		active = "Sim"
	}

	return header +
		"*Status do seu cadastro*\n\n" +
		fmt.Sprintf("• Cadastro ativo: *%s*\n", active) +
		fmt.Sprintf("• Dias cadastrados: *%s*\n", daysTxt) +
		fmt.Sprintf("• Pratos bloqueados: *%s*\n", blockedTxt) +
		"\nEnvie *menu* para voltar."
}

func buildHistory(recent []orders.Order, header string, loc *time.Location) string {
	body := "Histórico de pedidos (7 dias)\n\n"
	if len(recent) == 0 {
		return header + body + "Não encontrei registros recentes."
	}

	lines := make([]string, 0, len(recent))
	for _, o := range recent {
		date := o.Date
		if d, err := schedule.ParseISODate(o.Date, loc); err == nil {
			date = schedule.FormatDayMonth(d)
		}
		kind, detail := orders.ClassifyMotivo(o.Motivo)
		mark := "[X]"
		switch kind {
		case orders.KindPlaced:
			mark = "[OK]"
		case orders.KindSkipped:
			mark = "[!]"
		}
		lines = append(lines, strings.TrimRight(fmt.Sprintf("• %s: %s %s", date, mark, detail), " "))
	}
	return header + body + strings.Join(lines, "\n")
}

func buildBlockedList(blocked []string) string {
	var b strings.Builder
	b.WriteString("*Pratos bloqueados atualmente:*\n")
	for _, name := range blocked {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("\nEnvie os nomes para desbloquear (separados por vírgula).\nOu envie *todos* para limpar tudo.")
	return b.String()
}

// humanDate renders "Terça-Feira 10/06".
func humanDate(d time.Time) string {
	return schedule.WeekdayName(d) + " " + schedule.FormatDayMonth(d)
}

func buildCancelConfirmPrompt(method string, d time.Time) string {
	var question string
	if method == "DIRECT" {
		question = fmt.Sprintf("Deseja CANCELAR DIRETAMENTE o almoço de *%s*?", humanDate(d))
	} else {
		question = fmt.Sprintf("Deseja enviar e-mail de cancelamento para *%s*?", humanDate(d))
	}
	return question + "\n\n▸ *Sim, Cancelar*\n▸ *Não*"
}
