package notify

import (
	"fmt"
	"time"

	"github.com/ifsp-pirituba/almoco-bot/internal/schedule"
	"github.com/ifsp-pirituba/almoco-bot/internal/students"
)

// BuildCancellationEmail composes the notice sent to cafeteria staff when a
// student cancels before the ordering job has run. The registration appears
// twice: formatted for reading and digit-only in a copyable block, because
// staff paste it into the ordering site.
func BuildCancellationEmail(student *students.Student, date time.Time, to string) EmailMessage {
	dayMonth := schedule.FormatDayMonth(date)
	weekday := schedule.WeekdayName(date)
	name := student.Name
	if name == "" {
		name = "Aluno"
	}
	formatted := student.FormattedRegistration()
	digits := students.DigitsOnly(student.Registration)

	subject := fmt.Sprintf("Cancelamento de almoço - %s - %s", formatted, dayMonth)

	body := fmt.Sprintf(
		"Solicitação de cancelamento:\nAluno: %s\nProntuário: %s\nData: %s",
		name, digits, dayMonth,
	)

	html := fmt.Sprintf(`
      <div style="font-family: Arial, sans-serif; color: #333;">
        <h2 style="color: #d9534f;">Solicitação de Cancelamento de Almoço</h2>
        <p><strong>Aluno:</strong> %s</p>
        <p><strong>Prontuário:</strong> %s</p>
        <div style="background-color: #f8f9fa; border: 1px solid #ddd; padding: 15px; margin: 20px 0; border-radius: 5px;">
          <p style="margin: 0 0 10px;">Para copiar o prontuário:</p>
          <span style="font-size: 24px; font-weight: bold; letter-spacing: 2px; background: #fff; padding: 5px 10px; border: 1px dashed #999;">
            %s
          </span>
        </div>
        <p><strong>Data a cancelar:</strong> %s, %s</p>
        <hr style="border: 0; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="font-size: 12px; color: #777;">Mensagem automática.</p>
      </div>
    `, name, formatted, digits, weekday, dayMonth)

	return EmailMessage{
		To:      to,
		Subject: subject,
		Body:    body,
		HTML:    html,
	}
}
