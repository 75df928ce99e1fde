package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ifsp-pirituba/almoco-bot/internal/assistant"
	"github.com/ifsp-pirituba/almoco-bot/internal/cancel"
	"github.com/ifsp-pirituba/almoco-bot/internal/notify"
	"github.com/ifsp-pirituba/almoco-bot/internal/observability/metrics"
	"github.com/ifsp-pirituba/almoco-bot/internal/orders"
	"github.com/ifsp-pirituba/almoco-bot/internal/schedule"
	"github.com/ifsp-pirituba/almoco-bot/internal/students"
	"github.com/ifsp-pirituba/almoco-bot/pkg/logging"
)

// Handler drives one dialogue turn per inbound message.
type Handler struct {
	students   students.Repository
	orders     orders.Repository
	cancel     *cancel.Service
	states     StateStore
	classifier assistant.IntentClassifier
	metrics    *metrics.BotMetrics
	logger     *logging.Logger
	loc        *time.Location
	now        func() time.Time
}

// Option configures optional Handler collaborators.
type Option func(*Handler)

// WithClassifier enables the LLM fallback for unrecognized messages.
func WithClassifier(c assistant.IntentClassifier) Option {
	return func(h *Handler) { h.classifier = c }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithMetrics counts classifier fallback outcomes. m may be nil.
func WithMetrics(m *metrics.BotMetrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler wires a conversation handler. loc is the campus timezone; all
// cutoff arithmetic happens in it.
func NewHandler(studentsRepo students.Repository, ordersRepo orders.Repository, cancelSvc *cancel.Service, states StateStore, loc *time.Location, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	h := &Handler{
		students: studentsRepo,
		orders:   ordersRepo,
		cancel:   cancelSvc,
		states:   states,
		logger:   logger,
		loc:      loc,
		now:      func() time.Time { return time.Now().In(loc) },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProcessText handles one inbound message and returns the reply text.
// An empty reply means the message should be ignored.
func (h *Handler) ProcessText(ctx context.Context, chatID, text string) (string, error) {
	return h.process(ctx, chatID, text, false)
}

func (h *Handler) process(ctx context.Context, chatID, text string, usedClassifier bool) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	key := students.PhoneKeyFromChatID(chatID)
	if key == "" {
		return "", fmt.Errorf("conversation: chat id %q has no phone digits", chatID)
	}

	st, err := h.states.Get(ctx, key)
	if err != nil {
		h.logger.Error("state load failed, starting fresh", "key", key, "error", err)
		st = NewState()
	}

	student, err := h.students.FindByChatID(ctx, key)
	if err != nil && !errors.Is(err, students.ErrStudentNotFound) {
		h.logger.Error("student lookup failed", "key", key, "error", err)
		return unavailableMessage, nil
	}

	var lastOrder *orders.Order
	if student != nil {
		if lastOrder, err = h.orders.LastOrder(ctx, student.ID); err != nil {
			h.logger.Warn("last order lookup failed", "student_id", student.ID, "error", err)
			lastOrder = nil
		}
	}
	dish, err := h.orders.UpcomingDish(ctx)
	if err != nil {
		h.logger.Warn("upcoming dish lookup failed", "error", err)
		dish = nil
	}

	// A recognized phone skips whatever registration step was pending.
	if student != nil && st.StudentID == 0 {
		st.StudentID = student.ID
		st.toMenu()
		h.save(ctx, key, st)
	}

	norm := normalize(text)

	if isGlobalShortcut(norm) {
		st.toMenu()
		h.save(ctx, key, st)
		return buildMenu(student, lastOrder, dish, h.loc), nil
	}

	if cmd, ok := menuShortcuts[norm]; ok && st.Step == StepMainMenu {
		return h.process(ctx, chatID, cmd, usedClassifier)
	}

	if norm == cmdStatus || norm == "meu status" || norm == "cadastro" {
		return h.handleStatus(ctx, student, lastOrder, dish)
	}
	if strings.Contains(norm, cmdHistory) {
		return h.handleHistory(ctx, student, lastOrder, dish)
	}

	if student == nil {
		return h.handleRegistration(ctx, key, st, text, norm, dish)
	}

	switch st.Step {
	case StepSetWeekdays:
		return h.handleSetWeekdays(ctx, key, st, student, text, lastOrder, dish)
	case StepSetBlockedDishes:
		return h.handleSetBlockedDishes(ctx, key, st, student, text)
	case StepRemoveBlockedDishes:
		return h.handleRemoveBlockedDishes(ctx, key, st, student, text, norm)
	case StepConfirmCancellation:
		return h.handleConfirmCancellation(ctx, key, st, student, norm)
	}

	if wantsCancellation(norm) {
		return h.handleCancellationStart(ctx, key, st, student, norm)
	}

	if strings.HasPrefix(norm, cmdPreferences) || norm == "dias" {
		st.Step = StepSetWeekdays
		st.clearTransient()
		h.save(ctx, key, st)
		return buildWeekdaysPrompt("Selecione os dias da semana que você almoça:"), nil
	}

	if strings.HasPrefix(norm, cmdBlock) || strings.Contains(norm, "nao como") {
		st.Step = StepSetBlockedDishes
		st.clearTransient()
		h.save(ctx, key, st)
		return "Envie os pratos para bloquear (separados por vírgula). Ex: peixe, fígado", nil
	}

	if strings.HasPrefix(norm, cmdUnblock) || norm == "limpar bloqueios" {
		return h.handleUnblockStart(ctx, key, st, student)
	}

	// "desativar" contains "ativar", so it must match first.
	if strings.Contains(norm, cmdDeactivate) {
		return h.handleSetActive(ctx, key, st, student, false)
	}
	if strings.Contains(norm, cmdActivate) {
		return h.handleSetActive(ctx, key, st, student, true)
	}

	if h.classifier != nil && !usedClassifier {
		if reply, ok := h.tryClassifier(ctx, chatID, key, student, lastOrder, text); ok {
			return reply, nil
		}
	}

	return buildMenu(student, lastOrder, dish, h.loc), nil
}

// save persists state, logging instead of failing the turn on error.
func (h *Handler) save(ctx context.Context, key string, st State) {
	if err := h.states.Put(ctx, key, st); err != nil {
		h.logger.Error("state save failed", "key", key, "error", err)
	}
}

func (h *Handler) handleStatus(ctx context.Context, student *students.Student, lastOrder *orders.Order, dish *orders.Dish) (string, error) {
	if student == nil {
		return buildHeader(nil, nil, dish, h.loc) + "Seu número ainda *não está vinculado*. Envie: *CONTINUAR*.", nil
	}

	days, err := h.students.Weekdays(ctx, student.ID)
	if err != nil {
		return unavailableMessage, nil
	}
	blocked, err := h.students.BlockedDishes(ctx, student.ID)
	if err != nil {
		return unavailableMessage, nil
	}
	return buildStatus(student, days, blocked, buildHeader(student, lastOrder, dish, h.loc)), nil
}

func (h *Handler) handleHistory(ctx context.Context, student *students.Student, lastOrder *orders.Order, dish *orders.Dish) (string, error) {
	if student == nil {
		return "Cadastro não encontrado.", nil
	}

	from := schedule.ISODate(h.now().AddDate(0, 0, -7))
	recent, err := h.orders.RecentOrders(ctx, student.ID, from)
	if err != nil {
		return unavailableMessage, nil
	}
	return buildHistory(recent, buildHeader(student, lastOrder, dish, h.loc), h.loc), nil
}

func (h *Handler) handleRegistration(ctx context.Context, key string, st State, text, norm string, dish *orders.Dish) (string, error) {
	if st.Step == StepAwaitingStudentID {
		reg := parseRegistration(text)
		if reg == "" {
			return "Formato inválido. Digite apenas números do prontuário (ex: 3029791).", nil
		}
		st.Step = StepAwaitingWeekdays
		st.PendingRegistration = reg
		h.save(ctx, key, st)
		return buildWeekdaysPrompt("Prontuário recebido! Agora escolha os *dias da semana* que você almoça:"), nil
	}

	if strings.Contains(norm, cmdContinue) {
		st.Step = StepAwaitingStudentID
		st.clearTransient()
		h.save(ctx, key, st)
		return "*Cadastro Inicial*\n\nPor favor, digite seu *prontuário IFSP* (apenas números).", nil
	}

	if st.Step == StepAwaitingConsent {
		return "Quando quiser começar, é só enviar *continuar*.", nil
	}

	if st.Step == StepNew {
		st.Step = StepAwaitingConsent
		st.clearTransient()
		h.save(ctx, key, st)
		return welcomeMessage, nil
	}

	if st.Step == StepAwaitingWeekdays {
		days := schedule.ParseWeekdayList(text)
		if len(days) == 0 {
			return "Não entendi. Digite os dias (ex: seg, ter).", nil
		}

		student, err := h.students.LinkContact(ctx, st.PendingRegistration, key)
		switch {
		case errors.Is(err, students.ErrStudentNotFound):
			st.Step = StepAwaitingStudentID
			h.save(ctx, key, st)
			return "Prontuário não encontrado na base. Digite o prontuário novamente.", nil
		case errors.Is(err, students.ErrLinkConflict):
			st.Step = StepAwaitingStudentID
			st.clearTransient()
			h.save(ctx, key, st)
			return "Prontuário já vinculado a outro número.", nil
		case err != nil:
			h.logger.Error("contact link failed", "key", key, "error", err)
			return unavailableMessage, nil
		}

		if err := h.students.ReplaceWeekdays(ctx, student.ID, days); err != nil {
			return unavailableMessage, nil
		}
		if err := h.students.SetActive(ctx, student.ID, true); err != nil {
			return unavailableMessage, nil
		}

		st.StudentID = student.ID
		st.toMenu()
		h.save(ctx, key, st)
		student.Active = true
		return buildMenu(student, nil, dish, h.loc), nil
	}

	return welcomeMessage, nil
}

func (h *Handler) handleSetWeekdays(ctx context.Context, key string, st State, student *students.Student, text string, lastOrder *orders.Order, dish *orders.Dish) (string, error) {
	days := schedule.ParseWeekdayList(text)
	if len(days) == 0 {
		return "Selecione pelo menos um dia.", nil
	}
	if err := h.students.ReplaceWeekdays(ctx, student.ID, days); err != nil {
		return unavailableMessage, nil
	}
	st.toMenu()
	h.save(ctx, key, st)
	return buildMenu(student, lastOrder, dish, h.loc), nil
}

func (h *Handler) handleSetBlockedDishes(ctx context.Context, key string, st State, student *students.Student, text string) (string, error) {
	items := splitDishList(text)
	if len(items) == 0 {
		return "Envie os nomes dos pratos (ex: peixe, fígado).", nil
	}
	if err := h.students.AddBlockedDishes(ctx, student.ID, items); err != nil {
		return unavailableMessage, nil
	}
	st.toMenu()
	h.save(ctx, key, st)
	return fmt.Sprintf("*Bloqueios adicionados:* %s", strings.Join(items, ", ")), nil
}

func (h *Handler) handleRemoveBlockedDishes(ctx context.Context, key string, st State, student *students.Student, text, norm string) (string, error) {
	if isClearAll(norm) {
		if err := h.students.ClearBlockedDishes(ctx, student.ID); err != nil {
			return unavailableMessage, nil
		}
		st.toMenu()
		h.save(ctx, key, st)
		return "Todos os bloqueios foram removidos.", nil
	}

	items := splitDishList(text)
	if len(items) == 0 {
		return "Envie os nomes dos pratos para desbloquear (ex: peixe).", nil
	}
	if err := h.students.RemoveBlockedDishes(ctx, student.ID, items); err != nil {
		return unavailableMessage, nil
	}
	st.toMenu()
	h.save(ctx, key, st)
	return fmt.Sprintf("*Bloqueios removidos:* %s", strings.Join(items, ", ")), nil
}

func (h *Handler) handleUnblockStart(ctx context.Context, key string, st State, student *students.Student) (string, error) {
	blocked, err := h.students.BlockedDishes(ctx, student.ID)
	if err != nil {
		return unavailableMessage, nil
	}
	if len(blocked) == 0 {
		st.toMenu()
		h.save(ctx, key, st)
		return "Você não tem pratos bloqueados.", nil
	}
	st.Step = StepRemoveBlockedDishes
	st.clearTransient()
	h.save(ctx, key, st)
	return buildBlockedList(blocked), nil
}

func (h *Handler) handleSetActive(ctx context.Context, key string, st State, student *students.Student, active bool) (string, error) {
	if err := h.students.SetActive(ctx, student.ID, active); err != nil {
		return unavailableMessage, nil
	}
	st.toMenu()
	h.save(ctx, key, st)
	if active {
		return "Robô ativado.", nil
	}
	return "Robô pausado.", nil
}

func (h *Handler) handleCancellationStart(ctx context.Context, key string, st State, student *students.Student, norm string) (string, error) {
	now := h.now().In(h.loc)

	var targetWeekday int
	parts := strings.Fields(norm)
	if len(parts) > 1 && strings.Contains(parts[0], cmdCancel) {
		targetWeekday = schedule.WeekdayNumber(parts[1])
	}

	days, err := h.students.Weekdays(ctx, student.ID)
	if err != nil {
		return unavailableMessage, nil
	}
	restriction := days
	if len(restriction) == 0 {
		restriction = []int{1, 2, 3, 4, 5}
	}

	var target time.Time
	if targetWeekday != 0 {
		if !slices.Contains(restriction, targetWeekday) {
			st.toMenu()
			h.save(ctx, key, st)
			return fmt.Sprintf("O dia solicitado não está cadastrado. Seus dias: *%s*.", schedule.FormatWeekdays(restriction)), nil
		}
		target = schedule.NextDateForWeekday(now, time.Weekday(targetWeekday))
	} else {
		target = schedule.NextPreferredDate(now, restriction, st.LastCancelledDate)
	}

	method, err := h.cancel.Decide(ctx, student.ID, target, now)
	switch {
	case errors.Is(err, cancel.ErrAlreadyCancelled):
		st.toMenu()
		h.save(ctx, key, st)
		return fmt.Sprintf("O almoço de *%s* já está cancelado.", humanDate(target)), nil
	case err != nil:
		return unavailableMessage, nil
	}

	st.Step = StepConfirmCancellation
	st.PendingCancelDate = schedule.ISODate(target)
	st.PendingCancelMethod = string(method)
	h.save(ctx, key, st)
	return buildCancelConfirmPrompt(string(method), target), nil
}

func (h *Handler) handleConfirmCancellation(ctx context.Context, key string, st State, student *students.Student, norm string) (string, error) {
	if isNo(norm) {
		st.toMenu()
		h.save(ctx, key, st)
		return "Cancelamento abortado.", nil
	}

	if !isYes(norm) {
		return "Por favor, confirme se deseja cancelar.\n\n▸ *Sim, Cancelar*\n▸ *Não*", nil
	}

	target, err := schedule.ParseISODate(st.PendingCancelDate, h.loc)
	if err != nil {
		st.toMenu()
		h.save(ctx, key, st)
		return "Não encontrei um cancelamento pendente. Envie *cancelar* para começar.", nil
	}

	now := h.now().In(h.loc)
	method := cancel.Method(st.PendingCancelMethod)
	if err := h.cancel.Execute(ctx, student, target, method, now); err != nil {
		// Pending data stays so the user can just confirm again. The
		// transport detail goes to the user so staff can be told what broke.
		var de *notify.DeliveryError
		if errors.As(err, &de) {
			return fmt.Sprintf("Não consegui enviar o e-mail agora: %v. Envie *sim* para tentar de novo.", de.Err), nil
		}
		return unavailableMessage, nil
	}

	st.LastCancelledDate = schedule.ISODate(target)
	st.toMenu()
	h.save(ctx, key, st)

	if method == cancel.MethodDirect {
		return fmt.Sprintf("Cancelamento DIRETO registrado para %s.", humanDate(target)), nil
	}
	return fmt.Sprintf("Cancelamento enviado para %s via e-mail.", humanDate(target)), nil
}

// tryClassifier asks the LLM to map the message onto a command or short
// answer. The bool result reports whether the reply should be used.
func (h *Handler) tryClassifier(ctx context.Context, chatID, key string, student *students.Student, lastOrder *orders.Order, text string) (string, bool) {
	days, err := h.students.Weekdays(ctx, student.ID)
	if err != nil {
		return "", false
	}
	blocked, err := h.students.BlockedDishes(ctx, student.ID)
	if err != nil {
		return "", false
	}

	uc := assistant.UserContext{
		ChatID:        key,
		StudentName:   student.Name,
		Registration:  student.FormattedRegistration(),
		PreferredDays: schedule.FormatWeekdays(days),
		BlockedDishes: strings.Join(blocked, ", "),
		Active:        student.Active,
	}
	if lastOrder != nil {
		uc.LastOrder = fmt.Sprintf("%s - %s", lastOrder.Date, lastOrder.Motivo)
	}

	result, err := h.classifier.Classify(ctx, text, uc)
	if err != nil {
		if errors.Is(err, assistant.ErrQuotaExceeded) {
			h.metrics.ObserveAssistant("quota_exceeded")
		} else {
			h.metrics.ObserveAssistant("error")
			h.logger.Warn("intent classification failed", "key", key, "error", err)
		}
		return "", false
	}

	switch result.Kind {
	case assistant.KindCommand:
		h.metrics.ObserveAssistant("command")
		if result.Command == cmdHelp || result.Command == cmdContinue {
			return "", false
		}
		reply, err := h.process(ctx, chatID, result.Command, true)
		if err != nil {
			return "", false
		}
		return reply, true
	case assistant.KindAnswer:
		h.metrics.ObserveAssistant("answer")
		return result.Answer, true
	}
	h.metrics.ObserveAssistant("none")
	return "", false
}
