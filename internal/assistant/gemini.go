package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ifsp-pirituba/almoco-bot/pkg/logging"
)

const systemPrompt = `Você é o assistente do bot de almoço do IFSP Pirituba.
O bot entende os comandos: cancelar, status, historico, preferencia, bloquear, desbloquear, ativar, desativar, ajuda.
Se a mensagem do aluno corresponder a um desses comandos, responda EXATAMENTE "COMANDO:<nome>" e nada mais.
Caso contrário, responda a dúvida do aluno em no máximo duas frases curtas, em português.
Você só sabe sobre o funcionamento do bot e do almoço do campus. Para qualquer outro assunto, diga que não pode ajudar.`

// textGenerator is the slice of the LLM the classifier needs.
type textGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiClient generates text through Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("assistant: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash-lite"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("assistant: failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, modelID: modelID}, nil
}

// Generate sends one prompt and returns the concatenated text parts of the
// first candidate.
func (c *GeminiClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(150)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("assistant: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("assistant: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("assistant: gemini returned empty content")
	}

	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// Close releases resources held by the underlying client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classifier combines the generator with quota enforcement and a small
// cache of message-to-command mappings.
type Classifier struct {
	gen     textGenerator
	limiter *UsageLimiter
	cache   *commandCache
	logger  *logging.Logger
}

// NewClassifier wires a classifier around gen.
func NewClassifier(gen textGenerator, limiter *UsageLimiter, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{
		gen:     gen,
		limiter: limiter,
		cache:   newCommandCache(50),
		logger:  logger,
	}
}

// Classify maps text onto a Result. Cached command hits do not consume
// quota; once quota is spent the call fails with ErrQuotaExceeded.
func (c *Classifier) Classify(ctx context.Context, text string, uc UserContext) (Result, error) {
	key := cacheKey(text)
	if key == "" {
		return Result{Kind: KindNone}, nil
	}

	if cmd, ok := c.cache.get(key); ok {
		return Result{Kind: KindCommand, Command: cmd}, nil
	}

	if !c.limiter.Allow(uc.ChatID) {
		return Result{Kind: KindNone}, ErrQuotaExceeded
	}

	raw, err := c.gen.Generate(ctx, systemPrompt, buildPrompt(text, uc))
	if err != nil {
		return Result{Kind: KindNone}, err
	}

	result := parseResponse(raw)
	if result.Kind == KindCommand {
		c.cache.put(key, result.Command)
	}
	c.logger.Debug("assistant classified message", "chat_id", uc.ChatID, "kind", int(result.Kind))
	return result, nil
}

func buildPrompt(text string, uc UserContext) string {
	var b strings.Builder
	b.WriteString("Contexto do aluno:\n")
	if uc.StudentName != "" {
		fmt.Fprintf(&b, "Nome: %s\n", uc.StudentName)
	}
	if uc.Registration != "" {
		fmt.Fprintf(&b, "Prontuário: %s\n", uc.Registration)
	}
	if uc.PreferredDays != "" {
		fmt.Fprintf(&b, "Dias de almoço: %s\n", uc.PreferredDays)
	}
	if uc.BlockedDishes != "" {
		fmt.Fprintf(&b, "Pratos bloqueados: %s\n", uc.BlockedDishes)
	}
	if uc.LastOrder != "" {
		fmt.Fprintf(&b, "Último pedido: %s\n", uc.LastOrder)
	}
	if uc.Active {
		b.WriteString("Bot: ativado\n")
	} else {
		b.WriteString("Bot: desativado\n")
	}
	fmt.Fprintf(&b, "\nMensagem do aluno: %s", strings.TrimSpace(text))
	return b.String()
}
