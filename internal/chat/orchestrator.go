package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/core/retry"
	"github.com/salubra-ai/salubra/internal/models"
	"github.com/salubra-ai/salubra/internal/rag"
)

// Source classifies where the answer's content came from.
const (
	SourceDatabase = "database"
	SourceGeneral  = "general"
	SourceUnknown  = "unknown"
)

var markerPattern = regexp.MustCompile(`(?i)\[\s*FUENTES_USADAS:\s*(BASE_DE_DATOS|CONOCIMIENTO_GENERAL)\s*\]`)

// Request is one chat turn: the conversation so far plus retrieval scope.
type Request struct {
	Specialty        string
	Messages         []Message
	DisableRetrieval bool
}

// Response is the structured outcome of a turn. Failed is set instead of
// returning an error so one bad completion never tears down the session.
type Response struct {
	Text   string
	Source string
	Model  string
	Failed bool
	Error  string
}

// Orchestrator runs a full chat turn against the completion provider.
type Orchestrator struct {
	completer core.CompletionProvider
	searcher  searcher
	logger    *slog.Logger

	chatModel       string
	visionModel     string
	maxOutputTokens int
	temperature     float64
}

// searcher is the slice of rag.Searcher the orchestrator needs.
type searcher interface {
	Search(ctx context.Context, query, specialty string) ([]models.SearchResult, error)
}

func NewOrchestrator(
	completer core.CompletionProvider,
	search searcher,
	chatModel, visionModel string,
	maxOutputTokens int,
	temperature float64,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		completer:       completer,
		searcher:        search,
		logger:          logger,
		chatModel:       chatModel,
		visionModel:     visionModel,
		maxOutputTokens: maxOutputTokens,
		temperature:     temperature,
	}
}

// Respond executes the turn. ctx carries the caller's cancellation: an
// abandoned turn aborts the outstanding completion call.
func (o *Orchestrator) Respond(ctx context.Context, req Request) Response {
	processed, hasImages, hasDocs := ProcessAttachments(req.Messages)

	prompt := basePrompt(req.Specialty)
	if o.searcher != nil && !req.DisableRetrieval {
		if query := lastUserText(req.Messages); query != "" {
			results, err := o.searcher.Search(ctx, query, req.Specialty)
			if err != nil {
				o.logger.Warn("knowledge search failed, continuing without context", "error", err)
			} else {
				prompt = rag.AugmentPrompt(prompt, results)
			}
		}
	}

	model := o.chatModel
	if hasImages {
		model = o.visionModel
	}

	messages := make([]core.ProviderMessage, 0, 1+len(processed))
	messages = append(messages, core.ProviderMessage{Role: "system", Content: prompt})
	messages = append(messages, processed...)

	var result core.CompletionResult
	err := retry.Do(ctx, 2, time.Second, core.IsRetryable, func() error {
		var callErr error
		result, callErr = o.completer.Complete(ctx, core.CompletionRequest{
			Model:       model,
			Messages:    messages,
			MaxTokens:   o.maxOutputTokens,
			Temperature: o.temperature,
		})
		return callErr
	})
	if err != nil {
		o.logger.Error("completion failed", "model", model, "error", err)
		return Response{
			Failed: true,
			Error:  "no se pudo obtener una respuesta",
			Model:  model,
		}
	}

	text, source := ParseAttribution(result.Text)
	o.logger.Info("chat turn complete",
		"model", result.Model, "source", source,
		"has_images", hasImages, "has_docs", hasDocs)

	return Response{Text: text, Source: source, Model: result.Model}
}

// ParseAttribution finds the attribution marker, strips it, and
// classifies the source. Text without a marker is returned unmodified
// with SourceUnknown.
func ParseAttribution(raw string) (string, string) {
	match := markerPattern.FindStringSubmatch(raw)
	if match == nil {
		return raw, SourceUnknown
	}
	cleaned := strings.TrimSpace(markerPattern.ReplaceAllString(raw, ""))
	if strings.EqualFold(match[1], "BASE_DE_DATOS") {
		return cleaned, SourceDatabase
	}
	return cleaned, SourceGeneral
}

func basePrompt(specialty string) string {
	prompt := "Eres un asistente de salud profesional y empatico. " +
		"Responde en espanol, con precision y sin inventar informacion."
	if specialty != "" {
		prompt += fmt.Sprintf(" Tu area de especialidad es %s.", specialty)
	}
	return prompt
}

// lastUserText returns the text of the most recent user message, the
// retrieval query for this turn.
func lastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && strings.TrimSpace(messages[i].Text) != "" {
			return messages[i].Text
		}
	}
	return ""
}
