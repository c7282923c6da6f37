package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"

	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven"
	"github.com/anita-labs/anita-core/internal/core/ports/driving"
	"github.com/anita-labs/anita-core/internal/runtime"
)

// Ensure chatService implements ChatService
var _ driving.ChatService = (*chatService)(nil)

// Generation tunables. The fixed seed keeps model output reproducible across
// identical requests.
const (
	ragMaxTokens     = 400
	generalMaxTokens = 300
	generationSeed   = 12345
	contextSeparator = "\n---\n"
)

// supportedLanguages is the closed set the router accepts; anything else
// falls back to the default.
var supportedLanguages = map[string]bool{
	"en": true,
	"lt": true,
}

var ragSystemPrompts = map[string]string{
	"lt": "Tu esi Anita, draugiška mokymosi asistentė. Atsakyk į klausimą remdamasi pateikta medžiaga. Jei medžiagoje atsakymo nėra, pasakyk tai atvirai. Atsakyk lietuviškai, aiškiai ir glaustai.",
	"en": "You are Anita, a friendly learning assistant. Answer the question using the provided material. If the material does not contain the answer, say so openly. Answer in English, clearly and concisely.",
}

var generalSystemPrompts = map[string]string{
	"lt": "Tu esi Anita, draugiška mokymosi asistentė. Atsakyk į klausimą savo žiniomis, aiškiai ir glaustai, lietuviškai.",
	"en": "You are Anita, a friendly learning assistant. Answer the question from your own knowledge, clearly and concisely, in English.",
}

var unavailableMessages = map[string]string{
	"lt": "Atsiprašau, atsakymų generavimas šiuo metu nepasiekiamas. Pabandykite vėliau.",
	"en": "Sorry, answer generation is currently unavailable. Please try again later.",
}

var errorMessages = map[string]string{
	"lt": "Atsiprašau, generuojant atsakymą įvyko klaida.",
	"en": "Sorry, an error occurred while generating the answer.",
}

// chatService routes a query through the three answer layers and streams the
// winning branch.
type chatService struct {
	qa       driving.QAIndexService
	docs     driving.DocumentIndexService
	store    driven.QAStore
	services *runtime.Services // Dynamic AI services
	logger   *slog.Logger
	detect   func(string) string
}

// NewChatService creates a new ChatService
func NewChatService(
	qa driving.QAIndexService,
	docs driving.DocumentIndexService,
	store driven.QAStore,
	services *runtime.Services,
	logger *slog.Logger,
) driving.ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &chatService{
		qa:       qa,
		docs:     docs,
		store:    store,
		services: services,
		logger:   logger,
		detect:   detectLanguage,
	}
}

// detectLanguage guesses the query's language from its text
func detectLanguage(query string) string {
	info := whatlanggo.Detect(query)
	return info.Lang.Iso6391()
}

// GenerateResponseStream routes the query QA -> RAG -> GENERAL and streams
// the first branch that answers. The channel is closed after the terminal
// metadata event, or without one when ctx is cancelled mid-stream.
func (s *chatService) GenerateResponseStream(ctx context.Context, query, language string, history []domain.ChatTurn, lessonContext string) (<-chan domain.StreamEvent, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidInput
	}

	lang := s.resolveLanguage(query, language)
	out := make(chan domain.StreamEvent)
	go s.produce(ctx, out, query, lang, history, lessonContext)
	return out, nil
}

// resolveLanguage prefers an explicit supported language, then detection,
// then the default.
func (s *chatService) resolveLanguage(query, language string) string {
	if supportedLanguages[language] {
		return language
	}
	if detected := s.detect(query); supportedLanguages[detected] {
		return detected
	}
	return domain.DefaultLanguage
}

func (s *chatService) produce(ctx context.Context, out chan<- domain.StreamEvent, query, lang string, history []domain.ChatTurn, lessonContext string) {
	defer close(out)
	start := time.Now()

	emit := func(ev domain.StreamEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	emitMeta := func(meta domain.ResponseMeta) {
		meta.ResponseTimeMS = time.Since(start).Milliseconds()
		emit(domain.StreamEvent{Meta: &meta})
	}

	canMatch := s.services.Config().CanMatch()

	// Layer one: exact-knowledge QA match. A dangling match (vector without
	// a backing answer row) degrades to the next layer instead of failing.
	if canMatch {
		match, err := s.qa.FindBestMatch(ctx, query, lang)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("qa matching failed, falling through", "error", err)
		case match != nil:
			answer, err := s.store.GetAnswer(ctx, match.QAID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				s.logger.Warn("qa match has no backing answer, falling through", "qa_id", match.QAID)
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("qa answer lookup failed, falling through", "qa_id", match.QAID, "error", err)
			default:
				s.logger.Info("answered from qa layer", "qa_id", match.QAID, "distance", match.Distance)
				if !emit(domain.StreamEvent{Content: answer}) {
					return
				}
				emitMeta(domain.ResponseMeta{
					SourceLayer: domain.SourceLayerQA,
					SourceQAID:  match.QAID,
				})
				return
			}
		}
	}

	// Layer two: retrieval-grounded generation.
	var chunks []string
	if canMatch {
		found, err := s.docs.SearchDocuments(ctx, query, lang)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("document search failed, falling through", "error", err)
		} else {
			chunks = found
		}
	}
	if len(chunks) > 0 {
		s.logger.Info("answering from rag layer", "chunks", len(chunks))
		s.streamGeneration(ctx, emit, domain.GenerationRequest{
			SystemPrompt:  ragSystemPrompts[lang],
			Context:       strings.Join(chunks, contextSeparator),
			LessonContext: lessonContext,
			History:       history,
			Query:         query,
			MaxTokens:     ragMaxTokens,
			Seed:          generationSeed,
		}, domain.ResponseMeta{
			SourceLayer:          domain.SourceLayerRAG,
			SourceDocumentChunks: chunks,
		}, emitMeta, lang)
		return
	}

	// Layer three: general knowledge.
	s.logger.Info("answering from general layer")
	s.streamGeneration(ctx, emit, domain.GenerationRequest{
		SystemPrompt:  generalSystemPrompts[lang],
		LessonContext: lessonContext,
		History:       history,
		Query:         query,
		MaxTokens:     generalMaxTokens,
		Seed:          generationSeed,
	}, domain.ResponseMeta{
		SourceLayer: domain.SourceLayerGeneral,
	}, emitMeta, lang)
}

// streamGeneration streams model output as content fragments and always ends
// with the branch's metadata, unless the context is cancelled. Generator
// failures become a terminal apology fragment so the client still gets a
// well-formed stream.
func (s *chatService) streamGeneration(
	ctx context.Context,
	emit func(domain.StreamEvent) bool,
	req domain.GenerationRequest,
	meta domain.ResponseMeta,
	emitMeta func(domain.ResponseMeta),
	lang string,
) {
	generator := s.services.Generator()
	if generator == nil {
		s.logger.Warn("generator not configured")
		if !emit(domain.StreamEvent{Content: unavailableMessages[lang]}) {
			return
		}
		emitMeta(meta)
		return
	}

	err := generator.GenerateStream(ctx, req, func(delta string) error {
		if delta == "" {
			return nil
		}
		if !emit(domain.StreamEvent{Content: delta}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("generation failed", "error", err)
		if !emit(domain.StreamEvent{Content: errorMessages[lang]}) {
			return
		}
	}
	emitMeta(meta)
}
