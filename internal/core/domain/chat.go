package domain

import "fmt"

// SourceLayer records which branch of the response router produced an answer.
type SourceLayer string

const (
	SourceLayerQA      SourceLayer = "QA"
	SourceLayerRAG     SourceLayer = "RAG"
	SourceLayerGeneral SourceLayer = "GENERAL"
)

// Message roles for conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one prior message in a conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseMeta is the provenance record attached to every completed response.
// Exactly one of SourceQAID / SourceDocumentChunks is populated, determined
// by SourceLayer.
type ResponseMeta struct {
	SourceLayer          SourceLayer `json:"source_layer"`
	SourceQAID           string      `json:"source_qa_id,omitempty"`
	SourceDocumentChunks []string    `json:"source_document_chunks,omitempty"`
	ResponseTimeMS       int64       `json:"response_time_ms"`
}

// Validate checks the source-layer / provenance-field consistency invariant.
func (m *ResponseMeta) Validate() error {
	switch m.SourceLayer {
	case SourceLayerQA:
		if m.SourceQAID == "" {
			return fmt.Errorf("%w: QA meta without source_qa_id", ErrInvalidInput)
		}
		if m.SourceDocumentChunks != nil {
			return fmt.Errorf("%w: QA meta with document chunks", ErrInvalidInput)
		}
	case SourceLayerRAG:
		if len(m.SourceDocumentChunks) == 0 {
			return fmt.Errorf("%w: RAG meta without document chunks", ErrInvalidInput)
		}
		if m.SourceQAID != "" {
			return fmt.Errorf("%w: RAG meta with source_qa_id", ErrInvalidInput)
		}
	case SourceLayerGeneral:
		if m.SourceQAID != "" || m.SourceDocumentChunks != nil {
			return fmt.Errorf("%w: GENERAL meta with provenance fields", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown source layer %q", ErrInvalidInput, m.SourceLayer)
	}
	return nil
}

// StreamEvent is one element of a response stream: either a content fragment
// or the single terminal metadata record. A content-less event carrying Meta
// is the end-of-stream signal.
type StreamEvent struct {
	Content string        `json:"content,omitempty"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

// End reports whether this event terminates the stream.
func (e StreamEvent) End() bool {
	return e.Meta != nil
}

// GenerationRequest is the input to the language-model generator: a system
// instruction, an optional grounding context, optional prior turns and an
// optional auxiliary lesson context, plus the user query.
type GenerationRequest struct {
	SystemPrompt  string
	Context       string // grounding context for RAG answers, empty otherwise
	LessonContext string
	History       []ChatTurn
	Query         string
	MaxTokens     int
	Seed          int
}
