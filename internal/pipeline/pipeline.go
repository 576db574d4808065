// ABOUTME: Message pipeline: attachment ingestion, context assembly, completion,
// ABOUTME: artifact dispatch, persistence and room broadcast for one inbound message

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/parley-gateway/internal/ai"
	"github.com/2389/parley-gateway/internal/conversation"
	"github.com/2389/parley-gateway/internal/extract"
	"github.com/2389/parley-gateway/internal/respond"
	"github.com/2389/parley-gateway/internal/store"
)

// DefaultMaxTokens is the context budget used when the client does not
// request one.
const DefaultMaxTokens = 4096

// Completer produces a model reply for an assembled conversation.
type Completer interface {
	Complete(ctx context.Context, entries []conversation.Entry, flag string) (ai.Result, error)
}

// Responder turns model output into the final response, generating an
// artifact when the flag asks for one.
type Responder interface {
	Generate(ctx context.Context, flag, content, roomID string) (respond.Result, error)
}

// Broadcaster fans an event out to a room's members.
type Broadcaster interface {
	Broadcast(roomID string, event any, excludeConnID string)
}

// Inbound is one message event from a connected client.
type Inbound struct {
	ConnID      string
	UserID      string
	RoomID      string
	Message     string
	OutputFlag  string
	MaxTokens   int
	Attachments []extract.Attachment
}

// MessageResult is broadcast to the room when a pipeline run completes.
type MessageResult struct {
	MessageID string    `json:"messageId"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	FileURL   *string   `json:"fileUrl"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pipeline runs the full message flow. Concurrent runs are independent;
// a failure in one message never affects other members or other in-flight
// messages.
type Pipeline struct {
	store     store.Store
	assembler *conversation.Assembler
	ingestor  *extract.Ingestor
	completer Completer
	responder Responder
	rooms     Broadcaster
	timeout   time.Duration // 0 disables the whole-pipeline deadline
	logger    *slog.Logger
}

// Config holds the pipeline's collaborators.
type Config struct {
	Store     store.Store
	Assembler *conversation.Assembler
	Ingestor  *extract.Ingestor
	Completer Completer
	Responder Responder
	Rooms     Broadcaster
	Timeout   time.Duration
}

// New builds a Pipeline. Pass nil logger for default.
func New(cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     cfg.Store,
		assembler: cfg.Assembler,
		ingestor:  cfg.Ingestor,
		completer: cfg.Completer,
		responder: cfg.Responder,
		rooms:     cfg.Rooms,
		timeout:   cfg.Timeout,
		logger:    logger.With("component", "pipeline"),
	}
}

// Process runs one inbound message end to end and broadcasts the result to
// the room. Any stage failure aborts the remaining stages for this message
// and is returned to the caller, which reports it to the originating
// connection only.
func (p *Pipeline) Process(ctx context.Context, in Inbound) (*MessageResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	content, err := p.ingestAttachments(ctx, in)
	if err != nil {
		return nil, err
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	entries, err := p.assembler.TokenBudget(ctx, in.RoomID, content, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("assembling context: %w", err)
	}

	userMsg := &store.Message{
		ID:        uuid.New().String(),
		RoomID:    in.RoomID,
		UserID:    in.UserID,
		Role:      store.RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.SaveMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	completion, err := p.completer.Complete(ctx, entries, in.OutputFlag)
	if err != nil {
		return nil, err
	}

	response, err := p.responder.Generate(ctx, in.OutputFlag, completion.Content, in.RoomID)
	if err != nil {
		return nil, err
	}

	assistantMsg := &store.Message{
		ID:        uuid.New().String(),
		RoomID:    in.RoomID,
		UserID:    in.UserID,
		Role:      store.RoleAssistant,
		Content:   response.FormattedResponse,
		FileURL:   response.FileURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.SaveMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("saving assistant message: %w", err)
	}

	result := &MessageResult{
		MessageID: assistantMsg.ID,
		RoomID:    in.RoomID,
		UserID:    in.UserID,
		Content:   response.FormattedResponse,
		Model:     completion.Model,
		CreatedAt: assistantMsg.CreatedAt,
	}
	if response.FileURL != "" {
		result.FileURL = &response.FileURL
	}

	// Delivery to all members, originator included, in commit order.
	p.rooms.Broadcast(in.RoomID, result, "")

	p.logger.Info("message processed",
		"room_id", in.RoomID,
		"user_id", in.UserID,
		"output_flag", in.OutputFlag,
		"has_artifact", response.FileURL != "")
	return result, nil
}

// ingestAttachments folds extracted attachment text into the message
// content. Unsupported attachment types contribute nothing; extraction
// failures abort the message.
func (p *Pipeline) ingestAttachments(ctx context.Context, in Inbound) (string, error) {
	content := in.Message
	for _, att := range in.Attachments {
		text, err := p.ingestor.Process(ctx, att)
		if err != nil {
			return "", fmt.Errorf("processing attachment %s: %w", att.Filename, err)
		}
		if text == "" {
			continue
		}
		if content != "" {
			content += "\n\n"
		}
		content += fmt.Sprintf("File: %s\n\n%s", att.Filename, text)
	}
	return content, nil
}
