package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/ratelimit"
)

const (
	maxMessageLen  = 50000
	maxMessages    = 100
	maxFolderIDs   = 50
	maxTitleLen    = 60
	defaultContext = 20
)

// apologyAnswer stands in for the answer when the generation capability
// stays down through all retries. The turn still succeeds so the UI
// never hard-fails on a provider outage.
const apologyAnswer = "Sorry, I was unable to generate an answer right now. Please try again in a moment."

type UserStore interface {
	GetByID(id uint) (*model.User, error)
}

type ConversationStore interface {
	Create(conversation *model.Conversation) error
	GetByIDAndUserID(id string, userID uint) (*model.Conversation, error)
	ListByUserID(userID uint) ([]model.Conversation, error)
	Touch(id string) error
}

type MessageStore interface {
	ListByConversationID(conversationID string, limit int) ([]model.Message, error)
	ListRecentByConversationID(conversationID string, n int) ([]model.Message, error)
}

// TurnPublisher hands finished turns to the async persistence queue.
type TurnPublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID string) error
	MarkDirty(ctx context.Context, conversationID string) error
	IsDirty(ctx context.Context, conversationID string) (bool, error)
}

type QueryRewriter interface {
	Rewrite(ctx context.Context, question string, history []ai.ChatMessage) string
}

type PassageRetriever interface {
	Retrieve(ctx context.Context, query string, folderIDs []uint) ([]RetrievalResult, error)
}

type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, passages []RetrievalResult, question string, history []ai.ChatMessage) (string, error)
	SynthesizeStream(ctx context.Context, passages []RetrievalResult, question string, history []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// ChatService runs one chat turn end to end: validate, rate limit,
// resolve scope, contextualize, retrieve, synthesize, cite, persist.
// Grounding failures degrade; auth and scope failures fail early;
// persistence failures are swallowed.
type ChatService struct {
	users         UserStore
	scope         *ScopeResolver
	rewriter      QueryRewriter
	retriever     PassageRetriever
	synthesizer   AnswerSynthesizer
	limiter       ratelimit.Limiter
	conversations ConversationStore
	messages      MessageStore
	publisher     TurnPublisher
	historyCache  HistoryCache
	maxContext    int
}

func NewChatService(
	users UserStore,
	scope *ScopeResolver,
	rewriter QueryRewriter,
	retriever PassageRetriever,
	synthesizer AnswerSynthesizer,
	limiter ratelimit.Limiter,
	conversations ConversationStore,
	messages MessageStore,
	publisher TurnPublisher,
	historyCache HistoryCache,
	maxContext int,
) *ChatService {
	if maxContext <= 0 {
		maxContext = defaultContext
	}
	return &ChatService{
		users:         users,
		scope:         scope,
		rewriter:      rewriter,
		retriever:     retriever,
		synthesizer:   synthesizer,
		limiter:       limiter,
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		historyCache:  historyCache,
		maxContext:    maxContext,
	}
}

type TurnInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnswerInput carries one chat request. Exactly one of Message and
// Messages must be set; Messages wins when both are present, its last
// entry being the current question and the rest history.
type AnswerInput struct {
	UserID         uint
	Message        string
	Messages       []TurnInput
	FolderIDs      []uint
	ConversationID string
}

type AnswerResult struct {
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	Citations      []Citation `json:"citations"`
	ConversationID string     `json:"conversation_id"`
}

// Answer executes a full chat turn.
func (s *ChatService) Answer(ctx context.Context, input AnswerInput) (*AnswerResult, error) {
	if err := validateAnswerInput(input); err != nil {
		return nil, err
	}

	if !s.limiter.Allow(strconv.FormatUint(uint64(input.UserID), 10)) {
		return nil, ErrRateLimited
	}

	user, err := s.users.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	question, history, err := s.questionAndHistory(input)
	if err != nil {
		return nil, err
	}

	scoped, err := s.scope.Resolve(user, input.FolderIDs)
	if err != nil {
		return nil, err
	}

	standalone := s.rewriter.Rewrite(ctx, question, history)

	passages, err := s.retriever.Retrieve(ctx, standalone, scoped)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages failed: %w", err)
	}

	answer, err := s.synthesizer.Synthesize(ctx, passages, question, history)
	if err != nil {
		log.Printf("synthesis failed, returning degraded answer: %v", err)
		answer = apologyAnswer
	}

	citations := FormatCitations(passages)
	conversationID := s.persistTurn(ctx, input, question, answer, citations)

	return &AnswerResult{
		Role:           "assistant",
		Content:        answer,
		Citations:      citations,
		ConversationID: conversationID,
	}, nil
}

// AnswerStream is the streaming variant. Synthesis failure degrades to
// the apology text emitted as a final chunk, mirroring Answer.
func (s *ChatService) AnswerStream(ctx context.Context, input AnswerInput, onChunk func(string) error) (*AnswerResult, error) {
	if err := validateAnswerInput(input); err != nil {
		return nil, err
	}

	if !s.limiter.Allow(strconv.FormatUint(uint64(input.UserID), 10)) {
		return nil, ErrRateLimited
	}

	user, err := s.users.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	question, history, err := s.questionAndHistory(input)
	if err != nil {
		return nil, err
	}

	scoped, err := s.scope.Resolve(user, input.FolderIDs)
	if err != nil {
		return nil, err
	}

	standalone := s.rewriter.Rewrite(ctx, question, history)

	passages, err := s.retriever.Retrieve(ctx, standalone, scoped)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages failed: %w", err)
	}

	answer, err := s.synthesizer.SynthesizeStream(ctx, passages, question, history, onChunk)
	if err != nil {
		log.Printf("stream synthesis failed, returning degraded answer: %v", err)
		answer = apologyAnswer
		if chunkErr := onChunk(answer); chunkErr != nil {
			return nil, chunkErr
		}
	}

	citations := FormatCitations(passages)
	conversationID := s.persistTurn(ctx, input, question, answer, citations)

	return &AnswerResult{
		Role:           "assistant",
		Content:        answer,
		Citations:      citations,
		ConversationID: conversationID,
	}, nil
}

func (s *ChatService) ListConversations(userID uint) ([]model.Conversation, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.conversations.ListByUserID(userID)
}

// GetHistory returns a conversation's messages, served from the Redis
// cache when the cached copy is known clean.
func (s *ChatService) GetHistory(ctx context.Context, userID uint, conversationID string, limit int) ([]model.Message, error) {
	if userID == 0 || conversationID == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversations.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messages.ListByConversationID(conversationID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, conversationID, messages)
		}
	}
	return messages, nil
}

func validateAnswerInput(input AnswerInput) error {
	if input.UserID == 0 {
		return ErrUnauthorized
	}
	hasMessage := strings.TrimSpace(input.Message) != ""
	hasMessages := len(input.Messages) > 0
	if !hasMessage && !hasMessages {
		return fmt.Errorf("%w: message or messages is required", ErrInvalidInput)
	}
	if len(input.Message) > maxMessageLen {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, maxMessageLen)
	}
	if len(input.Messages) > maxMessages {
		return fmt.Errorf("%w: messages exceeds %d entries", ErrInvalidInput, maxMessages)
	}
	for i := range input.Messages {
		if len(input.Messages[i].Content) > maxMessageLen {
			return fmt.Errorf("%w: messages[%d] exceeds %d characters", ErrInvalidInput, i, maxMessageLen)
		}
	}
	if len(input.FolderIDs) > maxFolderIDs {
		return fmt.Errorf("%w: folder_ids exceeds %d entries", ErrInvalidInput, maxFolderIDs)
	}
	return nil
}

// questionAndHistory resolves the current question and bounded history,
// either from an inline messages array or from the stored conversation.
func (s *ChatService) questionAndHistory(input AnswerInput) (string, []ai.ChatMessage, error) {
	if input.ConversationID != "" {
		conversation, err := s.conversations.GetByIDAndUserID(input.ConversationID, input.UserID)
		if err != nil {
			return "", nil, err
		}
		if conversation == nil {
			return "", nil, ErrConversationNotFound
		}
	}

	if len(input.Messages) > 0 {
		last := input.Messages[len(input.Messages)-1]
		question := strings.TrimSpace(last.Content)
		if question == "" {
			return "", nil, fmt.Errorf("%w: last message is empty", ErrInvalidInput)
		}
		history := make([]ai.ChatMessage, 0, len(input.Messages)-1)
		for _, turn := range input.Messages[:len(input.Messages)-1] {
			role := turn.Role
			if role != "assistant" {
				role = "user"
			}
			history = append(history, ai.ChatMessage{Role: role, Content: turn.Content})
		}
		return question, history, nil
	}

	question := strings.TrimSpace(input.Message)
	if input.ConversationID == "" {
		return question, nil, nil
	}

	recent, err := s.messages.ListRecentByConversationID(input.ConversationID, s.maxContext)
	if err != nil {
		return "", nil, err
	}
	history := make([]ai.ChatMessage, 0, len(recent))
	for _, msg := range recent {
		role := msg.Role
		if role == "" {
			role = "user"
		}
		history = append(history, ai.ChatMessage{Role: role, Content: msg.Content})
	}
	return question, history, nil
}

// persistTurn saves both turns of the exchange best-effort: chat must
// keep working even when the persistence queue or database is down, so
// every failure here is logged and swallowed.
func (s *ChatService) persistTurn(ctx context.Context, input AnswerInput, question, answer string, citations []Citation) string {
	conversationID := input.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
		conversation := &model.Conversation{
			ID:     conversationID,
			UserID: input.UserID,
			Title:  truncateTitle(question),
		}
		if err := s.conversations.Create(conversation); err != nil {
			log.Printf("create conversation failed: %v", err)
		}
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, conversationID)
		_ = s.historyCache.DeleteHistory(ctx, conversationID)
	}

	now := time.Now()
	userTurn := model.Message{
		ConversationID: conversationID,
		UserID:         input.UserID,
		Role:           "user",
		Content:        question,
		CreatedAt:      now,
	}
	if err := s.publisher.Publish(ctx, userTurn); err != nil {
		log.Printf("enqueue user turn failed: %v", err)
	}

	citationsJSON := ""
	if len(citations) > 0 {
		if b, err := json.Marshal(citations); err == nil {
			citationsJSON = string(b)
		}
	}
	assistantTurn := model.Message{
		ConversationID: conversationID,
		UserID:         input.UserID,
		Role:           "assistant",
		Content:        answer,
		Citations:      citationsJSON,
		CreatedAt:      now.Add(time.Millisecond),
	}
	if err := s.publisher.Publish(ctx, assistantTurn); err != nil {
		log.Printf("enqueue assistant turn failed: %v", err)
	}

	if err := s.conversations.Touch(conversationID); err != nil {
		log.Printf("touch conversation failed: %v", err)
	}

	return conversationID
}

func truncateTitle(question string) string {
	runes := []rune(strings.TrimSpace(question))
	if len(runes) <= maxTitleLen {
		return string(runes)
	}
	return string(runes[:maxTitleLen])
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

// IsClientError reports whether err should map to a 4xx response.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrConversationNotFound) ||
		errors.Is(err, ErrFolderNotFound) ||
		errors.Is(err, ErrDocumentNotFound)
}
