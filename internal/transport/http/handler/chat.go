package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type TurnRequest struct {
	Role    string `json:"role"`
	Content string `json:"content" binding:"required"`
}

// AnswerRequest accepts either a single message or a full messages
// array; the service validates that at least one is present.
type AnswerRequest struct {
	Message        string        `json:"message"`
	Messages       []TurnRequest `json:"messages" binding:"max=100,dive"`
	FolderIDs      []uint        `json:"folder_ids" binding:"max=50"`
	ConversationID string        `json:"conversation_id" binding:"max=36"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Answer(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Answer(c.Request.Context(), answerInput(userID, req))
	if err != nil {
		writeChatError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *ChatHandler) AnswerStream(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	result, err := h.chatService.AnswerStream(c.Request.Context(), answerInput(userID, req), func(chunk string) error {
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if _, writeErr := c.Writer.Write([]byte(fmt.Sprintf("event: error\ndata: %s\n\n", sanitizeSSE(err.Error())))); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + sanitizeSSE(doneEvent(result)) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversations, err := h.chatService.ListConversations(userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list conversations failed")
		}
		return
	}

	response.OK(c, conversations)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := strings.TrimSpace(c.Query("conversation_id"))
	if conversationID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid conversation_id")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), userID, conversationID, limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		}
		return
	}

	response.OK(c, history)
}

func answerInput(userID uint, req AnswerRequest) app.AnswerInput {
	turns := make([]app.TurnInput, len(req.Messages))
	for i := range req.Messages {
		turns[i] = app.TurnInput{Role: req.Messages[i].Role, Content: req.Messages[i].Content}
	}
	return app.AnswerInput{
		UserID:         userID,
		Message:        req.Message,
		Messages:       turns,
		FolderIDs:      req.FolderIDs,
		ConversationID: req.ConversationID,
	}
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, response.CodeRateLimited, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
	case errors.Is(err, app.ErrConversationNotFound):
		response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat failed")
	}
}

// doneEvent carries the turn metadata the stream itself cannot: the
// conversation id and the citations for the streamed answer.
func doneEvent(result *app.AnswerResult) string {
	payload, err := json.Marshal(gin.H{
		"conversation_id": result.ConversationID,
		"citations":       result.Citations,
	})
	if err != nil {
		return result.ConversationID
	}
	return string(payload)
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
