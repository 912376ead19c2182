package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"docuchat/internal/ai"
)

// historyTurnLimit bounds how much conversation the rewrite prompt
// carries. Older turns rarely change what a follow-up refers to.
const historyTurnLimit = 6

const contextualizeInstruction = `Given the conversation history below, rewrite the final user question into a standalone search query. Resolve pronouns and references ("it", "that", "the second one") against the history. Do not answer the question. If the question is already standalone, return it unchanged. Reply with the rewritten query only.`

// echoedPrefixes are instruction fragments weaker models sometimes echo
// back in front of the rewritten query.
var echoedPrefixes = []string{
	"standalone search query:",
	"standalone query:",
	"rewritten query:",
	"rewritten question:",
	"query:",
}

// Contextualizer rewrites a conversational follow-up into a standalone
// search query so retrieval does not depend on chat context.
type Contextualizer struct {
	client GenerationClient
	cfg    ai.ChatConfig
}

func NewContextualizer(client GenerationClient, cfg ai.ChatConfig) *Contextualizer {
	return &Contextualizer{client: client, cfg: cfg}
}

// Rewrite returns the standalone form of question. With no history
// there is nothing to resolve, so the question passes through without a
// generation call. A generation failure also returns the question
// unchanged: a degraded search beats a failed turn.
func (c *Contextualizer) Rewrite(ctx context.Context, question string, history []ai.ChatMessage) string {
	if len(history) == 0 {
		return question
	}

	bounded := history
	if len(bounded) > historyTurnLimit {
		bounded = bounded[len(bounded)-historyTurnLimit:]
	}

	var b strings.Builder
	for _, turn := range bounded {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "\nFinal user question: %s", question)

	messages := []ai.ChatMessage{
		{Role: "system", Content: contextualizeInstruction},
		{Role: "user", Content: b.String()},
	}

	rewritten, err := c.client.Complete(ctx, c.cfg, messages)
	if err != nil {
		log.Printf("contextualize failed, using original question: %v", err)
		return question
	}

	rewritten = stripEchoedPrefix(strings.TrimSpace(rewritten))
	if rewritten == "" {
		return question
	}
	return rewritten
}

func stripEchoedPrefix(s string) string {
	lower := strings.ToLower(s)
	for _, prefix := range echoedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	return strings.Trim(s, `"`)
}
