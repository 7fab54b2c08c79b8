package autoreply

import (
	"context"
	"math/rand"
	"regexp"
	"strings"

	"github.com/chatrelay/backend/internal/domain/messaging"
)

var (
	greetingPattern = regexp.MustCompile(`\b(hi|hello|hey|greetings)\b`)
	helpPattern     = regexp.MustCompile(`\b(help|support|assist)\b`)
	thanksPattern   = regexp.MustCompile(`\b(thank|thanks|thx)\b`)
	goodbyePattern  = regexp.MustCompile(`\b(bye|goodbye|see you|later)\b`)
	infoPattern     = regexp.MustCompile(`\b(what|when|where|how|why|who)\b`)
	orderPattern    = regexp.MustCompile(`\b(order|booking|reservation|purchase)\b`)
)

var (
	greetingReplies = []string{
		"Hello! How can I assist you today?",
		"Hi there! What can I help you with?",
		"Hey! Great to hear from you. What do you need?",
		"Hello! I'm here to help. What's on your mind?",
	}
	questionReplies = []string{
		"That's a great question! Let me help you with that.",
		"I understand your question. Here's what I can tell you...",
		"Good question! Based on what you're asking...",
		"Let me answer that for you.",
	}
	thanksReplies = []string{
		"You're welcome! Is there anything else I can help with?",
		"Happy to help! Let me know if you need anything else.",
		"My pleasure! Feel free to reach out anytime.",
		"Glad I could help! Have a great day!",
	}
	goodbyeReplies = []string{
		"Goodbye! Have a wonderful day!",
		"See you later! Take care!",
		"Bye! Feel free to message anytime.",
		"Have a great day! Talk to you soon!",
	}
	infoReplies = []string{
		"Let me provide you with that information...",
		"Based on your inquiry, here's what I found...",
		"That's a good question. Here's the answer...",
		"I can help you with that. Here's what you need to know...",
	}
	defaultReplies = []string{
		"Thanks for your message! I'm here to assist you.",
		"I received your message. How can I help you today?",
		"Got it! Is there anything specific you'd like to know?",
		"Thanks for reaching out! What would you like to discuss?",
		"I'm listening! What can I do for you?",
	}
)

const (
	helpReply  = "I'm here to help! You can ask me questions about our services, check order status, or get general information. What would you like to know?"
	orderReply = "I can help you with that! Could you provide me with your order number or more details?"
)

// MockGenerator answers from canned keyword responses. It stands in for the
// external chat service in development and tests.
type MockGenerator struct{}

// NewMockGenerator creates a keyword-based reply generator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate picks a canned reply matching the inbound message
func (g *MockGenerator) Generate(ctx context.Context, req messaging.ReplyRequest) (*messaging.ReplyResult, error) {
	body := strings.ToLower(req.Body)

	var reply string
	switch {
	case greetingPattern.MatchString(body):
		reply = randomChoice(greetingReplies)
	case strings.Contains(body, "?"):
		reply = randomChoice(questionReplies)
	case helpPattern.MatchString(body):
		reply = helpReply
	case thanksPattern.MatchString(body):
		reply = randomChoice(thanksReplies)
	case goodbyePattern.MatchString(body):
		reply = randomChoice(goodbyeReplies)
	case infoPattern.MatchString(body):
		reply = randomChoice(infoReplies)
	case orderPattern.MatchString(body):
		reply = orderReply
	default:
		reply = randomChoice(defaultReplies)
	}

	return &messaging.ReplyResult{Body: reply, Backend: "mock"}, nil
}

func randomChoice(options []string) string {
	return options[rand.Intn(len(options))]
}

// Ensure MockGenerator implements ReplyGenerator
var _ messaging.ReplyGenerator = (*MockGenerator)(nil)
