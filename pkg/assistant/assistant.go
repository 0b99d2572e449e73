package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/metrics"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/rs/zerolog"
)

// Canned bot messages
const (
	Greeting        = "Hi there! I'm your AI health assistant. Ask me to find a doctor, e.g., 'I need a cardiologist'."
	FallbackReply   = "I found some doctors for you."
	UnavailableText = "Sorry, I'm having trouble connecting to the server."
)

// ErrEmptyMessage is returned for blank input; nothing is sent
var ErrEmptyMessage = errors.New("message is empty")

// Sender is who wrote a message
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry in the conversation
type Message struct {
	Sender  Sender
	Text    string
	Doctors []types.DoctorSuggestion
	At      time.Time
}

// API sends a chat message to the backend
type API interface {
	Chat(ctx context.Context, message string) (*types.ChatReply, error)
}

// Conversation is a chat session with the assistant. It starts with a
// greeting from the bot.
type Conversation struct {
	api    API
	logger zerolog.Logger

	mu       sync.Mutex
	messages []Message
}

// NewConversation starts a conversation
func NewConversation(api API) *Conversation {
	return &Conversation{
		api:      api,
		logger:   log.WithComponent("assistant"),
		messages: []Message{{Sender: SenderBot, Text: Greeting, At: time.Now()}},
	}
}

// Send posts text and appends both it and the bot's answer. A backend
// failure does not return an error; it becomes an apology from the bot.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	c.append(Message{Sender: SenderUser, Text: text, At: time.Now()})

	reply := Message{Sender: SenderBot}
	resp, err := c.api.Chat(ctx, text)
	switch {
	case err != nil:
		metrics.AssistantMessagesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		c.logger.Warn().Err(err).Msg("chat request failed")
		reply.Text = UnavailableText
	default:
		metrics.AssistantMessagesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		reply.Text = resp.Message
		reply.Doctors = resp.Doctors
		if reply.Text == "" {
			reply.Text = FallbackReply
		}
	}

	reply.At = time.Now()
	c.append(reply)
	return reply, nil
}

// Messages returns the conversation so far, oldest first
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) append(m Message) {
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
}
