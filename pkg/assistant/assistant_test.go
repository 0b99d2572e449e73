package assistant

import (
	"context"
	"net/http"
	"testing"

	"github.com/cuemby/carebook/pkg/apitest"
	"github.com/cuemby/carebook/pkg/client"
	"github.com/cuemby/carebook/pkg/gateway"
	"github.com/cuemby/carebook/pkg/session"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversation(t *testing.T) (*Conversation, *apitest.Server) {
	t.Helper()
	api := apitest.New(t)
	gw, err := gateway.New(api.URL(), session.NewMemoryStore())
	require.NoError(t, err)
	return NewConversation(client.NewClient(gw)), api
}

func TestConversationStartsWithGreeting(t *testing.T) {
	c, _ := newConversation(t)
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderBot, msgs[0].Sender)
	assert.Equal(t, Greeting, msgs[0].Text)
}

func TestSendFindsDoctors(t *testing.T) {
	c, api := newConversation(t)
	api.AddUser(types.User{
		Email: "heart@example.com", FirstName: "Amy", LastName: "Chen", Role: types.RoleProvider,
		ProviderProfile: &types.ProviderProfile{Specialization: "Cardiology"},
	}, "secret1")

	reply, err := c.Send(context.Background(), "I need a cardiologist")
	require.NoError(t, err)
	require.Len(t, reply.Doctors, 1)
	assert.Equal(t, "Dr. Chen", reply.Doctors[0].Name)
	assert.Contains(t, reply.Text, "Dr. Chen (Cardiology)")

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, SenderUser, msgs[1].Sender)
	assert.Equal(t, "I need a cardiologist", msgs[1].Text)
	assert.Equal(t, SenderBot, msgs[2].Sender)
}

func TestSendIgnoresBlankInput(t *testing.T) {
	c, api := newConversation(t)

	_, err := c.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Len(t, c.Messages(), 1)
	assert.Zero(t, api.Calls("POST /chatbot/chat/"))
}

func TestSendFailureApologizes(t *testing.T) {
	c, api := newConversation(t)
	api.FailNext("POST /chatbot/chat/", http.StatusInternalServerError, "")

	reply, err := c.Send(context.Background(), "skin rash")
	require.NoError(t, err)
	assert.Equal(t, UnavailableText, reply.Text)
	assert.Len(t, c.Messages(), 3)
}

type emptyReply struct{}

func (emptyReply) Chat(ctx context.Context, message string) (*types.ChatReply, error) {
	return &types.ChatReply{}, nil
}

func TestSendEmptyReplyFallsBack(t *testing.T) {
	c := NewConversation(emptyReply{})

	reply, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply.Text)
}
