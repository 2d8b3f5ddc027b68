// Package chat is the scripted study assistant.
package chat

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

const Greeting = "Bonjour ! Je suis votre assistant PermisConnect. Comment puis-je vous aider avec vos questions sur le permis de conduire ?"

// Replies are picked at random for each user message.
var Replies = []string{
	"C'est une excellente question ! Pour le code de la route, il est important de bien connaître les règles de priorité.",
	"Je vous recommande de réviser ce point dans votre manuel. Voulez-vous que je vous explique davantage ?",
	"Cette question revient souvent dans l'examen. La réponse dépend du contexte de circulation.",
	"N'hésitez pas à me poser d'autres questions sur le permis de conduire !",
	"Pour cette situation, vous devez respecter la signalisation en place et adapter votre vitesse.",
}

var ErrEmptyMessage = errors.New("chat: empty message")

type Message struct {
	ID     int64     `json:"id"`
	Text   string    `json:"text"`
	Sender Sender    `json:"sender"`
	At     time.Time `json:"timestamp"`
}

// Assistant keeps one conversation.
type Assistant struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	now      func() time.Time
	messages []Message
	nextID   int64
}

type Option func(*Assistant)

// WithRand makes reply selection deterministic.
func WithRand(r *rand.Rand) Option {
	return func(a *Assistant) { a.rnd = r }
}

func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// New starts a conversation with the greeting.
func New(opts ...Option) *Assistant {
	a := &Assistant{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.reset()
	return a
}

// Send records the user's message and returns the assistant's reply.
func (a *Assistant) Send(text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.append(SenderUser, text)
	return a.append(SenderAI, Replies[a.rnd.Intn(len(Replies))]), nil
}

// Transcript returns every message so far, oldest first.
func (a *Assistant) Transcript() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Message(nil), a.messages...)
}

// Reset clears the conversation back to the greeting.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}

func (a *Assistant) reset() {
	a.messages = nil
	a.nextID = 0
	a.append(SenderAI, Greeting)
}

func (a *Assistant) append(from Sender, text string) Message {
	a.nextID++
	m := Message{ID: a.nextID, Text: text, Sender: from, At: a.now()}
	a.messages = append(a.messages, m)
	return m
}
