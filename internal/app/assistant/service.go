package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/peraluna/trip-planner-api/internal/app/trips"
	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/assistant"
)

const (
	DefaultMaxTokens = 1000

	// KickoffTurn stands in for the user when a conversation starts without any turns.
	KickoffTurn = "[SYSTEM: User just started planning their trip. Give them a warm, personalized greeting! " +
		"Share 1-2 interesting facts about their destination and ask a discovery question based on their " +
		"interests to understand what kind of experience they want.]"

	FallbackGreeting = "Hi! I'm Luna, your travel guide. I'd love to help you plan an amazing trip! " +
		"What kind of experience are you hoping for?"
	emptyGreeting = "Hi! I'm Luna, excited to help you plan your trip!"
	ErrorReply    = "I apologize, but I'm having trouble connecting right now. Please try again in a moment."
)

// Request outcomes reported to the Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Trips is the part of the trip service the assistant depends on.
type Trips interface {
	GetContext(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.TripContext, error)
	AddItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, in trips.AddItemInput) (domain.PlannedItem, error)
}

// Recorder receives one outcome per chat request. *metrics.Metrics satisfies it.
type Recorder interface {
	AssistantRequest(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) AssistantRequest(string) {}

type ServiceOption func(*Service)

func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithLogger(l logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMaxTokens(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

type Service struct {
	trips     Trips
	provider  assistant.Provider
	metrics   Recorder
	log       logrus.FieldLogger
	maxTokens int64
}

// NewService wires the assistant. A nil provider is valid: every chat then degrades to
// the canned replies.
func NewService(t Trips, p assistant.Provider, opts ...ServiceOption) *Service {
	s := &Service{
		trips:     t,
		provider:  p,
		metrics:   noopRecorder{},
		log:       logrus.StandardLogger(),
		maxTokens: DefaultMaxTokens,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Reply is the complete assistant answer for one chat request.
type Reply struct {
	Content string
	Message Message
	// Offline is set when the provider could not be used and a canned reply was sent.
	Offline bool
	// Truncated is set when the provider failed after part of the reply was streamed.
	Truncated bool
}

// Chat streams Luna's answer to turns through onDelta and returns the full reply.
// An empty conversation starts with the kickoff turn. Provider failures never surface as
// errors; the caller gets a canned reply instead. Errors returned by onDelta abort the
// request and are returned unchanged.
func (s *Service) Chat(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, turns []assistant.Turn, onDelta func(string) error) (Reply, error) {
	tc, err := s.trips.GetContext(ctx, owner, tripID)
	if err != nil {
		return Reply{}, err
	}
	kickoff := len(turns) == 0
	if kickoff {
		turns = []assistant.Turn{{Role: assistant.RoleUser, Content: KickoffTurn}}
	}
	if err := validateTurns(turns); err != nil {
		return Reply{}, err
	}

	log := s.log.WithFields(logrus.Fields{"tripId": tripID, "turns": len(turns)})
	if s.provider == nil {
		return s.fallback(kickoff, onDelta)
	}

	var (
		content strings.Builder
		sinkErr error
	)
	err = s.provider.Stream(ctx, assistant.Request{
		SystemPrompt: BuildSystemPrompt(&tc),
		Turns:        turns,
		MaxTokens:    s.maxTokens,
	}, func(delta string) error {
		if delta == "" {
			return nil
		}
		if err := onDelta(delta); err != nil {
			sinkErr = err
			return err
		}
		content.WriteString(delta)
		return nil
	})
	switch {
	case sinkErr != nil:
		s.metrics.AssistantRequest(OutcomeError)
		return Reply{}, sinkErr
	case err != nil && content.Len() == 0:
		log.WithError(err).Warn("assistant provider failed; sending canned reply")
		return s.fallback(kickoff, onDelta)
	case err != nil:
		log.WithError(err).Warn("assistant stream interrupted")
		s.metrics.AssistantRequest(OutcomeError)
		text := content.String()
		return Reply{Content: text, Message: ParseMessage(text), Truncated: true}, nil
	}

	if content.Len() == 0 && kickoff {
		if err := onDelta(emptyGreeting); err != nil {
			return Reply{}, err
		}
		content.WriteString(emptyGreeting)
	}
	s.metrics.AssistantRequest(OutcomeOK)
	text := content.String()
	return Reply{Content: text, Message: ParseMessage(text)}, nil
}

func (s *Service) fallback(kickoff bool, onDelta func(string) error) (Reply, error) {
	text := ErrorReply
	if kickoff {
		text = FallbackGreeting
	}
	s.metrics.AssistantRequest(OutcomeFallback)
	if err := onDelta(text); err != nil {
		return Reply{}, err
	}
	return Reply{Content: text, Message: Message{Before: text}, Offline: true}, nil
}

func validateTurns(turns []assistant.Turn) error {
	ve := map[string]any{}
	for i, t := range turns {
		if t.Role != assistant.RoleUser && t.Role != assistant.RoleAssistant {
			ve[fmt.Sprintf("messages[%d].role", i)] = "must be one of user, assistant"
		}
		if strings.TrimSpace(t.Content) == "" {
			ve[fmt.Sprintf("messages[%d].content", i)] = "must be non-empty"
		}
	}
	if len(ve) > 0 {
		return &trips.Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid conversation", Details: ve}
	}
	return nil
}

// Selection is the item added for an option together with the chat line that announces it.
type Selection struct {
	Item    domain.PlannedItem
	Message string
}

// Select adds opt to the trip as a tentative item. The provider is the first word of the
// title, the price is parsed from the display string and hotels keep their night count.
func (s *Service) Select(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, opt Option) (Selection, error) {
	in := trips.AddItemInput{
		Type:     opt.Type,
		Provider: providerFromTitle(opt.Title),
		Title:    opt.Title,
		Price:    float64(domain.ParsePrice(opt.Price)),
	}
	if opt.Type.Valid() {
		in.Details = domain.NewDetails(opt.Type, opt.Details)
	}
	if sub := strings.TrimSpace(opt.Subtitle); sub != "" {
		in.Subtitle = &sub
	}
	if tag := strings.TrimSpace(opt.Tag); tag != "" {
		in.Tag = &tag
	}
	if opt.Type == domain.ItemTypeHotel && opt.Nights != nil && *opt.Nights > 0 {
		n := *opt.Nights
		in.Nights = &n
	}

	it, err := s.trips.AddItem(ctx, owner, tripID, in)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Item: it, Message: SelectionMessage(opt)}, nil
}

// SelectionMessage is the user turn sent after picking opt, e.g.
// "I'll take the Memmo Alfama (Best Value) for 3 nights".
func SelectionMessage(opt Option) string {
	label := opt.Tag
	if label == "" {
		label = string(opt.Type)
	}
	msg := fmt.Sprintf("I'll take the %s (%s)", opt.Title, label)
	if opt.Type == domain.ItemTypeHotel && opt.Nights != nil && *opt.Nights > 0 {
		msg += fmt.Sprintf(" for %d nights", *opt.Nights)
	}
	return msg
}

func providerFromTitle(title string) string {
	if f := strings.Fields(title); len(f) > 0 {
		return f[0]
	}
	return title
}

