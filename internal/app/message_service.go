package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/avgystin/practicalwork/internal/clock"
	"github.com/avgystin/practicalwork/internal/consumer"
	"github.com/avgystin/practicalwork/internal/domain"
	"github.com/avgystin/practicalwork/internal/stream"
)

type MessageStore interface {
	SaveMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
}

// MessageService publishes request audit records to the posted-messages
// stream; MessageArchiver persists them on the consuming side.
type MessageService struct {
	publisher stream.Publisher
	clock     clock.Clock
}

func NewMessageService(publisher stream.Publisher, clk clock.Clock) *MessageService {
	return &MessageService{publisher: publisher, clock: clk}
}

type PostMessageInput struct {
	MsgID  string
	Method string
	URI    string
}

type postedMessage struct {
	MsgID     string `json:"msg_id"`
	Timestamp string `json:"timestamp"`
	Method    string `json:"method"`
	URI       string `json:"uri"`
}

// PostMessage publishes the audit record and returns the stream event ID.
func (s *MessageService) PostMessage(ctx context.Context, in PostMessageInput) (string, error) {
	payload, err := json.Marshal(postedMessage{
		MsgID:     in.MsgID,
		Timestamp: strconv.FormatInt(s.clock.Now().Unix(), 10),
		Method:    in.Method,
		URI:       in.URI,
	})
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	id, err := s.publisher.Publish(ctx, string(payload))
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// MessageArchiver stores each posted-message payload verbatim.
type MessageArchiver struct {
	store MessageStore
	clock clock.Clock
}

func NewMessageArchiver(store MessageStore, clk clock.Clock) *MessageArchiver {
	return &MessageArchiver{store: store, clock: clk}
}

func (a *MessageArchiver) Handle(ctx context.Context, payload string) (consumer.Outcome, error) {
	if strings.TrimSpace(payload) == "" {
		return consumer.OutcomeMalformed, fmt.Errorf("%w: empty message", domain.ErrMalformedEvent)
	}
	if _, err := a.store.SaveMessage(ctx, domain.Message{
		Content:   payload,
		CreatedAt: a.clock.Now(),
	}); err != nil {
		return consumer.OutcomeFailed, fmt.Errorf("save message: %w", err)
	}
	return consumer.OutcomeDone, nil
}
