package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/avgystin/practicalwork/internal/consumer"
	"github.com/avgystin/practicalwork/internal/domain"
	"github.com/avgystin/practicalwork/internal/stream"
)

type OrderDeleter interface {
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

// CancellationHandler deletes the order named by a cancellation event payload
// (the decimal order id). Deletion is idempotent, so redeliveries are safe.
type CancellationHandler struct {
	orders OrderDeleter
}

func NewCancellationHandler(orders OrderDeleter) *CancellationHandler {
	return &CancellationHandler{orders: orders}
}

func (h *CancellationHandler) Handle(ctx context.Context, payload string) (consumer.Outcome, error) {
	id, err := parseOrderID(payload)
	if err != nil {
		return consumer.OutcomeMalformed, err
	}

	deleted, err := h.orders.DeleteByID(ctx, id)
	if err != nil {
		return consumer.OutcomeFailed, fmt.Errorf("delete order %d: %w", id, err)
	}
	if !deleted {
		return consumer.OutcomeNotFound, nil
	}
	return consumer.OutcomeDone, nil
}

func parseOrderID(payload string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrMalformedEvent, payload)
	}
	return id, nil
}

// CancellationRequester publishes cancellation events for the consumer.
type CancellationRequester struct {
	publisher stream.Publisher
}

func NewCancellationRequester(publisher stream.Publisher) *CancellationRequester {
	return &CancellationRequester{publisher: publisher}
}

// RequestCancel enqueues the order for asynchronous deletion and returns the event ID.
func (r *CancellationRequester) RequestCancel(ctx context.Context, orderID int64) (string, error) {
	if orderID <= 0 {
		return "", domain.ErrInvalidID
	}
	id, err := r.publisher.Publish(ctx, strconv.FormatInt(orderID, 10))
	if err != nil {
		return "", fmt.Errorf("publish cancellation: %w", err)
	}
	return id, nil
}
