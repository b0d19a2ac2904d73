package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avgystin/practicalwork/internal/app"
	"github.com/avgystin/practicalwork/internal/catalog"
	"github.com/avgystin/practicalwork/internal/domain"
)

type OrderService interface {
	Create(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	GetByID(ctx context.Context, id int64, expectedProduct string) (domain.Order, error)
	Products() []catalog.Product
}

type OrderCanceller interface {
	RequestCancel(ctx context.Context, orderID int64) (string, error)
}

// OrderCounter is notified of every persisted order.
type OrderCounter interface {
	OrderCreated(product string)
}

// HandleGetProducts lists the catalog as a name to unit price object.
func HandleGetProducts(orders OrderService, delays Delayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		delays.Apply(r.Context(), app.OpOrderGetProducts)

		writeJSON(w, http.StatusOK, productPrices(orders.Products()))
	}
}

// productPrices encodes as a name to price object keeping catalog order.
type productPrices []catalog.Product

func (pp productPrices) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range pp {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(p.Price, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type createOrderRequest struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type orderResponse struct {
	OrderID     int64     `json:"order_id"`
	OrderUUID   string    `json:"order_uuid"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	TotalPrice  int64     `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}

func newOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		OrderID:     o.ID,
		OrderUUID:   o.ExternalID,
		ProductName: o.ProductName,
		Quantity:    o.Quantity,
		TotalPrice:  o.TotalPrice,
		CreatedAt:   o.CreatedAt,
	}
}

// HandleCreateOrder prices and stores an order for the caller's session.
func HandleCreateOrder(orders OrderService, delays Delayer, counter OrderCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ProductName == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "product_name is required")
			return
		}

		delays.Apply(r.Context(), app.OpOrderCreate)

		order, err := orders.Create(r.Context(), app.CreateOrderInput{
			SessionToken: sessionFromContext(r.Context()),
			ProductName:  req.ProductName,
			Quantity:     req.Quantity,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidQuantity):
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
			case errors.Is(err, domain.ErrProductNotFound):
				writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
			default:
				writeStoreError(w, err)
			}
			return
		}

		if counter != nil {
			counter.OrderCreated(order.ProductName)
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

// HandleGetOrder returns an order when product_name matches the stored one.
func HandleGetOrder(orders OrderService, delays Delayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		id, err := strconv.ParseInt(q.Get("order_id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidID, "order_id must be a positive integer")
			return
		}
		product := q.Get("product_name")
		if product == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "product_name is required")
			return
		}

		delays.Apply(r.Context(), app.OpOrderGetOrder)

		order, err := orders.GetByID(r.Context(), id, product)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrOrderNotFound):
				writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
			case errors.Is(err, domain.ErrProductMismatch):
				writeError(w, http.StatusBadRequest, codeProductMismatch, err.Error())
			default:
				writeStoreError(w, err)
			}
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

type cancelOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

// HandleCancelOrder enqueues a cancellation event; deletion happens
// asynchronously in the cancellation consumer.
func HandleCancelOrder(canceller OrderCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelOrderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		eventID, err := canceller.RequestCancel(r.Context(), req.OrderID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidID) {
				writeError(w, http.StatusBadRequest, codeInvalidID, "order_id must be a positive integer")
				return
			}
			writeError(w, http.StatusServiceUnavailable, codeStreamUnavailable, "cancellation could not be queued")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"order_id": req.OrderID,
			"event_id": eventID,
		})
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrTransientStore) {
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "store temporarily unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
