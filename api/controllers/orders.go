package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aakanshaa0/vestra/api/responses"
	"github.com/aakanshaa0/vestra/api/validators"
	ordersvc "github.com/aakanshaa0/vestra/internal/orders"
	"github.com/aakanshaa0/vestra/pkg/db/models"
	"github.com/aakanshaa0/vestra/pkg/enums"
	pkgerrors "github.com/aakanshaa0/vestra/pkg/errors"
	"github.com/aakanshaa0/vestra/pkg/logger"
	"github.com/aakanshaa0/vestra/pkg/types"
)

type createOrderRequest struct {
	ShippingAddress types.Address    `json:"shipping_address"`
	PaymentMethod   string           `json:"payment_method" validate:"required"`
	// Total is the amount the storefront displayed at checkout. The server
	// recomputes it and rejects the order on any mismatch.
	Total *decimal.Decimal `json:"total"`
}

type orderItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Variant   string          `json:"variant"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Image     *string         `json:"image,omitempty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	TransactionID   string              `json:"transaction_id"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	PaymentMethod   string              `json:"payment_method"`
	Currency        string              `json:"currency"`
	ShippingAddress types.Address       `json:"shipping_address"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	DeliveryFee     decimal.Decimal     `json:"delivery_fee"`
	Total           decimal.Decimal     `json:"total"`
	PaymentIntentID *string             `json:"payment_intent_id,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Variant:   item.Variant,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
			LineTotal: item.LineTotal,
		})
	}

	return orderResponse{
		ID:              order.ID,
		TransactionID:   order.TransactionID,
		Status:          order.Status.String(),
		PaymentStatus:   order.PaymentStatus.String(),
		PaymentMethod:   order.PaymentMethod.String(),
		Currency:        order.Currency,
		ShippingAddress: order.ShippingAddress,
		Subtotal:        order.Subtotal,
		DeliveryFee:     order.DeliveryFee,
		Total:           order.Total,
		PaymentIntentID: order.PaymentIntentID,
		PaidAt:          order.PaidAt,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}

func newOrderListResponse(orders []models.Order, next string) orderListResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return orderListResponse{Orders: out, NextCursor: next}
}

func listParamsFromQuery(r *http.Request) (ordersvc.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
	if err != nil {
		return ordersvc.ListParams{}, err
	}
	return ordersvc.ListParams{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

// OrderCreate runs checkout from the caller's server-held cart.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Create(r.Context(), ordersvc.CreateInput{
			BuyerID:         buyerID,
			ShippingAddress: body.ShippingAddress,
			PaymentMethod:   method,
			ClientTotal:     body.Total,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// OrderList pages through the caller's orders newest-first.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParamsFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, next, err := svc.ListForBuyer(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListResponse(orders, next))
	}
}

// OrderDetail loads one order owned by the caller.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetForBuyer(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
