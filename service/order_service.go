package service

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"predex/domain/orderbook"
	"predex/domain/pricing"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("duplicate order id")
)

const (
	ProtocolStandard   = "standard"
	ProtocolRestricted = "restricted"
)

// PlaceOrderRequest is an order as submitted by a client.
//
// With the standard protocol Side and Action name the contract side and
// direction. With the restricted protocol Side is ignored and Action is
// "buy" or "sell" from the YES perspective.
type PlaceOrderRequest struct {
	OrderID  string `json:"orderId" validate:"omitempty,max=64"`
	UserID   string `json:"userId" validate:"required,max=64"`
	Protocol string `json:"protocol" validate:"omitempty,oneof=standard restricted"`
	Side     string `json:"side" validate:"required_unless=Protocol restricted"`
	Action   string `json:"action" validate:"required"`
	Price    int    `json:"price" validate:"min=1,max=99"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

/*
OrderService is the only write entry point into the book.

Validation, protocol conversion and id assignment happen here; the book
itself only ever sees well-formed orders.
*/
type OrderService struct {
	book     *orderbook.OrderBook
	validate *validator.Validate
	logger   *log.Entry
}

func NewOrderService(book *orderbook.OrderBook) *OrderService {
	return &OrderService{
		book:     book,
		validate: validator.New(),
		logger: log.WithFields(log.Fields{
			"component": "order_service",
			"ticker":    book.Ticker(),
		}),
	}
}

func (s *OrderService) Book() *orderbook.OrderBook { return s.book }

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// PlaceOrder validates req, converts it to its buy-only form and rests it
// in the book. A missing order id is replaced by a generated one.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*orderbook.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, invalid(errors.Newf("%s", describeValidation(err)))
	}

	conv, side, action, err := convert(req)
	if err != nil {
		return nil, invalid(err)
	}

	id := req.OrderID
	if id == "" {
		id = uuid.NewString()
	}
	o, err := orderbook.NewOrder(orderbook.OrderParams{
		ID:       id,
		UserID:   req.UserID,
		Side:     conv.Side,
		Action:   conv.Action,
		Price:    conv.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		return nil, invalid(err)
	}

	if !s.book.AddOrder(o) {
		return nil, errors.Wrapf(ErrDuplicateOrder, "order %s", id)
	}

	s.logger.WithFields(log.Fields{
		"order_id": id,
		"user_id":  req.UserID,
		"seq":      o.Seq(),
		"qty":      req.Quantity,
	}).Info(conv.Describe(side, action, req.Price))
	return o, nil
}

// CancelOrder removes a resting order.
func (s *OrderService) CancelOrder(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return invalid(errors.New("order id is required"))
	}
	if !s.book.CancelOrder(id) {
		return errors.Wrapf(ErrOrderNotFound, "order %s", id)
	}
	s.logger.WithField("order_id", id).Info("order canceled")
	return nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

func (s *OrderService) GetOrder(id string) (*orderbook.Order, error) {
	o, ok := s.book.GetOrder(id)
	if !ok {
		return nil, errors.Wrapf(ErrOrderNotFound, "order %s", id)
	}
	return o, nil
}

func (s *OrderService) Snapshot(depth int) orderbook.Snapshot {
	return s.book.Snapshot(depth)
}

func (s *OrderService) MarketView(depth int) orderbook.MarketView {
	return s.book.MarketView(depth)
}

//
// ──────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────
//

// convert returns the buy-only form of req together with the side and
// action the client expressed, for logging.
func convert(req PlaceOrderRequest) (pricing.ConvertedOrder, pricing.Side, pricing.Action, error) {
	if req.Protocol == ProtocolRestricted {
		conv, err := pricing.FromRestrictedProtocol(req.Action, req.Price)
		if err != nil {
			return pricing.ConvertedOrder{}, 0, 0, err
		}
		action := pricing.Buy
		if conv.WasConverted {
			action = pricing.Sell
		}
		return conv, pricing.Yes, action, nil
	}

	side, err := pricing.ParseSide(req.Side)
	if err != nil {
		return pricing.ConvertedOrder{}, 0, 0, err
	}
	action, err := pricing.ParseAction(req.Action)
	if err != nil {
		return pricing.ConvertedOrder{}, 0, 0, err
	}
	conv, err := pricing.ToBuyOnly(side, action, req.Price)
	return conv, side, action, err
}

func invalid(err error) error {
	return errors.Mark(errors.Wrap(err, "invalid order request"), ErrInvalidRequest)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required", "required_unless":
			msgs = append(msgs, field+" is required")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
