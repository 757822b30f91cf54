package grpcserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"predex/domain/orderbook"
	"predex/service"
)

// Server adapts OrderService to gRPC.
type Server struct {
	svc          *service.OrderService
	defaultDepth int
}

var _ OrderServiceServer = (*Server)(nil)

// NewServer serves svc. Depth queries without a depth use defaultDepth.
func NewServer(svc *service.OrderService, defaultDepth int) *Server {
	return &Server{svc: svc, defaultDepth: defaultDepth}
}

type orderIDRequest struct {
	OrderID string `json:"orderId"`
}

type depthRequest struct {
	Depth int `json:"depth"`
}

// -------------------- Commands --------------------

// PlaceOrder takes {orderId?, userId, protocol?, side, action, price,
// quantity} and returns the resting order.
func (s *Server) PlaceOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req service.PlaceOrderRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	o, err := s.svc.PlaceOrder(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(orderFields(o))
}

// CancelOrder takes {orderId}.
func (s *Server) CancelOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orderIDRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if err := s.svc.CancelOrder(ctx, req.OrderID); err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"orderId": req.OrderID, "status": "canceled"})
}

// -------------------- Queries --------------------

// GetOrder takes {orderId}.
func (s *Server) GetOrder(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orderIDRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	o, err := s.svc.GetOrder(req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(orderFields(o))
}

// GetSnapshot takes {depth?} and returns {ticker, version, bids, asks}.
func (s *Server) GetSnapshot(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	depth, err := s.depth(in)
	if err != nil {
		return nil, err
	}
	snap := s.svc.Snapshot(depth)
	return encode(map[string]any{
		"ticker":  snap.Ticker,
		"version": snap.Version,
		"bids":    levelList(snap.Bids),
		"asks":    levelList(snap.Asks),
	})
}

// GetMarketView takes {depth?} and returns {ticker, version, yes, no}.
func (s *Server) GetMarketView(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	depth, err := s.depth(in)
	if err != nil {
		return nil, err
	}
	view := s.svc.MarketView(depth)
	return encode(map[string]any{
		"ticker":  view.Ticker,
		"version": view.Version,
		"yes":     levelList(view.Yes),
		"no":      levelList(view.No),
	})
}

func (s *Server) depth(in *structpb.Struct) (int, error) {
	var req depthRequest
	if err := decode(in, &req); err != nil {
		return 0, err
	}
	switch {
	case req.Depth < 0:
		return 0, status.Errorf(codes.InvalidArgument, "depth must not be negative, got %d", req.Depth)
	case req.Depth == 0:
		return s.defaultDepth, nil
	}
	return req.Depth, nil
}

// -------------------- Interceptors --------------------

// LoggingInterceptor logs every call with its duration and status code.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	entry := log.WithFields(log.Fields{
		"component": "grpc",
		"method":    info.FullMethod,
		"code":      status.Code(err).String(),
		"took":      time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Warn("rpc failed")
	} else {
		entry.Debug("rpc served")
	}
	return resp, err
}

// -------------------- Converters --------------------

func decode(in *structpb.Struct, out any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

func orderFields(o *orderbook.Order) map[string]any {
	ladder := "ask"
	if o.IsNormalizedBuy() {
		ladder = "bid"
	}
	return map[string]any{
		"orderId":         o.ID(),
		"userId":          o.UserID(),
		"side":            o.Side().String(),
		"action":          o.Action().String(),
		"price":           o.Price(),
		"quantity":        o.Quantity(),
		"remaining":       o.Remaining(),
		"seq":             o.Seq(),
		"normalizedPrice": o.NormalizedPrice(),
		"ladder":          ladder,
		"createdAt":       o.CreatedAt().UTC().Format(time.RFC3339Nano),
	}
}

func levelList(levels []orderbook.Level) []any {
	out := make([]any, 0, len(levels))
	for _, l := range levels {
		out = append(out, map[string]any{"price": l.Price, "quantity": l.Quantity})
	}
	return out
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateOrder):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
