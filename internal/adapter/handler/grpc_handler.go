package handler

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/grpc"

	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/core/service"
)

const (
	cartServiceName = "cartstore.v1.CartService"
	watchBuffer     = 16
)

type GetCartRequest struct{}

type ItemRequest struct {
	ProductID int `json:"product_id"`
	Amount    int `json:"amount,omitempty"`
}

type WatchCartRequest struct{}

type CartReply struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Items    domain.Cart `json:"items"`
	Count    int         `json:"count"`
	Subtotal string      `json:"subtotal"`
}

type CartServiceServer interface {
	GetCart(context.Context, *GetCartRequest) (*CartReply, error)
	AddItem(context.Context, *ItemRequest) (*CartReply, error)
	RemoveItem(context.Context, *ItemRequest) (*CartReply, error)
	SetAmount(context.Context, *ItemRequest) (*CartReply, error)
	WatchCart(*WatchCartRequest, grpc.ServerStream) error
}

// CartServiceDesc describes CartService for registration without generated
// stubs. Messages travel with the JSON codec.
var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: cartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCart", Handler: unaryHandler("GetCart", CartServiceServer.GetCart)},
		{MethodName: "AddItem", Handler: unaryHandler("AddItem", CartServiceServer.AddItem)},
		{MethodName: "RemoveItem", Handler: unaryHandler("RemoveItem", CartServiceServer.RemoveItem)},
		{MethodName: "SetAmount", Handler: unaryHandler("SetAmount", CartServiceServer.SetAmount)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchCart", Handler: watchCartHandler, ServerStreams: true},
	},
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + cartServiceName + "/" + method
}

func unaryHandler[Req any](method string, call func(CartServiceServer, context.Context, *Req) (*CartReply, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CartServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CartServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchCartHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchCartRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CartServiceServer).WatchCart(in, stream)
}

type GRPCHandler struct {
	cartService *service.CartService

	done      chan struct{}
	closeOnce sync.Once
}

func NewGRPCHandler(cartService *service.CartService) *GRPCHandler {
	return &GRPCHandler{cartService: cartService, done: make(chan struct{})}
}

// Close ends every open WatchCart stream. Call it before stopping the
// server, otherwise GracefulStop waits on watchers forever.
func (h *GRPCHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// StopGRPC stops srv gracefully, forcing it down when ctx expires first.
func StopGRPC(ctx context.Context, srv *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		srv.Stop()
		<-stopped
	}
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *GetCartRequest) (*CartReply, error) {
	return newCartReply(h.cartService.Cart(), nil), nil
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *ItemRequest) (*CartReply, error) {
	cart, err := h.cartService.AddItem(ctx, req.ProductID)
	return newCartReply(cart, err), nil
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *ItemRequest) (*CartReply, error) {
	cart, err := h.cartService.RemoveItem(ctx, req.ProductID)
	return newCartReply(cart, err), nil
}

func (h *GRPCHandler) SetAmount(ctx context.Context, req *ItemRequest) (*CartReply, error) {
	cart, err := h.cartService.SetAmount(ctx, req.ProductID, req.Amount)
	return newCartReply(cart, err), nil
}

// WatchCart sends the current cart, then every committed cart until the
// client goes away or the handler is closed. A slow client only ever
// misses intermediate states.
func (h *GRPCHandler) WatchCart(req *WatchCartRequest, stream grpc.ServerStream) error {
	updates := make(chan domain.Cart, watchBuffer)
	unsubscribe := h.cartService.Subscribe(func(c domain.Cart) {
		select {
		case updates <- c:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- c:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := stream.SendMsg(newCartReply(h.cartService.Cart(), nil)); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case <-h.done:
			return nil
		case c := <-updates:
			if err := stream.SendMsg(newCartReply(c, nil)); err != nil {
				return err
			}
		}
	}
}

func newCartReply(cart domain.Cart, err error) *CartReply {
	if cart == nil {
		cart = domain.Cart{}
	}
	reply := &CartReply{
		Success:  err == nil,
		Items:    cart,
		Count:    cart.Count(),
		Subtotal: cart.Subtotal().StringFixed(2),
	}
	if err != nil {
		var cerr *service.CartError
		if errors.As(err, &cerr) {
			reply.Message = cerr.Message()
		} else {
			reply.Message = "internal error"
		}
	}
	return reply
}
