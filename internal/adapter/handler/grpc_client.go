package handler

import (
	"context"

	"google.golang.org/grpc"
)

// CartServiceClient calls CartService over a connection using the JSON codec.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

func (c *CartServiceClient) GetCart(ctx context.Context) (*CartReply, error) {
	return c.invoke(ctx, "GetCart", &GetCartRequest{})
}

func (c *CartServiceClient) AddItem(ctx context.Context, productID int) (*CartReply, error) {
	return c.invoke(ctx, "AddItem", &ItemRequest{ProductID: productID})
}

func (c *CartServiceClient) RemoveItem(ctx context.Context, productID int) (*CartReply, error) {
	return c.invoke(ctx, "RemoveItem", &ItemRequest{ProductID: productID})
}

func (c *CartServiceClient) SetAmount(ctx context.Context, productID, amount int) (*CartReply, error) {
	return c.invoke(ctx, "SetAmount", &ItemRequest{ProductID: productID, Amount: amount})
}

// WatchCart opens the update stream. Call Recv on the result until the
// context is cancelled.
func (c *CartServiceClient) WatchCart(ctx context.Context) (*CartWatcher, error) {
	stream, err := c.cc.NewStream(ctx, &CartServiceDesc.Streams[0], fullMethod("WatchCart"), grpc.CallContentSubtype(JSONCodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchCartRequest{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &CartWatcher{stream: stream}, nil
}

func (c *CartServiceClient) invoke(ctx context.Context, method string, in any) (*CartReply, error) {
	out := new(CartReply)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(JSONCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

type CartWatcher struct {
	stream grpc.ClientStream
}

func (w *CartWatcher) Recv() (*CartReply, error) {
	out := new(CartReply)
	if err := w.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}
