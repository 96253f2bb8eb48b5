package provider

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/PaymentIndexor/internal/common"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	pkgprovider "github.com/goran-ethernal/PaymentIndexor/pkg/provider"
)

const (
	// subscriptionNamespace is the JSON-RPC namespace of the DNA stream API.
	subscriptionNamespace = "dna"
	streamMethod          = "stream"

	// messageBuffer bounds how far the transport may read ahead of the consumer.
	messageBuffer = 16
)

// Compile-time check to ensure Client implements pkgprovider.Client interface.
var _ pkgprovider.Client = (*Client)(nil)

// Client is a DNA stream client over a JSON-RPC WebSocket connection.
type Client struct {
	rpc *rpc.Client
	log *logger.Logger
}

// Dial connects to the provider at url, authenticating with bearerToken when set.
func Dial(ctx context.Context, url, bearerToken string, log *logger.Logger) (*Client, error) {
	var opts []rpc.ClientOption
	if bearerToken != "" {
		opts = append(opts, rpc.WithHeader("Authorization", "Bearer "+bearerToken))
	}

	start := time.Now()
	rpcClient, err := rpc.DialOptions(ctx, url, opts...)
	if err != nil {
		ProviderErrorInc("dial", classifyError(err))
		return nil, fmt.Errorf("failed to dial provider %s: %w", url, err)
	}
	ProviderDialDuration(time.Since(start))

	return NewClient(rpcClient, log), nil
}

// NewClient wraps an established RPC connection.
func NewClient(rpcClient *rpc.Client, log *logger.Logger) *Client {
	return &Client{
		rpc: rpcClient,
		log: log.WithComponent(common.ComponentProvider),
	}
}

// StartStream subscribes to dna_subscribe("stream", req).
func (c *Client) StartStream(ctx context.Context, req pkgprovider.StreamRequest) (pkgprovider.Stream, error) {
	ch := make(chan pkgprovider.Message, messageBuffer)

	sub, err := c.rpc.Subscribe(ctx, subscriptionNamespace, ch, streamMethod, req)
	if err != nil {
		ProviderErrorInc("subscribe", classifyError(err))
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	c.log.Infow("stream started",
		"finality", req.Finality,
		"event_filters", len(req.Filter.Events),
		"starting_cursor", req.StartingCursor,
	)

	return &stream{sub: sub, messages: ch}, nil
}

// Close closes the RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

type stream struct {
	sub      *rpc.ClientSubscription
	messages chan pkgprovider.Message
}

// Recv returns buffered messages before reporting subscription termination, so a
// batch delivered just before the server ends the stream is not lost.
func (s *stream) Recv(ctx context.Context) (pkgprovider.Message, error) {
	select {
	case msg := <-s.messages:
		MessageReceivedInc(msg.Kind)
		return msg, nil
	default:
	}

	select {
	case msg := <-s.messages:
		MessageReceivedInc(msg.Kind)
		return msg, nil
	case err, ok := <-s.sub.Err():
		if !ok || err == nil {
			return pkgprovider.Message{}, io.EOF
		}
		ProviderErrorInc("recv", classifyError(err))
		return pkgprovider.Message{}, fmt.Errorf("stream terminated: %w", err)
	case <-ctx.Done():
		return pkgprovider.Message{}, ctx.Err()
	}
}

func (s *stream) Close() error {
	s.sub.Unsubscribe()
	return nil
}
