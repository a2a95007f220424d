package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/spaceagent/pkg/resilience"
)

const (
	defaultCallTimeout = 10 * time.Second
	defaultToolsTTL    = 30 * time.Second

	clientName    = "spaceagent"
	clientVersion = "0.1.0"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds every request sent to the server.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry sets how many times a failed request is retried and the first
// backoff delay.
func WithRetry(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.retry.MaxAttempts = retries + 1
		}
		if backoff > 0 {
			c.retry.InitialDelay = backoff
		}
	}
}

// WithToolCacheTTL keeps the tool listing for ttl. Zero disables the cache.
func WithToolCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl >= 0 {
			c.toolsTTL = ttl
		}
	}
}

// Client talks to one remote MCP server. Requests time out individually and
// transient failures are retried.
type Client struct {
	conn     client.MCPClient
	timeout  time.Duration
	retry    resilience.RetryConfig
	toolsTTL time.Duration

	mu        sync.Mutex
	tools     []mcp.Tool
	toolsTill time.Time
}

// NewClient wraps an initialized connection.
func NewClient(conn client.MCPClient, opts ...ClientOption) *Client {
	c := &Client{
		conn:     conn,
		timeout:  defaultCallTimeout,
		retry:    resilience.DefaultRetryConfig(),
		toolsTTL: defaultToolsTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewStdioClient launches command and speaks MCP over its stdin and stdout.
func NewStdioClient(ctx context.Context, command string, args []string, opts ...ClientOption) (*Client, error) {
	conn, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, err
	}
	return handshake(ctx, conn, opts...)
}

// NewInProcessClient connects to s directly, without a transport.
func NewInProcessClient(ctx context.Context, s *Server, opts ...ClientOption) (*Client, error) {
	conn, err := client.NewInProcessClient(s.MCPServer())
	if err != nil {
		return nil, err
	}
	return handshake(ctx, conn, opts...)
}

func handshake(ctx context.Context, conn *client.Client, opts ...ClientOption) (*Client, error) {
	if err := conn.Start(ctx); err != nil {
		return nil, err
	}
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: clientVersion}

	_, err := resilience.WithTimeoutResult(ctx, defaultCallTimeout, func(ctx context.Context) (*mcp.InitializeResult, error) {
		return conn.Initialize(ctx, req)
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return NewClient(conn, opts...), nil
}

// ListTools returns the tools the server offers, from cache when fresh.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if tools, ok := c.cached(); ok {
		return tools, nil
	}
	res, err := send(ctx, c, func(ctx context.Context) (*mcp.ListToolsResult, error) {
		return c.conn.ListTools(ctx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, err
	}
	c.remember(res.Tools)
	return res.Tools, nil
}

// CallTool invokes the remote tool name with args.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return send(ctx, c, func(ctx context.Context) (*mcp.CallToolResult, error) {
		return c.conn.CallTool(ctx, req)
	})
}

// Close ends the session and, for stdio servers, the subprocess.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) cached() ([]mcp.Tool, bool) {
	if c.toolsTTL == 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tools) == 0 || time.Now().After(c.toolsTill) {
		return nil, false
	}
	return append([]mcp.Tool(nil), c.tools...), true
}

func (c *Client) remember(tools []mcp.Tool) {
	if c.toolsTTL == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = append([]mcp.Tool(nil), tools...)
	c.toolsTill = time.Now().Add(c.toolsTTL)
}

// send runs one request under the client timeout and retry policy. Retries
// stop as soon as the caller's context is done.
func send[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	rc := c.retry.WithIsRecoverable(func(error) bool { return ctx.Err() == nil })
	return resilience.Retry(ctx, rc, func(ctx context.Context) (T, error) {
		return resilience.WithTimeoutResult(ctx, c.timeout, fn)
	})
}
