package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

const (
	postsPath = "/posts"

	// pushUserID is the fixed author id sent with every pushed post.
	pushUserID = 1
)

// post is the JSONPlaceholder resource.
type post struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

type newPost struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// PostsClient reads and writes quotes as remote posts.
type PostsClient struct {
	BaseAdapter

	client *clients.Client
	logger *slog.Logger
}

var (
	_ ports.RemoteQuoteSource = (*PostsClient)(nil)
	_ ports.HealthChecker     = (*PostsClient)(nil)
)

// NewPostsClient creates a posts adapter over client.
func NewPostsClient(client *clients.Client, logger *slog.Logger) *PostsClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostsClient{
		BaseAdapter: NewBaseAdapter(client, client.ServiceName()),
		client:      client,
		logger:      logger.With(slog.String("component", "acl.PostsClient")),
	}
}

// FetchSnapshot returns the first limit posts as server quotes. Records past
// limit are dropped even when the remote ignores _limit.
func (c *PostsClient) FetchSnapshot(ctx context.Context, limit int) ([]domain.Quote, error) {
	q := url.Values{}
	q.Set("_limit", strconv.Itoa(limit))

	body, err := c.Get(ctx, postsPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	posts, err := DecodeResponse[[]post](body)
	if err != nil {
		return nil, domain.NewNetworkError(c.ServiceName(), err)
	}

	records := *posts
	if limit > 0 && len(records) > limit {
		c.logger.DebugContext(ctx, "remote ignored the page limit, truncating",
			slog.Int("limit", limit),
			slog.Int("received", len(records)),
		)

		records = records[:limit]
	}

	quotes := TranslateSlice(records, toQuote)

	c.logger.DebugContext(ctx, "fetched remote snapshot",
		slog.Int("limit", limit),
		slog.Int("records", len(quotes)),
	)

	return quotes, nil
}

// PushQuote creates a post from q. The created resource is discarded.
func (c *PostsClient) PushQuote(ctx context.Context, q domain.Quote) error {
	payload, err := json.Marshal(fromQuote(q))
	if err != nil {
		return fmt.Errorf("encoding post: %w", err)
	}

	body, err := c.Post(ctx, postsPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	drainAndClose(body)

	return nil
}

// Name implements ports.HealthChecker.
func (c *PostsClient) Name() string {
	return "remote:" + c.ServiceName()
}

// Check reports the remote unhealthy while the circuit breaker is open.
// It never contacts the remote.
func (c *PostsClient) Check(context.Context) error {
	if state := c.client.CircuitState(); state == clients.StateOpen {
		return domain.NewNetworkError(c.ServiceName(), clients.ErrCircuitOpen)
	}

	return nil
}

func toQuote(p *post) domain.Quote {
	return domain.Quote{
		ID:       p.ID,
		Text:     p.Title,
		Category: domain.ServerCategory,
	}
}

func fromQuote(q domain.Quote) newPost {
	return newPost{
		Title:  q.Text,
		Body:   q.Category,
		UserID: pushUserID,
	}
}
