package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/artmarket-backend/pkg/config"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client wraps the Pub/Sub v2 client with project-relative resource naming.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient dials Pub/Sub and fails fast when a configured subscription is
// missing. Publisher-only processes leave the subscription unset.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	ps, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: ps, projectID: projectID, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", projectID), "pubsub client initialized")
	}
	return c, nil
}

// clientOptions picks explicit credentials when configured. Inline JSON wins
// over a key file; with neither, application default credentials apply (and
// PUBSUB_EMULATOR_HOST is honoured by the library).
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// Ping checks that every configured subscription exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, name := range subscriptionNames(c.cfg) {
		if err := c.lookup(ctx, kindSubscription, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureTopics checks that each named topic exists. The outbox publisher calls
// it at startup so a missing topic fails the deploy instead of dead-lettering rows.
func (c *Client) EnsureTopics(ctx context.Context, names ...string) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if err := c.lookup(ctx, kindTopic, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) lookup(ctx context.Context, kind, name string) error {
	full := c.resourceName(kind, name)
	if full == "" {
		return fmt.Errorf("%s %q not configured", kind, name)
	}

	var err error
	switch kind {
	case kindTopic:
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	default:
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, full)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, full, err)
	}
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	var names []string
	if name := strings.TrimSpace(cfg.NotificationSubscription); name != "" {
		names = append(names, name)
	}
	return names
}

// Subscription returns a Subscriber for an ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	full := c.resourceName(kindSubscription, name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Subscriber(full)
}

// NotificationSubscription returns the subscriber the notification worker reads from.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.NotificationSubscription)
}

// Publisher returns a Publisher for a topic ID or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	full := c.resourceName(kindTopic, name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName qualifies a bare ID with the client's project. Names already
// qualified for kind pass through unchanged.
func (c *Client) resourceName(kind, name string) string {
	if c == nil {
		return ""
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + kind + "/" + n
}
