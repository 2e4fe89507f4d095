package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"studypulse-backend/internal/metrics"
	"studypulse-backend/internal/models"
)

// Delivery is everything a channel needs to deliver one queue item.
// Recipient is only loaded for channels that require contact details.
type Delivery struct {
	Notification models.Notification
	Alert        *models.Alert
	Recipient    *models.User
}

type DeliveryResult struct {
	ProviderMessageID string
}

// DeliveryChannel delivers queue items for one channel kind.
type DeliveryChannel interface {
	Kind() models.Channel
	RequiresRecipient() bool
	Send(ctx context.Context, d Delivery) (DeliveryResult, error)
}

type ChannelRegistry struct {
	channels map[models.Channel]DeliveryChannel
}

func NewChannelRegistry(channels ...DeliveryChannel) *ChannelRegistry {
	r := &ChannelRegistry{channels: make(map[models.Channel]DeliveryChannel, len(channels))}
	for _, c := range channels {
		r.channels[c.Kind()] = c
	}
	return r
}

func (r *ChannelRegistry) Get(kind models.Channel) (DeliveryChannel, bool) {
	c, ok := r.channels[kind]
	return c, ok
}

// AlertMailer is implemented by EmailService.
type AlertMailer interface {
	SendAlertEmail(ctx context.Context, to, recipientName string, alert *models.Alert) (string, error)
}

type EmailChannelConfig struct {
	RatePerSecond    float64
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// EmailChannel paces sends and stops calling SMTP while it keeps failing.
type EmailChannel struct {
	mailer  AlertMailer
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
}

func NewEmailChannel(mailer AlertMailer, cfg EmailChannelConfig, logger *zerolog.Logger) *EmailChannel {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	l := logger.With().Str("component", "email_channel").Logger()

	burst := max(1, int(cfg.RatePerSecond))
	return &EmailChannel{
		mailer:  mailer,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "smtp",
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.EmailBreakerState.Set(float64(to))
				l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("email circuit breaker state changed")
			},
		}),
	}
}

func (c *EmailChannel) Kind() models.Channel    { return models.ChannelEmail }
func (c *EmailChannel) RequiresRecipient() bool { return true }

func (c *EmailChannel) Send(ctx context.Context, d Delivery) (DeliveryResult, error) {
	to := d.Recipient.ContactEmail()
	if to == "" {
		return DeliveryResult{}, ErrNoRecipientEmail
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return DeliveryResult{}, fmt.Errorf("%w: email rate limiter: %v", ErrDeliveryDeferred, err)
	}

	id, err := c.breaker.Execute(func() (string, error) {
		return c.mailer.SendAlertEmail(ctx, to, d.Recipient.FullName, d.Alert)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return DeliveryResult{}, fmt.Errorf("%w: email delivery suspended: %v", ErrDeliveryDeferred, err)
	}
	if err != nil {
		return DeliveryResult{}, err
	}
	return DeliveryResult{ProviderMessageID: id}, nil
}

// Publisher pushes a payload to subscribers of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type redisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// InAppChannel delivers by the alert appearing in the recipient's feed. Live
// push to open websockets is best effort.
type InAppChannel struct {
	pub    Publisher
	logger zerolog.Logger
}

func NewInAppChannel(pub Publisher, logger *zerolog.Logger) *InAppChannel {
	return &InAppChannel{
		pub:    pub,
		logger: logger.With().Str("component", "in_app_channel").Logger(),
	}
}

func (c *InAppChannel) Kind() models.Channel    { return models.ChannelInApp }
func (c *InAppChannel) RequiresRecipient() bool { return false }

func (c *InAppChannel) Send(ctx context.Context, d Delivery) (DeliveryResult, error) {
	if c.pub == nil {
		return DeliveryResult{}, nil
	}

	payload, err := gojson.Marshal(models.WSMessage{
		Type: models.WSTypeAlert,
		Payload: models.AlertEvent{
			AlertID:   d.Alert.ID.String(),
			AlertType: string(d.Alert.Type),
			StudentID: d.Alert.StudentID.String(),
			Message:   d.Alert.Message(),
		},
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode live alert")
		return DeliveryResult{}, nil
	}

	channel := models.UserUpdatesChannel(d.Notification.RecipientID)
	if err := c.pub.Publish(ctx, channel, payload); err != nil {
		c.logger.Warn().Err(err).Str("channel", channel).Msg("live alert push failed")
	}
	return DeliveryResult{}, nil
}
