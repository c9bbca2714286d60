package mqtt

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/fan"
	"codeberg.org/mutker/fanctl/internal/logger"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	DefaultPrefix = "fanctl"

	connectTimeout = 10 * time.Second
	retryInterval  = 5 * time.Second
	publishTimeout = 5 * time.Second
	disconnectMS   = 250

	statusOnline  = "online"
	statusOffline = "offline"
)

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string

	// RetryInterval is the pause between connection attempts, 5s when zero.
	RetryInterval time.Duration
}

func (c Config) prefix() string {
	if c.Prefix == "" {
		return DefaultPrefix
	}
	return c.Prefix
}

func (c Config) retryInterval() time.Duration {
	if c.RetryInterval <= 0 {
		return retryInterval
	}
	return c.RetryInterval
}

func CommandTopic(prefix string) string {
	return prefix + "/command"
}

func StateTopic(prefix string, a fan.Attribute) string {
	return prefix + "/state/" + string(a)
}

func StatusTopic(prefix string) string {
	return prefix + "/status"
}

func newClientOptions(cfg Config) *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectRetry(true).
		SetConnectRetryInterval(cfg.retryInterval())

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	return opts
}

func connect(client paho.Client) error {
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.New().WithMessage(errors.ErrConnectFailed, "connection timeout")
	}
	if err := token.Error(); err != nil {
		return errors.New().Wrap(errors.ErrConnectFailed, err)
	}

	return nil
}

// Bridge applies commands from the command topic and mirrors every
// attribute change to a retained state topic.
type Bridge struct {
	cfg     Config
	attrs   Attributes
	log     logger.Logger
	publish func(topic string, retained bool, payload string) error
}

func NewBridge(cfg Config, attrs Attributes) *Bridge {
	return &Bridge{
		cfg:   cfg,
		attrs: attrs,
		log:   logger.New("mqtt"),
	}
}

// Run connects to the broker and serves until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	prefix := b.cfg.prefix()

	opts := newClientOptions(b.cfg).
		SetWill(StatusTopic(prefix), statusOffline, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			b.log.Warn().Err(err).Msg("MQTT connection lost")
		}).
		SetOnConnectHandler(func(client paho.Client) {
			b.log.Info().Str("broker", b.cfg.Broker).Msg("Connected to MQTT broker")
			b.onConnect(client)
		})

	client := paho.NewClient(opts)
	b.publish = func(topic string, retained bool, payload string) error {
		token := client.Publish(topic, 1, retained, payload)
		if !token.WaitTimeout(publishTimeout) {
			return errors.New().WithMessage(errors.ErrPublishFailed, "publish timeout")
		}
		if err := token.Error(); err != nil {
			return errors.New().Wrap(errors.ErrPublishFailed, err)
		}
		return nil
	}

	connected, err := b.awaitConnect(ctx, client.Connect())
	if err != nil || !connected {
		// stops the background retries as well
		client.Disconnect(disconnectMS)
		return err
	}

	var wg sync.WaitGroup
	for _, a := range fan.Attributes() {
		wg.Add(1)
		go func(a fan.Attribute) {
			defer wg.Done()
			b.watch(ctx, a)
		}(a)
	}

	<-ctx.Done()
	wg.Wait()

	if err := b.publish(StatusTopic(prefix), true, statusOffline); err != nil {
		b.log.Debug().Err(err).Msg("Failed to publish offline status")
	}
	client.Disconnect(disconnectMS)
	b.log.Info().Msg("Disconnected from MQTT broker")

	return nil
}

// awaitConnect waits for the first connection while the client retries in
// the background. It reports false without an error when ctx ends first.
func (b *Bridge) awaitConnect(ctx context.Context, token paho.Token) (bool, error) {
	warn := time.NewTicker(connectTimeout)
	defer warn.Stop()

	for {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				return false, errors.New().Wrap(errors.ErrConnectFailed, err)
			}
			return true, nil
		case <-warn.C:
			b.log.Warn().Str("broker", b.cfg.Broker).Msg("MQTT broker unreachable, still retrying")
		case <-ctx.Done():
			b.log.Info().Str("broker", b.cfg.Broker).Msg("Gave up connecting to MQTT broker")
			return false, nil
		}
	}
}

func (b *Bridge) onConnect(client paho.Client) {
	prefix := b.cfg.prefix()

	token := client.Subscribe(CommandTopic(prefix), 1, func(_ paho.Client, msg paho.Message) {
		b.handle(msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		b.log.Error().Err(token.Error()).Str("topic", CommandTopic(prefix)).Msg("Failed to subscribe")
		return
	}

	// Publishing from the connect handler must not wait on tokens.
	client.Publish(StatusTopic(prefix), 1, true, statusOnline)
	for _, a := range fan.Attributes() {
		if value, err := b.attrs.ReadAttribute(a); err == nil {
			client.Publish(StateTopic(prefix, a), 1, true, value)
		}
	}
}

func (b *Bridge) handle(payload []byte) {
	cmd, err := ParseCommand(payload)
	if err != nil {
		b.log.Warn().Err(err).Bytes("payload", payload).Msg("Ignoring malformed command")
		return
	}

	if err := Apply(b.attrs, cmd); err != nil {
		b.log.Warn().Err(err).Str("type", string(cmd.Type)).Str("data", cmd.Data).Msg("Command rejected")
		return
	}

	b.log.Debug().Str("type", string(cmd.Type)).Str("data", cmd.Data).Msg("Command applied")
}

// watch publishes a each time it changes until ctx is done.
func (b *Bridge) watch(ctx context.Context, a fan.Attribute) {
	topic := StateTopic(b.cfg.prefix(), a)
	since := b.attrs.AttributeVersion(a)

	for {
		value, version, err := b.attrs.WaitAttribute(ctx, a, since)
		if err != nil {
			return
		}
		since = version

		if err := b.publish(topic, true, value); err != nil {
			b.log.Warn().Err(err).Str("topic", topic).Msg("Failed to publish state")
		}
	}
}
