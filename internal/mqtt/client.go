package mqtt

import (
	"context"

	"codeberg.org/mutker/fanctl/internal/errors"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Sender publishes commands for the daemon to pick up.
type Sender struct {
	client paho.Client
	prefix string
}

// Dial connects to the broker in cfg.
func Dial(cfg Config) (*Sender, error) {
	client := paho.NewClient(newClientOptions(cfg).SetConnectRetry(false))
	if err := connect(client); err != nil {
		return nil, err
	}

	return &Sender{client: client, prefix: cfg.prefix()}, nil
}

// Send publishes cmd with at-least-once delivery.
func (s *Sender) Send(ctx context.Context, cmd Command) error {
	errFactory := errors.New()

	payload, err := FormatCommand(cmd)
	if err != nil {
		return errFactory.Wrap(errors.ErrInvalidArgument, err)
	}

	token := s.client.Publish(CommandTopic(s.prefix), 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return errFactory.Wrap(errors.ErrTimeout, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return errFactory.Wrap(errors.ErrPublishFailed, err)
	}

	return nil
}

func (s *Sender) Close() error {
	s.client.Disconnect(disconnectMS)
	return nil
}
