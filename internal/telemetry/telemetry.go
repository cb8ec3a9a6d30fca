package telemetry

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Publisher pushes the JSON snapshot to an MQTT broker on a fixed cadence
// so home-automation dashboards can subscribe instead of polling /data.
type Publisher struct {
	client   mqtt.Client
	topic    string
	interval time.Duration
	source   func() (string, error)
}

func New(broker, topic string, interval time.Duration, source func() (string, error)) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("charge-controller").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, err)
	}

	log.Info().Str("broker", broker).Str("topic", topic).Msg("MQTT telemetry connected")
	return &Publisher{
		client:   client,
		topic:    topic,
		interval: interval,
		source:   source,
	}, nil
}

// Run publishes until stopped. Snapshots are retained so a subscriber
// joining late still sees the current state.
func (p *Publisher) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.client.Disconnect(250)

	for {
		select {
		case <-stop:
			log.Info().Msg("MQTT telemetry stopping")
			return
		case <-ticker.C:
			payload, err := p.source()
			if err != nil {
				log.Error().Err(err).Msg("Snapshot serialization failed")
				continue
			}
			token := p.client.Publish(p.topic, 0, true, payload)
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				log.Warn().Err(token.Error()).Msg("MQTT publish failed")
			}
		}
	}
}
