package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Config"
	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
)

const publishQoS = 1

// MQTTPublisher publishes terminal events to an MQTT broker
type MQTTPublisher struct {
	cfg       config.MQTTConfig
	brokerURL string
	client    mqtt.Client
	logger    *logger.Logger
}

func NewMQTTPublisher(cfg config.MQTTConfig, brokerURL string, log *logger.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		cfg:       cfg,
		brokerURL: brokerURL,
		logger:    log.WithComponent("telemetry"),
	}
}

// Connect dials the broker. The client keeps reconnecting in the background
// after the first successful connection.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts, err := p.clientOptions()
	if err != nil {
		return err
	}

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()
	if err := waitToken(ctx, token); err != nil {
		return fmt.Errorf("failed to connect to broker %s: %w", p.brokerURL, err)
	}
	return nil
}

func (p *MQTTPublisher) clientOptions() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(p.brokerURL).
		SetClientID(p.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(p.cfg.KeepAlive).
		SetPingTimeout(p.cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)

	if p.cfg.BrokerUser != "" {
		opts.SetUsername(p.cfg.BrokerUser)
		opts.SetPassword(p.cfg.BrokerPass)
	}

	if p.cfg.UseTLS {
		tlsCfg, err := tlsConfig(p.cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.logger.WithError(err).Warn("MQTT connection lost")
	}
	opts.OnConnect = func(_ mqtt.Client) {
		p.logger.Logger.Info().Str("broker", p.brokerURL).Msg("MQTT connected")
	}
	return opts, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	if err := waitToken(ctx, p.client.Publish(topic, publishQoS, false, body)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

func (p *MQTTPublisher) Close() {
	if p.IsConnected() {
		p.client.Disconnect(500)
	}
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file %s", caFile)
	}
	cfg.RootCAs = cp
	return cfg, nil
}
