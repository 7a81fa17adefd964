package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/monitoring"
	infralogger "github.com/kilianp07/calloutsim/infra/logger"
	"github.com/kilianp07/calloutsim/internal/eventbus"
)

// ErrUnknownAction is returned for a report with an unsupported action.
var ErrUnknownAction = errors.New("mqtt: unknown report action")

// Reporter receives unit reports from external drivers.
type Reporter interface {
	UnitArrived(unitID string) error
	UnitCompleted(unitID string) error
	DeclineCall(unitID string) error
}

// Bridge publishes simulation events to an MQTT broker and forwards unit
// reports received on <prefix>/unit/+/report to a Reporter.
type Bridge struct {
	cli        pahoClient
	cfg        Config
	reporter   Reporter
	runID      string
	log        logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewBridge connects to the broker and subscribes to the report topic.
// A nil reporter disables the subscription.
func NewBridge(cfg Config, rep Reporter) (*Bridge, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := infralogger.New("mqtt_bridge")
	b := &Bridge{
		cfg:        cfg,
		reporter:   rep,
		runID:      uuid.NewString(),
		log:        log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		c.Publish(cfg.TopicPrefix+"/status", 1, true, "online")
		if b.reporter == nil {
			return
		}
		if token := c.Subscribe(b.ReportTopic(), cfg.qos("report"), b.onReport); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	b.cli = c
	return b, nil
}

// RunID identifies the simulation run in every published message.
func (b *Bridge) RunID() string { return b.runID }

// CallTopic returns the topic of a call event.
func (b *Bridge) CallTopic(agencyID string, t events.CallEventType) string {
	return fmt.Sprintf("%s/agency/%s/call/%s", b.cfg.TopicPrefix, agencyID, t)
}

// UnitTopic returns the status topic of a unit.
func (b *Bridge) UnitTopic(unitID string) string {
	return fmt.Sprintf("%s/unit/%s/status", b.cfg.TopicPrefix, unitID)
}

// ReportTopic returns the wildcard topic carrying unit reports.
func (b *Bridge) ReportTopic() string {
	return b.cfg.TopicPrefix + "/unit/+/report"
}

// Run publishes bus events until ctx is canceled or the bus is closed.
func (b *Bridge) Run(ctx context.Context, bus eventbus.EventBus) error {
	sub := bus.SubscribeSize(256)
	defer bus.Unsubscribe(sub)
	return b.Consume(ctx, sub)
}

// Consume publishes the events of an existing subscription.
func (b *Bridge) Consume(ctx context.Context, sub <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			if err := b.PublishEvent(ev); err != nil {
				b.log.Errorf("publish event: %v", err)
				monitoring.CaptureException(err, map[string]string{"component": "mqtt", "broker": b.cfg.Broker})
			}
		}
	}
}

// PublishEvent publishes a call or unit status event. Other events are ignored.
func (b *Bridge) PublishEvent(ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.CallEvent:
		m := callMessage(e)
		m.MessageID, m.RunID = uuid.NewString(), b.runID
		return b.publish(b.CallTopic(e.AgencyID, e.Type), b.cfg.qos("call"), m)
	case events.UnitStatusEvent:
		m := unitMessage(e)
		m.MessageID, m.RunID = uuid.NewString(), b.runID
		return b.publish(b.UnitTopic(m.UnitID), b.cfg.qos("unit"), m)
	}
	return nil
}

func (b *Bridge) publish(topic string, qos byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		token := b.cli.Publish(topic, qos, false, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			b.log.Debugf("published %s", topic)
			return nil
		}
		b.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < b.maxRetries {
			time.Sleep(b.backoff * time.Duration(1<<attempt))
		}
	}
	return publishErr
}

func (b *Bridge) onReport(_ paho.Client, msg paho.Message) {
	if err := b.HandleReport(msg.Topic(), msg.Payload()); err != nil {
		b.log.Warnw("unit report rejected", map[string]any{"topic": msg.Topic(), "error": err.Error()})
	}
}

// HandleReport decodes a report received on topic and forwards it.
func (b *Bridge) HandleReport(topic string, payload []byte) error {
	unitID, ok := b.reportUnit(topic)
	if !ok {
		return fmt.Errorf("mqtt: unexpected report topic %s", topic)
	}
	var m ReportMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return fmt.Errorf("mqtt: decode report: %w", err)
	}
	switch m.Action {
	case ActionArrived:
		return b.reporter.UnitArrived(unitID)
	case ActionCompleted:
		return b.reporter.UnitCompleted(unitID)
	case ActionDeclined:
		return b.reporter.DeclineCall(unitID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, m.Action)
	}
}

func (b *Bridge) reportUnit(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, b.cfg.TopicPrefix+"/unit/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/report")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// Close publishes the offline status and disconnects.
func (b *Bridge) Close() {
	if b.cli != nil && b.cli.IsConnected() {
		b.cli.Publish(b.cfg.TopicPrefix+"/status", 1, true, "offline").Wait()
		b.cli.Disconnect(250)
	}
}
