package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/deep60/nexus-security/logging"
	"github.com/deep60/nexus-security/types"
)

const (
	BountyCompletedSubject = "nexus.consensus.bounty_completed"
	DisputeResolvedSubject = "nexus.consensus.dispute_resolved"
)

func ConnectToNats(host string, port int, name string) (*nats.Conn, error) {
	return nats.Connect(
		"nats://"+host+":"+strconv.Itoa(port),
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// NatsPublisher fans resolution events out over NATS. Publishes are fire and
// forget; a dropped event never rolls back a resolution.
type NatsPublisher struct {
	conn *nats.Conn
}

var _ types.EventPublisher = (*NatsPublisher)(nil)

func NewNatsPublisher(conn *nats.Conn) *NatsPublisher {
	return &NatsPublisher{conn: conn}
}

func (p *NatsPublisher) PublishBountyCompleted(_ context.Context, event types.BountyCompletedEvent) error {
	return p.publish(BountyCompletedSubject, event)
}

func (p *NatsPublisher) PublishDisputeResolved(_ context.Context, event types.DisputeResolvedEvent) error {
	return p.publish(DisputeResolvedSubject, event)
}

func (p *NatsPublisher) publish(subject string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	logging.Debug("Publishing event", types.EventProcessing, "subject", subject)
	return p.conn.Publish(subject, payload)
}

// NoopPublisher swallows events. Used in tests and when no NATS endpoint is
// configured.
type NoopPublisher struct{}

var _ types.EventPublisher = (*NoopPublisher)(nil)

func (NoopPublisher) PublishBountyCompleted(context.Context, types.BountyCompletedEvent) error {
	return nil
}

func (NoopPublisher) PublishDisputeResolved(context.Context, types.DisputeResolvedEvent) error {
	return nil
}
