package notifier

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/models"
)

// AuditSubject is the subject execution outcomes are published on.
const AuditSubject = "together.agent.audit"

// NATSAuditNotifier publishes execution outcomes to NATS so other platform
// services can react without polling the audit table.
type NATSAuditNotifier struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSAuditNotifier wraps an established connection.
func NewNATSAuditNotifier(conn *nats.Conn, logger zerolog.Logger) *NATSAuditNotifier {
	return &NATSAuditNotifier{
		conn:   conn,
		logger: logger.With().Str("component", "audit_notifier").Logger(),
	}
}

// PublishOutcome is fire-and-forget. Publishing failures are logged, never
// propagated: the audit row is the source of truth.
func (n *NATSAuditNotifier) PublishOutcome(record *models.AuditRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to encode audit record")
		return
	}
	if err := n.conn.Publish(AuditSubject, payload); err != nil {
		n.logger.Warn().Err(err).Str("action_id", record.ActionID).Msg("failed to publish audit outcome")
	}
}
