package audit

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	EventBalanceEffect = "BALANCE_EFFECT"
	EventTransfer      = "TRANSFER"
	EventError         = "ERROR"
)

type AuditEvent struct {
	Timestamp     time.Time       `json:"timestamp"`
	EventType     string          `json:"event_type"`
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Details       any             `json:"details,omitempty"`
}

// AuditLogger writes one "audit" log event per ledger mutation.
type AuditLogger struct {
	log zerolog.Logger
	now func() time.Time
}

func NewAuditLogger(log zerolog.Logger) *AuditLogger {
	return &AuditLogger{
		log: log.With().Str("component", "audit").Logger(),
		now: time.Now,
	}
}

// LogBalanceEffect records a committed balance change on one account.
func (a *AuditLogger) LogBalanceEffect(userID, transactionID, accountID, operation string, delta, balance decimal.Decimal) {
	a.write(AuditEvent{
		EventType:     EventBalanceEffect,
		UserID:        userID,
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        delta,
		Status:        "SUCCESS",
		Details: map[string]string{
			"operation":     operation,
			"balance_after": balance.String(),
		},
	})
}

func (a *AuditLogger) LogTransfer(userID, outID, inID, fromAccount, toAccount string, amount decimal.Decimal, status string) {
	a.write(AuditEvent{
		EventType:     EventTransfer,
		UserID:        userID,
		TransactionID: outID,
		Amount:        amount,
		Status:        status,
		Details: map[string]string{
			"from_account":  fromAccount,
			"to_account":    toAccount,
			"related_tx_id": inID,
		},
	})
}

func (a *AuditLogger) LogError(userID, transactionID, accountID string, err error) {
	a.write(AuditEvent{
		EventType:     EventError,
		UserID:        userID,
		TransactionID: transactionID,
		AccountID:     accountID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) write(event AuditEvent) {
	event.Timestamp = a.now().UTC()
	lvl := zerolog.InfoLevel
	if event.EventType == EventError {
		lvl = zerolog.WarnLevel
	}
	a.log.WithLevel(lvl).Interface("audit", event).Msg(event.EventType)
}
