package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType selects the handler a consumer dispatches a message to.
type MessageType string

const (
	// TypeFinanceSync asks the worker to export one finance record to Sheets.
	TypeFinanceSync MessageType = "finance.sync"
	// TypePaymentNotification carries a Mercado Pago webhook for processing.
	TypePaymentNotification MessageType = "payment.notification"
)

// Message is the envelope every job travels in. Payload is decoded by
// the handler registered for Type.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// FinanceSync references a finance record by owner and id. The worker
// loads the current record from storage.
type FinanceSync struct {
	UserID    string `json:"userId"`
	FinanceID string `json:"financeId"`
}

// PaymentNotification is the part of a payment webhook the worker needs.
type PaymentNotification struct {
	PaymentID string `json:"paymentId"`
	Topic     string `json:"topic"`
	Action    string `json:"action,omitempty"`
}

// NewMessage wraps payload in an envelope stamped with the current time.
func NewMessage(typ MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{Type: typ, Timestamp: time.Now(), Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON creates a message from JSON bytes
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}
	return &msg, nil
}
