package amqp

import (
	"encoding/json"
	"time"

	"regnskap/internal/core"
)

// ResultsPublishedMessage announces that a period's results were stored.
// Amounts are decimal strings; consumers load the full record from the store.
type ResultsPublishedMessage struct {
	Period     string    `json:"period"`
	Runs       []string  `json:"runs"`
	Income     string    `json:"income"`
	Expense    string    `json:"expense"`
	Commitment string    `json:"commitment"`
	Profit     string    `json:"profit"`
	ComputedAt time.Time `json:"computed_at"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewResultsPublishedMessage summarizes rec stored under period.
func NewResultsPublishedMessage(period string, rec core.ResultsRecord) *ResultsPublishedMessage {
	return &ResultsPublishedMessage{
		Period:     period,
		Runs:       append([]string(nil), rec.Runs...),
		Income:     rec.Income.StringFixed(2),
		Expense:    rec.Expense.StringFixed(2),
		Commitment: rec.Commitment.StringFixed(2),
		Profit:     rec.Profit().StringFixed(2),
		ComputedAt: rec.ComputedAt,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ResultsPublishedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ResultsPublishedMessageFromJSON creates a message from JSON bytes
func ResultsPublishedMessageFromJSON(data []byte) (*ResultsPublishedMessage, error) {
	var msg ResultsPublishedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
