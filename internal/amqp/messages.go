package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReportExportMessage asks the worker to export one stored form version.
// The worker reads the form itself; the message only names it.
type ReportExportMessage struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportExportMessage(key string, version int64) *ReportExportMessage {
	return &ReportExportMessage{
		ID:        uuid.NewString(),
		Key:       key,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportExportMessageFromJSON rejects bodies without a key or version.
func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, errors.New("message has no form key")
	}
	if msg.Version <= 0 {
		return nil, errors.New("message has no form version")
	}
	return &msg, nil
}
