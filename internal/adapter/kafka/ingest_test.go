package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessage(t *testing.T) {
	msgTime := time.Date(2024, time.April, 24, 12, 0, 0, 0, time.UTC)

	msg := kafkago.Message{
		Value: []byte(`{
			"id": "inc-1",
			"type": "theft",
			"description": "Stolen bicycle",
			"latitude": 40.7128,
			"longitude": -74.0060,
			"timestamp": "2024-04-24T11:30:00Z",
			"user_id": "user-7"
		}`),
		Time: msgTime,
	}

	incident, err := mapMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "inc-1", incident.ID)
	assert.Equal(t, "theft", incident.Type)
	assert.Equal(t, "Stolen bicycle", incident.Description)
	assert.Equal(t, 40.7128, incident.Latitude)
	assert.Equal(t, -74.0060, incident.Longitude)
	assert.Equal(t, time.Date(2024, time.April, 24, 11, 30, 0, 0, time.UTC), incident.Timestamp)
	assert.Equal(t, "user-7", incident.UserID)
}

func TestMapMessage_FillsDefaults(t *testing.T) {
	msgTime := time.Date(2024, time.April, 24, 12, 0, 0, 0, time.UTC)

	msg := kafkago.Message{
		Value: []byte(`{"type": "assault", "latitude": 40.7, "longitude": -74.0}`),
		Time:  msgTime,
	}

	incident, err := mapMessage(msg)
	require.NoError(t, err)
	assert.NotEmpty(t, incident.ID, "a missing id gets generated")
	assert.Equal(t, msgTime, incident.Timestamp, "a missing timestamp falls back to the message time")
}

func TestMapMessage_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "not-json{{{"},
		{"missing type", `{"latitude": 40.7, "longitude": -74.0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapMessage(kafkago.Message{Value: []byte(tt.value)})
			assert.Error(t, err)
		})
	}
}
