package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserEvent_WireFormat(t *testing.T) {
	value, err := json.Marshal(UserEvent{UserID: 42, Username: "alice"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":42,"username":"alice"}`, string(value))
}

func TestLogPublisher(t *testing.T) {
	p := LogPublisher{}
	assert.NoError(t, p.Publish(context.Background(), TopicUserLogin, UserEvent{UserID: 1, Username: "alice"}))
	assert.NoError(t, p.Close())
}

func TestLogPublisher_UnmarshalablePayload(t *testing.T) {
	p := LogPublisher{}
	err := p.Publish(context.Background(), TopicUserLogin, func() {})
	assert.Error(t, err)
}
