package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientWithoutBrokers(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewClientDoesNotDial(t *testing.T) {
	client, err := NewClient(Config{Brokers: []string{"127.0.0.1:1"}, ClientID: "kycgate-test"})
	require.NoError(t, err)
	require.NotNil(t, client)
	client.Close()
}
