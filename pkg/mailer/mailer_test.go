package mailer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewayNotify(t *testing.T) {
	var received sendMailRequest
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(sendMailResponse{Status: "success", MessageID: "msg-1"})
	}))
	defer server.Close()

	gateway := NewHTTPGateway(Config{
		Mode:      "api",
		APIURL:    server.URL,
		APIKey:    "test-key",
		FromEmail: "noreply@smarttransit.lk",
		FromName:  "SmartTransit",
		SiteURL:   "https://smarttransit.lk",
	})

	err := gateway.Notify("commuter@example.com", "Ticket Booking Confirmation", "ticket_booking", map[string]string{
		"first_name": "Nimal",
		"route_name": "Colombo - Kandy",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "commuter@example.com", received.To)
	assert.Equal(t, "noreply@smarttransit.lk", received.FromEmail)
	assert.Equal(t, "ticket_booking", received.TemplateID)
	assert.Equal(t, "Nimal", received.Variables["first_name"])
	assert.Equal(t, "https://smarttransit.lk", received.Variables["site_url"])
}

func TestHTTPGatewayNotifyAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendMailResponse{Status: "error", Comment: "invalid template", ErrCode: "E104"})
	}))
	defer server.Close()

	gateway := NewHTTPGateway(Config{APIURL: server.URL, APIKey: "test-key"})

	err := gateway.Notify("commuter@example.com", "Subject", "missing_template", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid template")
	assert.Contains(t, err.Error(), "E104")
}

func TestHTTPGatewayNotifyEmptyRecipient(t *testing.T) {
	gateway := NewHTTPGateway(Config{APIURL: "http://localhost:0"})

	err := gateway.Notify("", "Subject", "ticket_booking", nil)
	assert.Error(t, err)
}

func TestLogGatewayNotify(t *testing.T) {
	logger := logrus.New()
	gateway := NewLogGateway(logger)

	err := gateway.Notify("commuter@example.com", "Subject", "ticket_booking", map[string]string{"first_name": "Nimal"})
	assert.NoError(t, err)
}

func TestNewSelectsGatewayByMode(t *testing.T) {
	logger := logrus.New()

	apiGateway := New(Config{Mode: "api", APIURL: "https://mail.example.com"}, logger)
	assert.IsType(t, &HTTPGateway{}, apiGateway)

	logGateway := New(Config{Mode: "log"}, logger)
	assert.IsType(t, &LogGateway{}, logGateway)

	defaultGateway := New(Config{}, logger)
	assert.IsType(t, &LogGateway{}, defaultGateway)
}
