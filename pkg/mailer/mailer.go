package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Gateway sends templated transactional emails
type Gateway interface {
	Notify(recipient, subject, templateID string, variables map[string]string) error
	GetName() string
}

// Config holds configuration for the mail gateway
type Config struct {
	Mode      string // "api" or "log"
	APIURL    string
	APIKey    string
	FromEmail string
	FromName  string
	SiteURL   string
}

// New selects a gateway for the configured mode. Anything other than
// "api" falls back to the log gateway so dev environments never need
// mail credentials.
func New(config Config, logger *logrus.Logger) Gateway {
	if config.Mode == "api" {
		return NewHTTPGateway(config)
	}
	return NewLogGateway(logger)
}

// HTTPGateway implements email sending via a transactional mail API
type HTTPGateway struct {
	apiURL    string
	apiKey    string
	fromEmail string
	fromName  string
	siteURL   string
	client    *http.Client
}

// NewHTTPGateway creates a new transactional mail API client
func NewHTTPGateway(config Config) *HTTPGateway {
	return &HTTPGateway{
		apiURL:    config.APIURL,
		apiKey:    config.APIKey,
		fromEmail: config.FromEmail,
		fromName:  config.FromName,
		siteURL:   config.SiteURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendMailRequest represents the mail API request structure
type sendMailRequest struct {
	FromEmail  string            `json:"from_email"`
	FromName   string            `json:"from_name"`
	To         string            `json:"to"`
	Subject    string            `json:"subject"`
	TemplateID string            `json:"template_id"`
	Variables  map[string]string `json:"variables,omitempty"`
}

// sendMailResponse represents the mail API response structure
type sendMailResponse struct {
	Status    string `json:"status"`
	Comment   string `json:"comment"`
	MessageID string `json:"message_id"`
	ErrCode   string `json:"errCode"`
}

// Notify sends a templated email to a single recipient
func (g *HTTPGateway) Notify(recipient, subject, templateID string, variables map[string]string) error {
	if recipient == "" {
		return fmt.Errorf("recipient email is required")
	}

	// Every template gets the site URL for links
	vars := make(map[string]string, len(variables)+1)
	for k, v := range variables {
		vars[k] = v
	}
	vars["site_url"] = g.siteURL

	mailReq := sendMailRequest{
		FromEmail:  g.fromEmail,
		FromName:   g.fromName,
		To:         recipient,
		Subject:    subject,
		TemplateID: templateID,
		Variables:  vars,
	}

	jsonData, err := json.Marshal(mailReq)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	url := fmt.Sprintf("%s/send", g.apiURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", g.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read mail response: %w", err)
	}

	var mailResp sendMailResponse
	if err := json.Unmarshal(body, &mailResp); err != nil {
		return fmt.Errorf("failed to parse mail response: %w", err)
	}

	if mailResp.Status != "success" {
		return fmt.Errorf("mail sending failed: %s (error code: %s)", mailResp.Comment, mailResp.ErrCode)
	}

	return nil
}

// GetName returns the name of this mail gateway
func (g *HTTPGateway) GetName() string {
	return "Transactional Mail API Gateway"
}

// LogGateway writes emails to the application log instead of sending
// them. Used in development and tests.
type LogGateway struct {
	logger *logrus.Logger
}

// NewLogGateway creates a log-only mail gateway
func NewLogGateway(logger *logrus.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Notify logs the email instead of sending it
func (g *LogGateway) Notify(recipient, subject, templateID string, variables map[string]string) error {
	g.logger.WithFields(logrus.Fields{
		"recipient":   recipient,
		"subject":     subject,
		"template_id": templateID,
		"variables":   variables,
	}).Info("Mail gateway in log mode, email not sent")
	return nil
}

// GetName returns the name of this mail gateway
func (g *LogGateway) GetName() string {
	return "Log Mail Gateway"
}
