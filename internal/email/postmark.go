package email

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/ten99/ten99/internal/model"
)

const postmarkURL = "https://api.postmarkapp.com/email"

var ErrNotConfigured = errors.New("email client not configured: missing server token")

type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Postmark endpoint.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      postmarkURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

// SendInvoice emails an invoice summary to the client.
func (c *Client) SendInvoice(toEmail, fromName, clientName string, inv model.Invoice) error {
	subject := fmt.Sprintf("Invoice %s from %s", inv.Number, fromName)

	var text, rows strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nPlease find invoice %s below.\n\n", clientName, inv.Number)
	for _, li := range inv.Items {
		fmt.Fprintf(&text, "  %s  %s x %s = %s\n", li.Description, li.Quantity, li.UnitPrice.StringFixed(2), li.Amount().StringFixed(2))
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(li.Description), li.Quantity, li.UnitPrice.StringFixed(2), li.Amount().StringFixed(2))
	}
	total := inv.Total().StringFixed(2)
	fmt.Fprintf(&text, "\nTotal due: %s\n", total)
	if inv.DueDate != "" {
		fmt.Fprintf(&text, "Due by: %s\n", inv.DueDate)
	}
	if inv.Notes != "" {
		fmt.Fprintf(&text, "\n%s\n", inv.Notes)
	}
	fmt.Fprintf(&text, "\nThank you,\n%s", fromName)

	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>Please find invoice <strong>%s</strong> below.</p>`+
			`<table><tr><th>Item</th><th>Qty</th><th>Rate</th><th>Amount</th></tr>%s</table>`+
			`<p><strong>Total due: %s</strong></p>`,
		html.EscapeString(clientName), html.EscapeString(inv.Number), rows.String(), total,
	)
	if inv.DueDate != "" {
		htmlBody += fmt.Sprintf("<p>Due by: %s</p>", html.EscapeString(inv.DueDate))
	}
	if inv.Notes != "" {
		htmlBody += fmt.Sprintf("<p>%s</p>", html.EscapeString(inv.Notes))
	}
	htmlBody += fmt.Sprintf("<p>Thank you,<br>%s</p>", html.EscapeString(fromName))

	return c.send(postmarkEmail{
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: text.String(),
		Tag:      "invoice",
	})
}

// SendReminder emails the owner about an upcoming appointment.
func (c *Client) SendReminder(toEmail string, a model.Appointment) error {
	subject := fmt.Sprintf("Reminder: %s on %s", a.Subject, a.Date)

	when := a.StartTime
	if a.EndTime != "" {
		when += "-" + a.EndTime
	}

	text := fmt.Sprintf("%s\n%s %s\n", a.Subject, a.Date, when)
	htmlBody := fmt.Sprintf("<p><strong>%s</strong></p><p>%s %s</p>",
		html.EscapeString(a.Subject), html.EscapeString(a.Date), html.EscapeString(when))
	if a.Location != "" {
		text += "Location: " + a.Location + "\n"
		htmlBody += fmt.Sprintf("<p>Location: %s</p>", html.EscapeString(a.Location))
	}
	if a.Notes != "" {
		text += "\n" + a.Notes + "\n"
		htmlBody += fmt.Sprintf("<p>%s</p>", html.EscapeString(a.Notes))
	}

	return c.send(postmarkEmail{
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: text,
		Tag:      "reminder",
	})
}

func (c *Client) send(payload postmarkEmail) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	payload.From = c.fromEmail

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
