// Package webhook relays report lifecycle events to Discord. Every send
// is best-effort: failures are logged and never surfaced to the caller,
// which has already committed the triggering change to storage.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/msntech/reports-api/internal/config"
	"github.com/msntech/reports-api/internal/domain/report"
	"github.com/msntech/reports-api/internal/pkg/ratelimit"
)

const sendTimeout = 10 * time.Second

// Embed colors per event category.
const (
	colorNewReport = 0xe74c3c
	colorComment   = 0x3498db
	colorDeletion  = 0x95a5a6
)

// embed mirrors the subset of the Discord embed object the sender uses.
type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type payload struct {
	Embeds []embed `json:"embeds"`
}

// Sender posts lifecycle embeds to per-category webhook endpoints. A
// disabled or unconfigured category is a silent no-op.
type Sender struct {
	enabled       bool
	reports       config.WebhookEndpoint
	statusChanges config.WebhookEndpoint
	adminNotes    config.WebhookEndpoint
	adminChanges  config.WebhookEndpoint

	limiter *ratelimit.Limiter
	http    *http.Client
}

// NewSender creates the dispatcher. The limiter gates outbound sends
// against the shared downstream rate limit.
func NewSender(cfg *config.Config, limiter *ratelimit.Limiter) *Sender {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Sender{
		enabled:       cfg.DiscordEnabled,
		reports:       cfg.ReportsWebhook,
		statusChanges: cfg.StatusChangesWebhook,
		adminNotes:    cfg.AdminNotesWebhook,
		adminChanges:  cfg.AdminChangesWebhook,
		limiter:       limiter,
		http: &http.Client{
			Timeout:   sendTimeout,
			Transport: transport,
		},
	}
}

// NotifySubmission relays a freshly persisted report. It consults the
// global webhook cooldown first; a throttled send is skipped without
// affecting the persistence outcome. The return value reports whether a
// send was dispatched.
func (s *Sender) NotifySubmission(r *report.Report, id int64) bool {
	if !s.active(s.reports) {
		return false
	}
	if !s.limiter.Allow("", ratelimit.ActionWebhook) {
		log.Warn().Int64("report_id", id).Msg("Webhook cooldown active, submission notification skipped")
		return false
	}

	e := embed{
		Title:       "Bug Report from " + r.PlayerName,
		Description: r.Description,
		Color:       colorNewReport,
		Fields: []embedField{
			{
				Name: "Player Info",
				Value: fmt.Sprintf("UUID: %s\nHealth: %.1f\nLevel: %d\nGameMode: %s",
					r.PlayerUUID, r.Health, r.Level, r.GameMode),
				Inline: true,
			},
			{Name: "Location", Value: r.Location(), Inline: true},
			{Name: "Inventory", Value: truncate(r.Inventory, 1024), Inline: false},
		},
		Footer:    &embedFooter{Text: fmt.Sprintf("Report ID: %d", id)},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	s.dispatch(s.reports.URL, "submission", e)
	return true
}

// NotifyStatusChange relays a status transition.
func (s *Sender) NotifyStatusChange(id int64, oldStatus, newStatus report.Status, actor string) {
	if !s.active(s.statusChanges) {
		return
	}

	e := embed{
		Title: fmt.Sprintf("Report #%d Status Updated", id),
		Description: fmt.Sprintf("%s → %s by %s",
			oldStatus.Display(), newStatus.Display(), actor),
		Color:     newStatus.Color(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	s.dispatch(s.statusChanges.URL, "status change", e)
}

// NotifyComment relays a comment append.
func (s *Sender) NotifyComment(id int64, author, text string) {
	if !s.active(s.adminNotes) {
		return
	}

	e := embed{
		Title:       fmt.Sprintf("New Comment on Report #%d", id),
		Description: truncate(text, 2048),
		Color:       colorComment,
		Fields: []embedField{
			{Name: "Author", Value: author, Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	s.dispatch(s.adminNotes.URL, "comment", e)
}

// NotifyDeletion relays a confirmed deletion with the pre-delete
// snapshot.
func (s *Sender) NotifyDeletion(r *report.Report, actor string) {
	if !s.active(s.adminChanges) {
		return
	}

	e := embed{
		Title:       fmt.Sprintf("Report #%d Deleted", r.ID),
		Description: truncate(r.Description, 2048),
		Color:       colorDeletion,
		Fields: []embedField{
			{Name: "Reported By", Value: r.PlayerName, Inline: true},
			{Name: "Deleted By", Value: actor, Inline: true},
			{Name: "Status", Value: r.Status.Display(), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	s.dispatch(s.adminChanges.URL, "deletion", e)
}

func (s *Sender) active(ep config.WebhookEndpoint) bool {
	return s.enabled && ep.Enabled && ep.URL != ""
}

// dispatch posts the embed on its own goroutine so the caller never
// blocks on the network.
func (s *Sender) dispatch(url, kind string, e embed) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := s.post(ctx, url, e); err != nil {
			log.Error().Err(err).Str("kind", kind).Msg("Failed to send Discord notification")
			return
		}
		log.Debug().Str("kind", kind).Msg("Discord notification sent")
	}()
}

func (s *Sender) post(ctx context.Context, url string, e embed) error {
	body, err := json.Marshal(payload{Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("webhook marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("webhook send: status=%d body=%s", resp.StatusCode, string(b))
}

func truncate(s string, max int) string {
	if s == "" {
		return "Empty"
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
