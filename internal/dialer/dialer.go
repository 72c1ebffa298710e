// Package dialer drives outbound sales campaigns: it loads a prospect list
// and places one call per prospect through the Twilio client, pacing the
// calls so the account's concurrent-call limits are never in play.
package dialer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/salesline-ai/salesline/internal/eventlog"
	"github.com/salesline-ai/salesline/internal/twilio"
)

// Prospect is one entry in the call list.
type Prospect struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// LoadProspects reads a JSON array of prospects from path.
func LoadProspects(path string) ([]Prospect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prospects file: %w", err)
	}

	var prospects []Prospect
	if err := json.Unmarshal(data, &prospects); err != nil {
		return nil, fmt.Errorf("parse prospects file %s: %w", path, err)
	}
	for i, p := range prospects {
		if strings.TrimSpace(p.Phone) == "" {
			return nil, fmt.Errorf("prospect %d (%q) has no phone number", i, p.Name)
		}
	}
	return prospects, nil
}

// Caller is the slice of the Twilio client the dialer uses.
type Caller interface {
	PlaceCall(ctx context.Context, params twilio.PlaceCallParams) (*twilio.Call, error)
}

// Options configure a dialing run.
type Options struct {
	// From is the caller id, the account's Twilio number.
	From string

	// PublicURL is the externally reachable base URL of the webhook server;
	// /voice and /call-status are resolved against it.
	PublicURL string

	// Pause between consecutive calls. Zero means DefaultPause.
	Pause time.Duration

	// RingTimeout in seconds, 0 for Twilio's default.
	RingTimeout int

	Events *eventlog.Logger
	Log    *log.Logger
}

// DefaultPause keeps back-to-back dials from tripping carrier rate limits.
const DefaultPause = 2 * time.Second

// Dialer places outbound calls.
type Dialer struct {
	caller Caller
	opts   Options
}

// New builds a dialer. From and PublicURL are required.
func New(caller Caller, opts Options) (*Dialer, error) {
	if opts.From == "" {
		return nil, fmt.Errorf("caller id (From number) is required")
	}
	if opts.PublicURL == "" {
		return nil, fmt.Errorf("public webhook URL is required")
	}
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")
	if opts.Pause == 0 {
		opts.Pause = DefaultPause
	}
	if opts.Log == nil {
		opts.Log = log.Default()
	}
	return &Dialer{caller: caller, opts: opts}, nil
}

// Dial places a single call and returns its Twilio SID.
func (d *Dialer) Dial(ctx context.Context, to string) (string, error) {
	return d.dial(ctx, to, uuid.NewString())
}

// dial places one call tagged with a run correlation id.
func (d *Dialer) dial(ctx context.Context, to, runID string) (string, error) {
	call, err := d.caller.PlaceCall(ctx, twilio.PlaceCallParams{
		To:             to,
		From:           d.opts.From,
		VoiceURL:       d.opts.PublicURL + "/voice",
		StatusCallback: d.opts.PublicURL + "/call-status",
		Timeout:        d.opts.RingTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", to, err)
	}

	d.opts.Log.Info("call placed", "to", to, "sid", call.SID, "status", call.Status, "run", runID)
	d.opts.Events.Log(eventlog.Event{
		Type:   eventlog.EventDialPlaced,
		CallID: call.SID,
		Data:   map[string]any{"to": to, "from": d.opts.From, "status": call.Status, "run_id": runID},
	})
	return call.SID, nil
}

// Result records the outcome of one prospect dial.
type Result struct {
	Prospect Prospect
	CallSID  string
	Err      error
}

// DialAll works through the prospect list sequentially, pausing between
// calls. Every call in the run shares one correlation id in the event log.
// A failed dial is recorded and the run continues; ctx cancellation stops
// the run between calls.
func (d *Dialer) DialAll(ctx context.Context, prospects []Prospect) []Result {
	runID := uuid.NewString()
	d.opts.Log.Info("dial run started", "run", runID, "prospects", len(prospects))

	results := make([]Result, 0, len(prospects))
	for i, p := range prospects {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(d.opts.Pause):
			}
		}

		sid, err := d.dial(ctx, p.Phone, runID)
		if err != nil {
			d.opts.Log.Error("dial failed", "to", p.Phone, "name", p.Name, "err", err)
		}
		results = append(results, Result{Prospect: p, CallSID: sid, Err: err})
	}
	return results
}
