package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintf(o.w, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case PlayerStatus:
		o.printPlayerStatus(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// PlayerStatus response type (matches API)
type PlayerStatus struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"display_name"`
	Lives          int        `json:"lives"`
	Dead           bool       `json:"dead"`
	State          string     `json:"state"`
	GraceRemaining string     `json:"grace_remaining,omitempty"`
	FirstSeenAt    time.Time  `json:"first_seen_at"`
	LastDeathAt    *time.Time `json:"last_death_at,omitempty"`
	PlayTime       string     `json:"play_time"`
	Online         bool       `json:"online"`
}

// HealthResult response type
type HealthResult struct {
	Status          string `json:"status"`
	Mode            string `json:"mode,omitempty"`
	BridgeConnected bool   `json:"bridge_connected"`
}

func (o *Output) printPlayerStatus(p PlayerStatus) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Fprintf(o.w, "State: %s\n", p.State)
	fmt.Fprintf(o.w, "Lives: %d\n", p.Lives)
	if p.GraceRemaining != "" {
		fmt.Fprintf(o.w, "Grace remaining: %s\n", p.GraceRemaining)
	}
	fmt.Fprintf(o.w, "Play time: %s\n", p.PlayTime)
	fmt.Fprintf(o.w, "First seen: %s\n", p.FirstSeenAt.Format(time.RFC3339))
	if p.LastDeathAt != nil {
		fmt.Fprintf(o.w, "Last death: %s\n", p.LastDeathAt.Format(time.RFC3339))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Mode != "" {
		fmt.Fprintf(o.w, "Mode: %s\n", h.Mode)
	}
	bridge := "disconnected"
	if h.BridgeConnected {
		bridge = "connected"
	}
	fmt.Fprintf(o.w, "Game server: %s\n", bridge)
}
