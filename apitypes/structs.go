package apitypes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type Client struct {
	Slot int    `json:"slot"`
	Addr string `json:"addr"`
	Link string `json:"link"`
	Mode string `json:"mode"`
}

type ClientsListResponse struct {
	Clients    []Client `json:"clients"`
	MaxClients int      `json:"maxClients"`
}

type BondsListResponse struct {
	Bonds []string `json:"bonds"`
}

type Pairing struct {
	Addr    string `json:"addr"`
	Link    string `json:"link"`
	Passkey string `json:"passkey"`
}

type PairingListResponse struct {
	Pairing []Pairing `json:"pairing"`
}

type PairingResolveResponse struct {
	Addr     string `json:"addr"`
	Accepted bool   `json:"accepted"`
}

type StatusResponse struct {
	Advertising    string    `json:"advertising"`
	Backlog        []string  `json:"backlog"`
	Clients        []Client  `json:"clients"`
	MaxClients     int       `json:"maxClients"`
	Pairing        []Pairing `json:"pairing"`
	MovementQueued int       `json:"movementQueued"`
	DroppedEvents  uint64    `json:"droppedEvents"`
}

type MoveRequest struct {
	DX int16 `json:"dx"`
	DY int16 `json:"dy"`
}

type ButtonsRequest struct {
	Buttons uint8 `json:"buttons"`
}

type MediaRequest struct {
	Keys uint8 `json:"keys"`
}

// UnmarshalJSON accepts the button mask as a number or a hex string ("0x05").
func (b *ButtonsRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Buttons any `json:"buttons"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Buttons == nil {
		return fmt.Errorf("buttons: missing")
	}
	v, err := parseUint8OrHex(raw.Buttons)
	if err != nil {
		return fmt.Errorf("buttons: %w", err)
	}
	b.Buttons = v
	return nil
}

// UnmarshalJSON accepts the key mask as a number or a hex string ("0x01").
func (m *MediaRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Keys any `json:"keys"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Keys == nil {
		return fmt.Errorf("keys: missing")
	}
	v, err := parseUint8OrHex(raw.Keys)
	if err != nil {
		return fmt.Errorf("keys: %w", err)
	}
	m.Keys = v
	return nil
}

// parseUint8OrHex accepts either a JSON number or a hex string like "0x05"
func parseUint8OrHex(v any) (uint8, error) {
	switch val := v.(type) {
	case float64:
		if val < 0 || val > 255 || val != float64(int(val)) {
			return 0, fmt.Errorf("value %v out of uint8 range", val)
		}
		return uint8(val), nil
	case string:
		s := strings.TrimSpace(val)
		base := 10
		if strings.HasPrefix(strings.ToLower(s), "0x") {
			s = s[2:]
			base = 16
		} else if strings.ContainsAny(s, "abcdefABCDEF") {
			base = 16
		}
		parsed, err := strconv.ParseUint(s, base, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex/numeric string %q: %w", val, err)
		}
		return uint8(parsed), nil
	default:
		return 0, fmt.Errorf("expected number or hex string, got %T", v)
	}
}
