package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/domain"
)

// OpenF1 talks to api.openf1.org or anything serving the same shape
// (the local sessions-simulator).
type OpenF1 struct {
	BaseURL string
	HTTP    *http.Client
	log     *zap.Logger
}

func NewOpenF1(baseURL string, log *zap.Logger) *OpenF1 {
	return &OpenF1{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

func (o *OpenF1) Name() string { return "openf1" }

func (o *OpenF1) FetchSessions(ctx context.Context, f domain.EventFilter) []Session {
	q := url.Values{}
	if f.Year != nil {
		q.Set("year", strconv.Itoa(*f.Year))
	}
	if f.Country != "" {
		q.Set("country_name", f.Country)
	}
	if f.SessionType != "" {
		q.Set("session_name", f.SessionType)
	}

	items, err := o.getList(ctx, "/v1/sessions", q)
	if err != nil {
		o.log.Warn("openf1 sessions fetch failed", zap.Error(err))
		return nil
	}

	out := make([]Session, 0, len(items))
	for _, it := range items {
		out = append(out, mapSession(it))
	}
	return out
}

func (o *OpenF1) FetchDrivers(ctx context.Context, sessionKey string) []Driver {
	if sessionKey == "" {
		return nil
	}
	items, err := o.getList(ctx, "/v1/drivers", url.Values{"session_key": {sessionKey}})
	if err != nil {
		o.log.Warn("openf1 drivers fetch failed", zap.String("session_key", sessionKey), zap.Error(err))
		return nil
	}

	out := make([]Driver, 0, len(items))
	for _, it := range items {
		d, ok := mapDriver(it)
		if !ok {
			o.log.Debug("skipping driver without number", zap.String("session_key", sessionKey))
			continue
		}
		out = append(out, d)
	}
	return out
}

// getList accepts either a bare JSON array or an object wrapping it in "data".
func (o *OpenF1) getList(ctx context.Context, path string, q url.Values) ([]map[string]any, error) {
	u := o.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := o.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("openf1 %s: rate limited (429)", path)
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("openf1 %s: http %d", path, res.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		raw = wrapped.Data
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode %s items: %w", path, err)
	}
	return items, nil
}

func mapSession(m map[string]any) Session {
	s := Session{
		Key:         text(m, "session_key"),
		Country:     text(m, "country_name"),
		SessionType: text(m, "session_type"),
	}
	if s.Key == "" {
		s.Key = uuid.NewString()
	}

	name := text(m, "session_name")
	if name == "" {
		name = "Session"
	}
	if circuit := text(m, "circuit_short_name"); circuit != "" {
		name += " - " + circuit
	}
	s.Name = name

	if y, err := strconv.Atoi(text(m, "year")); err == nil {
		s.Year = &y
	}
	if ds := text(m, "date_start"); ds != "" {
		if t, err := time.Parse(time.RFC3339, ds); err == nil {
			t = t.UTC()
			s.StartTime = &t
		}
	}
	return s
}

func mapDriver(m map[string]any) (Driver, bool) {
	num := text(m, "driver_number")
	if num == "" {
		num = text(m, "id")
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return Driver{}, false
	}

	name := text(m, "full_name")
	if name == "" {
		name = strings.TrimSpace(text(m, "first_name") + " " + text(m, "last_name"))
	}
	if name == "" {
		name = "Driver " + strconv.Itoa(n)
	}
	return Driver{Number: n, FullName: name}, true
}

// text renders a scalar JSON value as trimmed text; missing and null are "".
func text(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
