package servicecontrol

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/busscope/internal/headers"
	"github.com/roach88/busscope/internal/message"
)

// ParseTimeSpan parses a .NET TimeSpan string: [-][d.]hh:mm:ss[.fffffff].
// The empty string is zero.
func ParseTimeSpan(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	neg := false
	rest := s
	if strings.HasPrefix(rest, "-") {
		neg = true
		rest = rest[1:]
	}

	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time span %q", s)
	}

	var days, hours int64
	var err error
	if d, h, ok := strings.Cut(parts[0], "."); ok {
		if days, err = strconv.ParseInt(d, 10, 64); err != nil {
			return 0, fmt.Errorf("invalid time span %q: days: %w", s, err)
		}
		parts[0] = h
	}
	if hours, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, fmt.Errorf("invalid time span %q: hours: %w", s, err)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time span %q: minutes: %w", s, err)
	}

	secPart, fracPart, _ := strings.Cut(parts[2], ".")
	seconds, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time span %q: seconds: %w", s, err)
	}

	var frac time.Duration
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		n, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time span %q: fraction: %w", s, err)
		}
		for i := len(fracPart); i < 9; i++ {
			n *= 10
		}
		frac = time.Duration(n)
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		frac
	if neg {
		d = -d
	}
	return d, nil
}

// parseTime accepts RFC 3339 with or without a zone. Empty text and the
// .NET minimum date are treated as absent.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0001-01-01T00:00:00") {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05.999999999", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t.UTC(), nil
}

// toMessage converts a wire record. Malformed times and durations are
// logged and left at zero so one bad record does not hide a conversation.
func toMessage(w wireMessage) message.Message {
	m := message.Message{
		ID:                w.MessageID,
		AuditID:           w.ID,
		ConversationID:    w.ConversationID,
		MessageType:       w.MessageType,
		Intent:            message.ParseIntent(w.MessageIntent),
		Status:            message.ParseStatus(w.Status),
		ReceivingEndpoint: toEndpoint(w.ReceivingEndpoint),
		BodyURL:           w.BodyURL,
		BodySize:          w.BodySize,
		InstanceID:        w.InstanceID,
		IsSystemMessage:   w.IsSystemMessage,
		Headers:           headers.New(w.Headers),
	}
	if w.SendingEndpoint != nil {
		e := toEndpoint(*w.SendingEndpoint)
		m.SendingEndpoint = &e
	}

	warn := func(field string, err error) {
		slog.Warn("ignoring malformed field",
			"message_id", w.MessageID,
			"field", field,
			"error", err,
		)
	}

	var err error
	if m.TimeSent, err = parseTime(w.TimeSent); err != nil {
		warn("time_sent", err)
	}
	if m.ProcessedAt, err = parseTime(w.ProcessedAt); err != nil {
		warn("processed_at", err)
	}
	if m.ProcessingTime, err = ParseTimeSpan(w.ProcessingTime); err != nil {
		warn("processing_time", err)
	}
	if m.CriticalTime, err = ParseTimeSpan(w.CriticalTime); err != nil {
		warn("critical_time", err)
	}
	if m.DeliveryTime, err = ParseTimeSpan(w.DeliveryTime); err != nil {
		warn("delivery_time", err)
	}

	for _, s := range w.InvokedSagas {
		m.InvokedSagas = append(m.InvokedSagas, toSaga(s))
	}
	if w.OriginatesFromSaga != nil {
		s := toSaga(*w.OriginatesFromSaga)
		m.OriginatesFromSaga = &s
	}
	return m
}

func toMessages(ws []wireMessage) []message.Message {
	out := make([]message.Message, len(ws))
	for i, w := range ws {
		out[i] = toMessage(w)
	}
	return out
}

func toEndpoint(w wireEndpoint) message.Endpoint {
	return message.Endpoint{Name: w.Name, Host: w.Host, HostID: w.HostID}
}

func toSaga(w wireSaga) message.Saga {
	return message.Saga{SagaID: w.SagaID, SagaType: w.SagaType, ChangeStatus: w.ChangeStatus}
}
