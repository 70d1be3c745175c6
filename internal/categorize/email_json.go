package categorize

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Clients send loosely typed emails. Decoding is field-by-field: a field
// with the wrong JSON type is left at its zero value instead of failing
// the whole email, and timestamps that cannot be parsed stay nil so the
// awaiting-reply branch is skipped.

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon Jan 2 2006",
	"Jan 2 2006",
}

// UnmarshalJSON accepts a string or numeric id; numbers keep their literal text.
func (e *Email) UnmarshalJSON(data []byte) error {
	fields, ok := objectFields(data)
	if !ok {
		*e = Email{}
		return nil
	}

	out := Email{
		ID:      idField(fields["id"]),
		Sender:  stringField(fields["sender"]),
		Subject: stringField(fields["subject"]),
		Content: stringField(fields["content"]),
	}
	if raw, ok := fields["metadata"]; ok && !isNull(raw) {
		m := &Metadata{}
		if err := m.UnmarshalJSON(raw); err != nil {
			return err
		}
		out.Metadata = m
	}
	*e = out
	return nil
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	fields, ok := objectFields(data)
	if !ok {
		*m = Metadata{}
		return nil
	}

	out := Metadata{
		ToRecipients:     stringsField(fields["torecipients"]),
		CCRecipients:     stringsField(fields["ccrecipients"]),
		IsReply:          boolField(fields["isreply"]),
		IsForward:        boolField(fields["isforward"]),
		IsCC:             boolField(fields["iscc"]),
		SentByMe:         boolField(fields["sentbyme"]),
		SentToMe:         boolField(fields["senttome"]),
		HasReply:         boolField(fields["hasreply"]),
		OriginalSentByMe: boolField(fields["originalsentbyme"]),
		ConversationID:   stringField(fields["conversationid"]),
		InReplyTo:        stringField(fields["inreplyto"]),
		Importance:       stringField(fields["importance"]),
		Platform:         stringField(fields["platform"]),
		SentDateTime:     timeField(fields["sentdatetime"]),
		ReceivedDateTime: timeField(fields["receiveddatetime"]),
	}
	*m = out
	return nil
}

// ParseTimestamp parses RFC 3339 and a few common layouts, or Unix
// milliseconds when given a number. ok is false for empty or unknown input.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// objectFields decodes a JSON object with lowercased keys, matching
// encoding/json's case-insensitive field lookup.
func objectFields(data []byte) (map[string]json.RawMessage, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, false
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		out[strings.ToLower(k)] = v
	}
	return out, true
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(raw json.RawMessage) string {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func idField(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return stringField(raw)
}

func boolField(raw json.RawMessage) bool {
	var b bool
	if isNull(raw) || json.Unmarshal(raw, &b) != nil {
		return false
	}
	return b
}

func stringsField(raw json.RawMessage) []string {
	var items []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := stringField(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func timeField(raw json.RawMessage) *time.Time {
	if isNull(raw) {
		return nil
	}
	var ms json.Number
	if err := json.Unmarshal(raw, &ms); err == nil {
		if v, err := ms.Int64(); err == nil {
			t := time.UnixMilli(v).UTC()
			return &t
		}
		return nil
	}
	t, ok := ParseTimestamp(stringField(raw))
	if !ok {
		return nil
	}
	return &t
}
