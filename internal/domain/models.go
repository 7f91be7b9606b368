// Package domain defines the records persisted by the flat-file store and the
// per-session dispense marker. These types are shared across the repository,
// service, and transport layers.
package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// GuestName is used when a visitor leaves the name field blank.
const GuestName = "Invité"

// Verse is one entry of the pre-seeded verse collection. Its structure is
// opaque to the application: whatever keys the collection file carries are
// handed to the view unchanged.
type Verse map[string]any

// Fields returns the verse keys in a stable order with their values, which is
// what the templates iterate over when a verse has no well-known shape.
func (v Verse) Fields() []VerseField {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]VerseField, 0, len(keys))
	for _, k := range keys {
		out = append(out, VerseField{Key: k, Value: v[k]})
	}
	return out
}

// Text returns the first present string value among the usual text keys.
func (v Verse) Text() string {
	return v.firstString("text", "verse", "content", "texte")
}

// Reference returns the first present string value among the usual
// reference keys (e.g. "Jean 3:16").
func (v Verse) Reference() string {
	return v.firstString("reference", "ref", "reference_fr")
}

func (v Verse) firstString(keys ...string) string {
	for _, k := range keys {
		if s, ok := v[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// VerseField is a single key/value pair of a Verse.
type VerseField struct {
	Key   string
	Value any
}

// PrayerRequest is one submission of the prayer form. Records are appended to
// the request log and never mutated or deleted.
//
// Fields:
//   - Name / Phone / Prayer: form values as submitted (trimmed).
//   - SubmittedAt: ISO-8601 text as stored. New records get a UTC,
//     millisecond-precision Stamp; older entries keep whatever they carry.
//   - Extra: keys of legacy entries that have no field here. They are
//     written back unchanged.
type PrayerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Prayer      string `json:"prayer"`
	SubmittedAt string `json:"submitted_at"`

	Extra map[string]json.RawMessage `json:"-"`
}

var prayerKeys = []string{"name", "phone", "prayer", "submitted_at"}

// UnmarshalJSON decodes the known keys and keeps the rest in Extra.
func (r *PrayerRequest) UnmarshalJSON(data []byte) error {
	type plain PrayerRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range prayerKeys {
		delete(fields, k)
	}
	p.Extra = nil
	if len(fields) > 0 {
		p.Extra = fields
	}
	*r = PrayerRequest(p)
	return nil
}

// MarshalJSON writes the known keys first, then Extra sorted by key.
func (r PrayerRequest) MarshalJSON() ([]byte, error) {
	type plain PrayerRequest
	out, err := json.Marshal(plain(r))
	if err != nil || len(r.Extra) == 0 {
		return out, err
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(out[:len(out)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(r.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TimestampLayout is the layout of SubmittedAt for new records. It matches
// the ISO-8601 strings produced by the legacy service.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Stamp formats t as a SubmittedAt value. The zero time yields "".
func Stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// DispenseMarker records when a session last received a verse.
type DispenseMarker struct {
	LastVerseTime time.Time `json:"last_verse_time"`
}

// Eligible reports whether a new verse may be dispensed at now given the
// rate-limit window. A zero marker is always eligible.
func (m DispenseMarker) Eligible(now time.Time, window time.Duration) bool {
	if m.LastVerseTime.IsZero() {
		return true
	}
	return !now.Before(m.LastVerseTime.Add(window))
}

// NextEligible returns the earliest instant a new verse may be dispensed.
func (m DispenseMarker) NextEligible(window time.Duration) time.Time {
	return m.LastVerseTime.Add(window)
}
