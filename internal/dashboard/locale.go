package dashboard

import (
	"fmt"
	"time"
)

// Locale is a fixed presentation profile for timestamps and labels.
type Locale struct {
	Name string

	// TimestampLayout renders log timestamps (month, day, hour, minute,
	// second; 24-hour).
	TimestampLayout string

	// ClockLayout renders the wall-clock part of the refreshed label.
	ClockLayout string

	RefreshedPrefix string
	StatusSuccess   string
	InvalidDate     string

	// Location is the zone timestamps are shown in. Nil means time.Local.
	Location *time.Location
}

// ZhCN is the zh-CN profile: "01/02 15:04:05" for log rows and
// "最后更新: 15:04:05" for the label.
var ZhCN = Locale{
	Name:            "zh-CN",
	TimestampLayout: "01/02 15:04:05",
	ClockLayout:     "15:04:05",
	RefreshedPrefix: "最后更新: ",
	StatusSuccess:   "Success",
	InvalidDate:     "Invalid Date",
}

// LocaleFor looks up a supported profile by name.
func LocaleFor(name string) (Locale, error) {
	switch name {
	case "zh-CN", "":
		return ZhCN, nil
	}
	return Locale{}, fmt.Errorf("unsupported locale %q", name)
}

// offsetLayouts carry an explicit zone: RFC 3339 and the basic +hhmm form.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
}

// naiveLayouts are ISO-8601 forms without a zone designator. Like a browser's
// Date parser they are read as local time. Python's isoformat() emits the
// first form.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
}

// FormatTimestamp renders an ISO-8601 string in the locale's short form.
// Input that does not parse yields InvalidDate instead of an error.
func (l Locale) FormatTimestamp(iso string) string {
	t, ok := l.parseISO(iso)
	if !ok {
		return l.InvalidDate
	}
	return t.In(l.location()).Format(l.TimestampLayout)
}

// RefreshedLabel is the "last updated" text for the given wall-clock time.
func (l Locale) RefreshedLabel(now time.Time) string {
	return l.RefreshedPrefix + now.In(l.location()).Format(l.ClockLayout)
}

func (l Locale) parseISO(s string) (time.Time, bool) {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, l.location()); err == nil {
			return t, true
		}
	}
	// Date-only forms are UTC per ECMAScript.
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (l Locale) location() *time.Location {
	if l.Location != nil {
		return l.Location
	}
	return time.Local
}
