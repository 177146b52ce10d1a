package dashboard

import (
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	loc := ZhCN
	loc.Location = shanghai

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"utc designator", "2024-01-01T10:00:00Z", "01/01 18:00:00"},
		{"explicit offset", "2024-01-01T10:00:00+08:00", "01/01 10:00:00"},
		{"offset without colon", "2024-01-01T10:00:00+0800", "01/01 10:00:00"},
		{"negative offset without colon", "2024-01-01T10:00:00.5-0500", "01/01 23:00:00"},
		{"fractional utc", "2024-12-31T23:59:59.123Z", "01/01 07:59:59"},
		{"naive python isoformat", "2024-06-15T09:07:05.123456", "06/15 09:07:05"},
		{"naive seconds", "2024-06-15T09:07:05", "06/15 09:07:05"},
		{"naive minutes", "2024-06-15T09:07", "06/15 09:07:00"},
		{"date only is utc", "2024-06-15", "06/15 08:00:00"},
		{"garbage", "not-a-date", "Invalid Date"},
		{"empty", "", "Invalid Date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loc.FormatTimestamp(tt.in); got != tt.want {
				t.Errorf("FormatTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRefreshedLabel_UsesWallClock(t *testing.T) {
	loc := ZhCN
	loc.Location = time.UTC
	got := loc.RefreshedLabel(time.Date(2024, 1, 1, 23, 4, 5, 0, time.UTC))
	if got != "最后更新: 23:04:05" {
		t.Errorf("RefreshedLabel = %q", got)
	}
}

func TestLocaleFor(t *testing.T) {
	l, err := LocaleFor("zh-CN")
	if err != nil {
		t.Fatalf("LocaleFor(zh-CN) failed: %v", err)
	}
	if l.Name != "zh-CN" {
		t.Errorf("Name = %q", l.Name)
	}
	if _, err := LocaleFor("fr-FR"); err == nil {
		t.Error("expected error for unsupported locale")
	}
}
