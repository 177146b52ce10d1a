package storage

import (
	"testing"
	"time"
)

func TestMaintenance_PrunesOldRows(t *testing.T) {
	store := newTestSQLiteStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	rows := []struct {
		tool string
		at   time.Time
	}{
		{"web_search", now.AddDate(0, 0, -120)},
		{"read_url", now.AddDate(0, 0, -91)},
		{"web_search", now.AddDate(0, 0, -89)},
		{"google_search", now.Add(-time.Hour)},
	}
	for _, r := range rows {
		_, err := store.db.Exec("INSERT INTO usage_log (tool_name, timestamp) VALUES (?, ?)",
			r.tool, FormatTimestamp(r.at))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	pruned, err := store.runMaintenanceCycle(now, 90)
	if err != nil {
		t.Fatalf("runMaintenanceCycle failed: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM usage_log").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("remaining rows = %d, want 2", count)
	}
}

func TestMaintenance_DisabledRetention(t *testing.T) {
	store := newTestSQLiteStore(t)
	now := time.Now()

	_, err := store.db.Exec("INSERT INTO usage_log (tool_name, timestamp) VALUES (?, ?)",
		"web_search", FormatTimestamp(now.AddDate(-5, 0, 0)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	pruned, err := store.runMaintenanceCycle(now, 0)
	if err != nil {
		t.Fatalf("runMaintenanceCycle failed: %v", err)
	}
	if pruned != 0 {
		t.Errorf("pruned = %d with retention disabled", pruned)
	}
}

func TestMaintenance_StopsOnClose(t *testing.T) {
	store := newTestSQLiteStore(t)
	store.cancelMaint()

	select {
	case <-store.maintenanceDone:
	case <-time.After(2 * time.Second):
		t.Fatal("maintenance goroutine did not stop after cancel")
	}
}
