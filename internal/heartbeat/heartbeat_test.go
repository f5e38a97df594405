package heartbeat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteReadCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "heartbeat.json")

	w := NewWriter(path, "127.0.0.1:8000", "codepilot")
	w.Start()
	defer w.Stop()

	status, hb, err := Check(path, 2*time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusAlive {
		t.Errorf("expected alive, got %s", status)
	}
	if hb == nil {
		t.Fatal("expected heartbeat, got nil")
	}
	if hb.PID != os.Getpid() {
		t.Errorf("PID: got %d, want %d", hb.PID, os.Getpid())
	}
	if hb.Addr != "127.0.0.1:8000" || hb.Model != "codepilot" {
		t.Errorf("unexpected heartbeat %+v", hb)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxAge  time.Duration
		want    Status
		wantErr bool
	}{
		{
			name:    "stale",
			content: mustJSON(t, Heartbeat{PID: 1, Timestamp: time.Now().Add(-time.Hour)}),
			maxAge:  30 * time.Minute,
			want:    StatusStale,
		},
		{
			name:    "alive",
			content: mustJSON(t, Heartbeat{PID: 1, Timestamp: time.Now()}),
			maxAge:  time.Minute,
			want:    StatusAlive,
		},
		{
			name:    "corrupt",
			content: "{not json",
			maxAge:  time.Minute,
			want:    StatusDead,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "heartbeat.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			status, _, err := Check(path, tt.maxAge)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if status != tt.want {
				t.Errorf("status = %s, want %s", status, tt.want)
			}
		})
	}
}

func TestDeadDetection(t *testing.T) {
	status, hb, err := Check(filepath.Join(t.TempDir(), "heartbeat.json"), 2*time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusDead {
		t.Errorf("expected dead, got %s", status)
	}
	if hb != nil {
		t.Errorf("expected nil heartbeat, got %+v", hb)
	}
}

func TestStopRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")

	w := NewWriter(path, "", "")
	w.Start()
	w.Stop()
	w.Stop()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected heartbeat file to be removed after Stop")
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
