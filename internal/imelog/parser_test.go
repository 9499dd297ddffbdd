package imelog

import (
	"testing"
	"time"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantOK        bool
		wantMessage   string
		wantComponent string
		wantZeroTime  bool
	}{
		{
			name:          "well formed line",
			raw:           `<![LOG[Win32App starting processing]LOG]!><time="14:03:07.1234567" date="3-28-2024" component="IntuneManagementExtension" context="" type="1" thread="8" file="Main.cs">`,
			wantOK:        true,
			wantMessage:   "Win32App starting processing",
			wantComponent: "IntuneManagementExtension",
		},
		{
			name:        "message containing brackets",
			raw:         `<![LOG[Get policies = [{"Id":"x"}]]LOG]!><time="01:02:03.0000000" date="1-5-2024" component="Agent" context="" type="1" thread="3" file="">`,
			wantOK:      true,
			wantMessage: `Get policies = [{"Id":"x"}]`,
		},
		{
			name:         "time with offset suffix",
			raw:          `<![LOG[msg]LOG]!><time="14:03:07.1234567+480" date="3-28-2024" component="A" context="" type="1" thread="8" file="">`,
			wantOK:       true,
			wantMessage:  "msg",
			wantZeroTime: false,
		},
		{
			name:         "malformed date degrades to zero timestamp",
			raw:          `<![LOG[msg]LOG]!><time="14:03:07.1234567" date="not-a-date" component="A" context="" type="1" thread="8" file="">`,
			wantOK:       true,
			wantMessage:  "msg",
			wantZeroTime: true,
		},
		{
			name:         "missing time attribute degrades to zero timestamp",
			raw:          `<![LOG[msg]LOG]!><date="3-28-2024" component="A">`,
			wantOK:       true,
			wantMessage:  "msg",
			wantZeroTime: true,
		},
		{
			name:   "continuation line without envelope",
			raw:    "   at StackFrame.Deeper()",
			wantOK: false,
		},
		{
			name:   "empty line",
			raw:    "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := ParseLine(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if entry.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", entry.Message, tt.wantMessage)
			}
			if tt.wantComponent != "" && entry.Component != tt.wantComponent {
				t.Errorf("Component = %q, want %q", entry.Component, tt.wantComponent)
			}
			if entry.Timestamp.IsZero() != tt.wantZeroTime {
				t.Errorf("Timestamp zero = %v, want %v (got %v)", entry.Timestamp.IsZero(), tt.wantZeroTime, entry.Timestamp)
			}
		})
	}
}

func TestParseLineTimestampValues(t *testing.T) {
	raw := `<![LOG[x]LOG]!><time="14:03:07.1234567" date="3-28-2024" component="A" context="" type="1" thread="8" file="">`
	entry, ok := ParseLine(raw)
	if !ok {
		t.Fatal("expected envelope to parse")
	}

	want := time.Date(2024, time.March, 28, 14, 3, 7, 123456700, time.Local)
	if !entry.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", entry.Timestamp, want)
	}
}
