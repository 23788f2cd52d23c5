package timeouts

import (
	"testing"
	"time"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})
	if Short() != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", Short())
	}
	if Ping() != DefaultPing || Medium() != DefaultMedium || Long() != DefaultLong {
		t.Errorf("unset values changed: %+v", Current())
	}

	Reset()
	if Short() != DefaultShort {
		t.Errorf("Reset() left Short() = %v", Short())
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("NAMAJTRACKER_TIMEOUT_PING", "500ms")
	t.Setenv("NAMAJTRACKER_TIMEOUT_MEDIUM", "not-a-duration")
	t.Setenv("NAMAJTRACKER_TIMEOUT_LONG", "-1s")

	if n := ConfigureFromEnv(); n != 1 {
		t.Errorf("ConfigureFromEnv() = %d, want 1", n)
	}
	if Ping() != 500*time.Millisecond {
		t.Errorf("Ping() = %v, want 500ms", Ping())
	}
	if Medium() != DefaultMedium || Long() != DefaultLong {
		t.Errorf("invalid values should be ignored: %+v", Current())
	}
}
