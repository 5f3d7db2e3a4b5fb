package logger

import (
	"strings"
	"testing"
)

func TestMemLogger_DefaultSettings_LogsInfoAndError(t *testing.T) {
	l := NewMemLogger().SetFlags(0)
	l.Infof("some %s entry", "info")
	l.Errorf("some %s entry", "error")
	l.Tracef("some %s entry", "trace")

	out := l.String()
	if !strings.Contains(out, "[INF] some info entry") {
		t.Errorf("expected log to contain info entry, but got:\n%s", out)
	}
	if !strings.Contains(out, "[ERR] some error entry") {
		t.Errorf("expected log to contain error entry, but got:\n%s", out)
	}
	if strings.Contains(out, "trace") {
		t.Errorf("expected log not to contain trace entry, but got:\n%s", out)
	}
}

func TestMemLogger_SetTrace_LogsTrace(t *testing.T) {
	l := NewMemLogger().SetFlags(0).SetTrace(true)
	l.Tracef("some %s entry", "trace")

	if !strings.Contains(l.String(), "[TRA] some trace entry") {
		t.Errorf("expected log to contain trace entry, but got:\n%s", l.String())
	}
}

func TestMemLogger_DisabledLevels_LogsNothing(t *testing.T) {
	l := NewMemLogger().SetFlags(0).SetInfo(false).SetErr(false)
	l.Infof("info entry")
	l.Errorf("error entry")

	if l.String() != "" {
		t.Errorf("expected empty log, but got:\n%s", l.String())
	}
}
