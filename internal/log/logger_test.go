package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"impegni/internal/core"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentBilling, Output: &buf})

	logger.Info("Billing period recalculated", FieldAffected, 3)

	out := buf.String()
	if !strings.Contains(out, "component=billing") {
		t.Errorf("missing component in %q", out)
	}
	if !strings.Contains(out, "affected=3") {
		t.Errorf("missing field in %q", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, "component=") {
		t.Errorf("empty component should not be logged: %q", out)
	}
}

func TestWithComponentReplacesName(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Output: &buf}).WithComponent(ComponentAMQP)

	logger.Info("connected")

	if strings.Count(buf.String(), "component=") != 1 || !strings.Contains(buf.String(), "component=amqp") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if logger.Component() != ComponentAMQP {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithOwner("alice").
		WithPeriod(core.Period{Year: 2025, Month: 7}).
		WithError(errors.New("boom")).
		WithError(nil).
		WithOperation(OpUpdate)

	got := f.ToSlice()
	want := []any{
		FieldError, "boom",
		FieldMonth, 7,
		FieldOperation, OpUpdate,
		FieldOwner, "alice",
		FieldYear, 2025,
	}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToSlice()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWithFieldsCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Output: &buf}).
		WithFields(NewFields().WithOperation(OpExport).WithOwner("alice"))

	logger.Warn("export failed")

	out := buf.String()
	for _, want := range []string{"operation=export", "owner=alice", "component=app"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
