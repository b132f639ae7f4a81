package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init("padlink-test", &buf, false)
	log.Debug().Msg("hidden")
	log.Info().Str("widget", "text").Msg("shown")

	// later calls keep the first logger
	var other bytes.Buffer
	Init("other", &other, true)
	log.Info().Msg("again")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "padlink-test") || !strings.Contains(out, "widget=text") {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(out, "again") || other.Len() != 0 {
		t.Error("expected second Init to be ignored")
	}
}
