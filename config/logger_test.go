package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelEnabler(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
		ok    bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"normal", zapcore.InfoLevel, true},
		{"none", zapcore.InvalidLevel, false},
		{"", zapcore.InvalidLevel, false},
	}
	for _, tt := range tests {
		got, ok := levelEnabler(tt.level)
		if got != tt.want || ok != tt.ok {
			t.Errorf("levelEnabler(%q) = %v %v, want %v %v", tt.level, got, ok, tt.want, tt.ok)
		}
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	return string(data)
}

func TestLoggingPrepare_FileCarriesRunID(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.log")
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: dest, Mode: "overwrite"},
	}

	log, err := conf.Prepare(nil, "run-1")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("hidden record")
	log.Info("capture done", zap.String("selector", "#card"))
	_ = log.Sync()

	out := readLog(t, dest)
	if !strings.Contains(out, "capture done") || !strings.Contains(out, `"run": "run-1"`) || !strings.Contains(out, `"selector": "#card"`) {
		t.Errorf("unexpected log:\n%s", out)
	}
	if strings.Contains(out, "hidden record") {
		t.Errorf("debug record written at normal level:\n%s", out)
	}
}

func TestLoggingPrepare_Modes(t *testing.T) {
	for _, mode := range []string{"append", "overwrite"} {
		t.Run(mode, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "run.log")
			if err := os.WriteFile(dest, []byte("previous run\n"), 0644); err != nil {
				t.Fatal(err)
			}
			conf := LoggingConfig{
				ConsoleLogger: LoggerConfig{Level: "none"},
				FileLogger:    LoggerConfig{Level: "debug", Destination: dest, Mode: mode},
			}
			log, err := conf.Prepare(nil, "")
			if err != nil {
				t.Fatalf("Prepare() error = %v", err)
			}
			log.Debug("next run")
			_ = log.Sync()

			out := readLog(t, dest)
			if kept := strings.Contains(out, "previous run"); kept != (mode == "append") {
				t.Errorf("previous records kept = %v in %s mode:\n%s", kept, mode, out)
			}
			if !strings.Contains(out, "next run") {
				t.Errorf("new record missing:\n%s", out)
			}
			if strings.Contains(out, `"run"`) {
				t.Errorf("empty run id should not be logged:\n%s", out)
			}
		})
	}
}

func TestLoggingPrepare_ReportRedirectsLog(t *testing.T) {
	tmpDir := t.TempDir()
	rc := ReporterConfig{Destination: filepath.Join(tmpDir, "report.zip")}
	rpt, err := rc.Prepare()
	if err != nil {
		t.Fatal(err)
	}

	// file logging is off and destination is unusable, report still gets a log
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "none", Destination: filepath.Join(tmpDir, "missing", "run.log")},
	}
	log, err := conf.Prepare(rpt, "run-2")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("inside report")
	_ = log.Sync()
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readArchive(t, rc.Destination)
	final, ok := files["final.log"]
	if !ok {
		t.Fatalf("report has no final.log, got %d files", len(files))
	}
	for _, want := range []string{"Log file was redirected to new location", "inside report", `"run": "run-2"`} {
		if !strings.Contains(final, want) {
			t.Errorf("final.log misses %q:\n%s", want, final)
		}
	}
}

// verboseError renders extra details with %+v, zap logs them as errorVerbose.
type verboseError struct{}

func (verboseError) Error() string { return "fetch failed" }

func (e verboseError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprint(s, "fetch failed\nstack details")
		return
	}
	fmt.Fprint(s, e.Error())
}

func TestConsoleEncoderDropsVerboseErrors(t *testing.T) {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = zapcore.OmitKey
	ent := zapcore.Entry{Level: zapcore.ErrorLevel, Time: time.Now(), Message: "unable to capture"}
	fields := []zapcore.Field{zap.Error(verboseError{})}

	plain, err := zapcore.NewConsoleEncoder(cfg).EncodeEntry(ent, fields)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(plain.String(), "stack details") {
		t.Fatalf("expected verbose error from plain encoder:\n%s", plain.String())
	}

	short, err := newEncoder(cfg).Clone().EncodeEntry(ent, fields)
	if err != nil {
		t.Fatal(err)
	}
	out := short.String()
	if strings.Contains(out, "stack details") || !strings.Contains(out, "fetch failed") {
		t.Errorf("unexpected console output:\n%s", out)
	}
}
