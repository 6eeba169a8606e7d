package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"htmlsnap/misc"
)

// Logger levels and file modes accepted in configuration.
const (
	levelDebug  = "debug"
	levelNormal = "normal"

	modeAppend    = "append"
	modeOverwrite = "overwrite"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// Prepare returns program logger. Console output is split between stdout and
// stderr, file output (when requested) carries run id on every record so
// captures appended to the same log could be told apart. Debug report forces
// full file logging.
func (conf *LoggingConfig) Prepare(rpt *Report, runID string) (*zap.Logger, error) {
	consoleHP, consoleLP := consoleCores(conf.ConsoleLogger.Level)

	file := conf.FileLogger
	if rpt != nil {
		file.Level, file.Mode = levelDebug, modeOverwrite
	}
	fc, redirected, err := fileCore(file, rpt)
	if err != nil {
		return nil, err
	}
	if runID != "" {
		fc = fc.With([]zapcore.Field{zap.String("run", runID)})
	}

	log := zap.New(zapcore.NewTee(consoleHP, consoleLP, fc), zap.AddCaller())
	if redirected != "" {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log.Named(misc.GetAppName()), nil
}

// consoleCores returns high (errors, stderr) and low (stdout) priority cores.
func consoleCores(level string) (zapcore.Core, zapcore.Core) {
	lowest, ok := levelEnabler(level)
	if !ok {
		return zapcore.NewNopCore(), zapcore.NewNopCore()
	}
	hp := zapcore.NewCore(newEncoder(consoleEncoderConfig(os.Stderr)), zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		}))
	lp := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig(os.Stdout)), zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lowest.Enabled(lvl) && lvl < zapcore.ErrorLevel
		}))
	return hp, lp
}

// levelEnabler maps configured level to minimal enabled zap level.
func levelEnabler(level string) (zapcore.Level, bool) {
	switch level {
	case levelDebug:
		return zapcore.DebugLevel, true
	case levelNormal:
		return zapcore.InfoLevel, true
	}
	return zapcore.InvalidLevel, false
}

// fileCore opens log file and crash output next to it. When destination is
// not writable log goes to a temporary file, its name is returned.
func fileCore(conf LoggerConfig, rpt *Report) (zapcore.Core, string, error) {
	lowest, ok := levelEnabler(conf.Level)
	if !ok {
		return zapcore.NewNopCore(), "", nil
	}

	capturePanics(filepath.Dir(conf.Destination), conf.Mode, rpt)

	var redirected string
	f, err := openLog(conf.Destination, conf.Mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err != nil {
			return nil, "", fmt.Errorf("unable to access file log destination (%s): %w", conf.Destination, err)
		}
		redirected = f.Name()
	}
	rpt.Store("final.log", f.Name())

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zapcore.NewCore(enc, zapcore.Lock(f), zap.NewAtomicLevelAt(lowest)), redirected, nil
}

// capturePanics directs runtime crash output to a file, quietly giving up
// when none could be created.
func capturePanics(dir, mode string, rpt *Report) {
	f, err := openLog(filepath.Join(dir, misc.GetAppName()+"-panic.log"), mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-panic.*.log"); err != nil {
			return
		}
	}
	defer f.Close()
	if err := debug.SetCrashOutput(f, debug.CrashOptions{}); err == nil {
		rpt.Store("panic.log", f.Name())
	}
}

func openLog(name, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == modeAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(name, flags, 0644)
}

func consoleEncoderConfig(stream *os.File) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return ec
}

// consoleEnc drops verbose error details (wrapped chains with stack traces)
// from console output, file log keeps them.
type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	out := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if e, ok := f.Interface.(error); ok && f.Type == zapcore.ErrorType {
			f.Interface = errors.New(e.Error())
		}
		out = append(out, f)
	}
	return c.Encoder.EncodeEntry(ent, out)
}
