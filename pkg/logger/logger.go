package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Level        string `split_words:"true"`
	Service      string `split_words:"true" default:"voiceagents"`
}

var DefaultConfig = &Config{Service: "voiceagents"}

// level resolves LOG_LEVEL first, then LOG_DEBUG. Unknown names fall back to info.
func (c *Config) level() zerolog.Level {
	if name := strings.TrimSpace(c.Level); name != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(name)); err == nil && lvl != zerolog.NoLevel {
			return lvl
		}
	}
	if c.Debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// New builds a logger writing to w.
func New(w io.Writer, conf *Config) zerolog.Logger {
	if conf == nil {
		conf = DefaultConfig
	}
	if conf.PrettyFormat {
		w = zerolog.ConsoleWriter{Out: w}
	}

	ctx := zerolog.New(w).Level(conf.level()).With().Timestamp()
	if conf.Service != "" {
		ctx = ctx.Str("service", conf.Service)
	}
	return ctx.Caller().Stack().Logger()
}

// Init installs the global logger on stderr. The MCP stdio transport owns
// stdout, so log output never goes there.
func Init(opts ...Config) {
	conf := DefaultConfig
	if len(opts) > 0 {
		conf = &opts[0]
	}
	log.Logger = New(os.Stderr, conf)
}
