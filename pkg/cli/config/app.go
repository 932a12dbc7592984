package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/stenolab/steno/pkg/service/retrieval"
	"github.com/stenolab/steno/pkg/service/suggest"
	"github.com/stenolab/steno/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// App holds the path flag for the optional TOML tuning file
type App struct {
	path string
}

// Flags returns CLI flags for application tuning configuration
func (a *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML tuning configuration (defaults apply when omitted)",
			Sources:     cli.EnvVars("STENO_CONFIG"),
			Destination: &a.path,
		},
	}
}

// AppConfig is the TOML tuning configuration. Zero values fall back to
// the built-in defaults of each component.
type AppConfig struct {
	Chunk struct {
		Window  int `toml:"window"`
		Overlap int `toml:"overlap"`
	} `toml:"chunk"`

	Retrieval struct {
		TopK          int    `toml:"top_k"`
		EmbedAttempts int    `toml:"embed_attempts"`
		EmbedDelay    string `toml:"embed_delay"`
	} `toml:"retrieval"`

	Suggestion struct {
		// Cap limits suggestion responses per meeting. 0 disables the cap.
		Cap int `toml:"cap"`
	} `toml:"suggestion"`

	Pipeline struct {
		Attempts       int    `toml:"attempts"`
		InitialBackoff string `toml:"initial_backoff"`
	} `toml:"pipeline"`
}

// Validate checks the tuning values for internal consistency
func (c *AppConfig) Validate() error {
	if c.Chunk.Window < 0 || c.Chunk.Overlap < 0 {
		return goerr.New("chunk window and overlap must not be negative",
			goerr.V("window", c.Chunk.Window), goerr.V("overlap", c.Chunk.Overlap))
	}
	if c.Chunk.Window > 0 && c.Chunk.Overlap >= c.Chunk.Window {
		return goerr.New("chunk overlap must be smaller than the window",
			goerr.V("window", c.Chunk.Window), goerr.V("overlap", c.Chunk.Overlap))
	}
	if c.Retrieval.TopK < 0 {
		return goerr.New("retrieval top_k must not be negative", goerr.V("top_k", c.Retrieval.TopK))
	}
	if c.Suggestion.Cap < 0 {
		return goerr.New("suggestion cap must not be negative", goerr.V("cap", c.Suggestion.Cap))
	}
	if c.Pipeline.Attempts < 0 {
		return goerr.New("pipeline attempts must not be negative", goerr.V("attempts", c.Pipeline.Attempts))
	}
	if _, err := c.embedDelay(); err != nil {
		return err
	}
	if _, err := c.initialBackoff(); err != nil {
		return err
	}
	return nil
}

func (c *AppConfig) embedDelay() (time.Duration, error) {
	return parseOptionalDuration(c.Retrieval.EmbedDelay, "retrieval.embed_delay")
}

func (c *AppConfig) initialBackoff() (time.Duration, error) {
	return parseOptionalDuration(c.Pipeline.InitialBackoff, "pipeline.initial_backoff")
}

func parseOptionalDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid duration", goerr.V("field", field), goerr.V("value", s))
	}
	if d < 0 {
		return 0, goerr.New("duration must not be negative", goerr.V("field", field), goerr.V("value", s))
	}
	return d, nil
}

// RetrievalOptions converts the tuning values into retrieval service
// options, omitting anything left at its zero value.
func (c *AppConfig) RetrievalOptions() []retrieval.Option {
	var opts []retrieval.Option
	if c.Chunk.Window > 0 {
		opts = append(opts, retrieval.WithWindow(c.Chunk.Window, c.Chunk.Overlap))
	}
	if c.Retrieval.TopK > 0 {
		opts = append(opts, retrieval.WithTopK(c.Retrieval.TopK))
	}
	if c.Retrieval.EmbedAttempts > 0 {
		delay, _ := c.embedDelay()
		if delay == 0 {
			delay = time.Second
		}
		opts = append(opts, retrieval.WithEmbedRetry(c.Retrieval.EmbedAttempts, delay))
	}
	return opts
}

// SuggestOptions converts the tuning values into suggestion service options
func (c *AppConfig) SuggestOptions() []suggest.Option {
	var opts []suggest.Option
	if c.Suggestion.Cap > 0 {
		opts = append(opts, suggest.WithSuggestionCap(c.Suggestion.Cap))
	}
	return opts
}

// UsecaseOptions converts the tuning values into use case options
func (c *AppConfig) UsecaseOptions() []usecase.Option {
	var opts []usecase.Option
	if c.Pipeline.Attempts > 0 {
		backoff, _ := c.initialBackoff()
		if backoff == 0 {
			backoff = time.Second
		}
		opts = append(opts, usecase.WithPipelineRetry(c.Pipeline.Attempts, backoff))
	}
	return opts
}

// Configure loads and validates the tuning file. A missing path yields
// an empty config, meaning component defaults.
func (a *App) Configure() (*AppConfig, error) {
	var cfg AppConfig
	if a.path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", a.path))
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", a.path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid config file", goerr.V("path", a.path))
	}

	return &cfg, nil
}
