package gateway

import "time"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	Roots           []string      `yaml:"roots"`
	Query           QueryConfig   `yaml:"query"`
	Ask             AskConfig     `yaml:"ask"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	c.Query.defaults()
	c.Ask.defaults()
}

// QueryConfig bounds the SQL execution endpoints.
type QueryConfig struct {
	// DefaultLimit is appended to SELECTs that carry no LIMIT clause and
	// caps the result page when the request names no limit.
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the hard cap on any requested limit.
	MaxLimit int `yaml:"max_limit"`

	// Timeout bounds the wait for one job to reach a terminal state.
	Timeout time.Duration `yaml:"timeout"`

	// PollInterval is the job state polling cadence.
	PollInterval time.Duration `yaml:"poll_interval"`

	// SelectOnly rejects anything but a single SELECT statement on the
	// sql/run endpoint. On unless explicitly disabled.
	SelectOnly *bool `yaml:"select_only"`
}

func (q *QueryConfig) selectOnly() bool {
	return q.SelectOnly == nil || *q.SelectOnly
}

func (q *QueryConfig) defaults() {
	if q.DefaultLimit <= 0 {
		q.DefaultLimit = 200
	}
	if q.MaxLimit <= 0 {
		q.MaxLimit = 5000
	}
	if q.Timeout <= 0 {
		q.Timeout = 60 * time.Second
	}
	if q.PollInterval <= 0 {
		q.PollInterval = 500 * time.Millisecond
	}
}

// AskConfig configures the question-answering endpoint.
type AskConfig struct {
	// Timeout bounds one full model/tool exchange, all turns included.
	Timeout time.Duration `yaml:"timeout"`

	// System is an optional system prompt prepended to every question.
	System string `yaml:"system"`
}

func (a *AskConfig) defaults() {
	if a.Timeout <= 0 {
		a.Timeout = 120 * time.Second
	}
}

// AuthConfig configures authentication for the API endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
