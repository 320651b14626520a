package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	mode   string
	note   string
	apply  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects the pipeline to run: insert, fill, or mcp.
func WithMode(mode string) Option {
	return func(a *application) {
		a.mode = mode
	}
}

// WithNote restricts the run to a single vault-relative note path.
func WithNote(note string) Option {
	return func(a *application) {
		a.note = note
	}
}

// WithApply enables writes; without it the run is a dry run.
func WithApply(apply bool) Option {
	return func(a *application) {
		a.apply = apply
	}
}
