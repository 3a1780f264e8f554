package lokiship

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AuthMethod selects how push requests authenticate against the endpoint.
type AuthMethod string

const (
	AuthNone  AuthMethod = "none"
	AuthBasic AuthMethod = "basic"
)

// Network selects the delivery backend.
type Network string

const (
	NetworkNone  Network = "none"
	NetworkSync  Network = "sync"
	NetworkAsync Network = "async"
)

// Format selects the batch serialization format.
type Format string

const (
	FormatNone Format = "none"
	FormatJSON Format = "json"
)

// Compression selects optional payload compression.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
)

const (
	defaultEndpoint       = "http://localhost:3100"
	defaultFlushThreshold = 100
)

// settings is the validated configuration snapshot. Network and Format
// carry no default: both must be selected explicitly before Build.
type settings struct {
	Endpoint       string      `validate:"required,url"`
	Network        Network     `validate:"required,oneof=none sync async"`
	Format         Format      `validate:"required,oneof=none json"`
	Authentication AuthMethod  `validate:"required,oneof=none basic"`
	Credentials    string      `validate:"-"`
	FlushThreshold int         `validate:"required,gt=0"`
	MaxMessageSize int         `validate:"gte=0"`
	Compression    Compression `validate:"required,oneof=none gzip"`
}

// Builder assembles a Sink. All methods return the receiver for chaining;
// Build validates the whole configuration in one step and fails fast.
type Builder struct {
	settings       settings
	policy         labelPolicy
	ignoredTargets []string
	logger         zerolog.Logger
	backend        Backend
}

// NewBuilder returns a Builder with the defaults: local endpoint, no
// authentication, flush threshold of 100 entries, no message size limit,
// and no network or serialization format selected yet.
func NewBuilder() *Builder {
	return &Builder{
		settings: settings{
			Endpoint:       defaultEndpoint,
			Authentication: AuthNone,
			FlushThreshold: defaultFlushThreshold,
			Compression:    CompressionNone,
		},
		ignoredTargets: []string{frameworkName},
		logger:         zerolog.Nop(),
	}
}

// Endpoint sets the base URL of the push endpoint.
func (b *Builder) Endpoint(endpoint string) *Builder {
	b.settings.Endpoint = endpoint
	return b
}

// Network selects the delivery backend. Required.
func (b *Builder) Network(network Network) *Builder {
	b.settings.Network = network
	return b
}

// Format selects the serialization format. Required.
func (b *Builder) Format(format Format) *Builder {
	b.settings.Format = format
	return b
}

// WithAuthentication configures request authentication. Basic credentials
// are base64-encoded here, at configuration time, and held pre-encoded.
func (b *Builder) WithAuthentication(method AuthMethod, username, password string) *Builder {
	if method == AuthBasic {
		b.settings.Credentials = base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	}
	b.settings.Authentication = method
	return b
}

// Tag adds one static label attached to every entry.
func (b *Builder) Tag(key, value string) *Builder {
	if b.policy.static == nil {
		b.policy.static = make(map[string]string)
	}
	b.policy.static[key] = value
	return b
}

// Tags adds a set of static labels.
func (b *Builder) Tags(tags map[string]string) *Builder {
	for k, v := range tags {
		b.Tag(k, v)
	}
	return b
}

// IncludeLevel attaches the record's severity as a "level" label. Static
// tags overlay it on key collision.
func (b *Builder) IncludeLevel() *Builder {
	b.policy.includeLevel = true
	return b
}

// IncludeFrameworkLabel attaches the constant framework marker label.
func (b *Builder) IncludeFrameworkLabel() *Builder {
	b.policy.includeFramework = true
	return b
}

// WithStructuredFields folds each record's structured key/value pairs into
// its label set, overlaying static and derived labels.
func (b *Builder) WithStructuredFields() *Builder {
	b.policy.structured = true
	return b
}

// FlushThreshold sets the buffer size that triggers a flush. Must be > 0.
func (b *Builder) FlushThreshold(n int) *Builder {
	b.settings.FlushThreshold = n
	return b
}

// MaxMessageSize drops records whose rendered line exceeds n bytes before
// they reach the buffer. Zero means no limit.
func (b *Builder) MaxMessageSize(n int) *Builder {
	b.settings.MaxMessageSize = n
	return b
}

// WithCompression enables payload compression.
func (b *Builder) WithCompression(c Compression) *Builder {
	b.settings.Compression = c
	return b
}

// IgnoreTarget adds a target prefix whose records the sink discards, on
// top of the built-in guard against the sink's own transport logging.
func (b *Builder) IgnoreTarget(prefix string) *Builder {
	b.ignoredTargets = append(b.ignoredTargets, prefix)
	return b
}

// Logger sets the side channel for delivery diagnostics. Defaults to a
// no-op logger.
func (b *Builder) Logger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithBackend overrides the Network selection with a caller-supplied
// backend. Intended for tests.
func (b *Builder) WithBackend(backend Backend) *Builder {
	b.backend = backend
	return b
}

// Build validates the configuration and assembles the sink. Configuration
// errors are fatal here, never at runtime.
func (b *Builder) Build() (*Sink, error) {
	if err := validator.New().Struct(&b.settings); err != nil {
		return nil, &ConfigError{Err: err}
	}

	pushURL, err := url.JoinPath(b.settings.Endpoint, "loki", "api", "v1", "push")
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("join push URL: %w", err)}
	}

	target := pushTarget{
		url:            pushURL,
		authentication: b.settings.Authentication,
		credentials:    b.settings.Credentials,
		compressed:     b.settings.Compression == CompressionGzip,
	}

	var serializer Serializer = noopSerializer{}
	if b.settings.Format == FormatJSON {
		serializer = jsonSerializer{compress: target.compressed}
	}

	backend := b.backend
	if backend == nil {
		switch b.settings.Network {
		case NetworkNone:
			backend = NoopBackend{}
		case NetworkSync:
			backend = newSyncBackend(target)
		case NetworkAsync:
			async := newAsyncBackend(target, b.logger)
			async.start()
			backend = async
		}
	}

	return &Sink{
		policy:         b.policy,
		buffer:         &entryBuffer{},
		serializer:     serializer,
		backend:        backend,
		flushThreshold: b.settings.FlushThreshold,
		maxMessageSize: b.settings.MaxMessageSize,
		ignoredTargets: b.ignoredTargets,
		log:            b.logger,
	}, nil
}
