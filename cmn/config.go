package cmn

import "time"

// CompressionKind selects whether streaming upload/download records are
// wrapped in an lz4 frame before they hit the wire.
type CompressionKind int

const (
	CompressionNone CompressionKind = iota
	CompressionLZ4
)

// AdminClientConfig carries the pool/transport tunables, construction
// options, and ambient knobs (verbosity, compression, backoff) the
// client needs. Zero value is not directly usable — callers should
// start from DefaultConfig() and override.
type AdminClientConfig struct {
	// Pool / transport
	MaxConnectionsPerNode int           `json:"max_connections_per_node"`
	ConnectionTimeout     time.Duration `json:"connection_timeout"`
	SocketTimeout         time.Duration `json:"socket_timeout"`
	SocketBufferSize      int           `json:"socket_buffer_size"`
	SocketKeepAlive       bool          `json:"socket_keep_alive"`

	// Construction only
	BootstrapURLs []string `json:"bootstrap_urls"`

	// Ambient additions
	Verbosity   int             `json:"verbosity"`
	Compression CompressionKind `json:"compression"`

	// Async poll backoff. The factor is intentionally 4, not 2 — do not
	// "fix" this to a doubling schedule.
	AsyncPollInitialDelay time.Duration `json:"async_poll_initial_delay"`
	AsyncPollMaxDelay     time.Duration `json:"async_poll_max_delay"`
	AsyncPollFactor       int64         `json:"async_poll_factor"`
}

func DefaultConfig() *AdminClientConfig {
	return &AdminClientConfig{
		MaxConnectionsPerNode: 10,
		ConnectionTimeout:     5 * time.Second,
		SocketTimeout:         30 * time.Second,
		SocketBufferSize:      64 * 1024,
		SocketKeepAlive:       true,
		Verbosity:             0,
		Compression:           CompressionNone,
		AsyncPollInitialDelay: 250 * time.Millisecond,
		AsyncPollMaxDelay:     60 * time.Second,
		AsyncPollFactor:       4,
	}
}
