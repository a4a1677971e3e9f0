package module

import (
	"strings"
	"time"

	"connectors/internal/platform/config"
	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/validate"
	ckdomain "connectors/internal/services/checkpoint/domain"
)

// Profiles select the stream shape a connector runs
const (
	ProfilePaged     = "paged"
	ProfileExpanding = "expanding"
	ProfileBlob      = "blob"
)

// Intake kinds
const (
	IntakeHTTP       = "http"
	IntakeClickhouse = "clickhouse"
	IntakeDryRun     = "dryrun"
)

// Options holds configuration for the poll loop and its streams
type Options struct {
	Connector string        `env:"CONNECTOR_NAME" validate:"required,ident"`
	Profile   string        `env:"CONNECTOR_PROFILE" validate:"oneof=paged expanding blob"`
	Frequency time.Duration `env:"CONNECTOR_FREQUENCY" validate:"gt=0"`
	ChunkSize int           `env:"CONNECTOR_CHUNK_SIZE" validate:"min=1"`
	BatchSize int           `env:"CONNECTOR_BATCH_SIZE" validate:"min=1"`

	Stream     string        `env:"CONNECTOR_STREAM" validate:"required"`
	Cursor     string        `env:"CONNECTOR_CURSOR_FORMAT" validate:"oneof=iso8601 epoch_millis"`
	Floor      time.Duration `env:"CONNECTOR_FLOOR" validate:"gt=0"`
	Initial    time.Duration `env:"CONNECTOR_INITIAL_LOOKBACK" validate:"min=0"`
	Inclusive  bool          `env:"CONNECTOR_INCLUSIVE"`
	Epsilon    time.Duration `env:"CONNECTOR_EPSILON" validate:"min=0"`
	Precision  time.Duration `env:"CONNECTOR_PRECISION" validate:"min=0"`
	Pagination string        `env:"CONNECTOR_PAGINATION" validate:"oneof=count empty single"`
	TimeField  string        `env:"CONNECTOR_TIME_FIELD"`
	TimeLayout string        `env:"CONNECTOR_TIME_LAYOUT" validate:"oneof=iso8601 epoch_millis epoch_seconds"`
	SplitPath  string        `env:"CONNECTOR_SPLIT_PATH"`
	SplitKey   string        `env:"CONNECTOR_SPLIT_KEY" validate:"required_with=SplitPath"`

	IDPath    string   `env:"CONNECTOR_ID_PATH" validate:"required_if=Profile expanding"`
	ParentKey string   `env:"CONNECTOR_PARENT_KEY" validate:"required_if=Profile expanding"`
	Children  []string `env:"CONNECTOR_CHILDREN" validate:"required_if=Profile expanding"`

	// Alerts adds the windowed alerts stream after threats in the expanding profile
	Alerts          bool   `env:"CONNECTOR_ALERTS"`
	AlertsTimeField string `env:"CONNECTOR_ALERTS_TIME_FIELD"`

	Source SourceOptions
	Intake IntakeOptions
}

// SourceOptions describe the vendor API or blob container
type SourceOptions struct {
	URL           string            `env:"SOURCE_URL" validate:"omitempty,url"`
	Token         string            `env:"SOURCE_TOKEN"`
	AuthScheme    string            `env:"SOURCE_AUTH_SCHEME"`
	Headers       map[string]string `env:"SOURCE_HEADERS"`
	RatePerMinute int               `env:"SOURCE_RATELIMIT_PER_MINUTE" validate:"min=0"`
	Timeout       time.Duration     `env:"SOURCE_TIMEOUT" validate:"min=0"`
	Retries       int               `env:"SOURCE_RETRIES"`

	Path       string `env:"SOURCE_PATH"`
	ItemsPath  string `env:"SOURCE_ITEMS_PATH"`
	TotalPath  string `env:"SOURCE_TOTAL_PATH"`
	ChildPath  string `env:"SOURCE_CHILD_PATH"`
	AlertsPath string `env:"SOURCE_ALERTS_PATH"`

	LowerParam  string `env:"SOURCE_LOWER_PARAM"`
	UpperParam  string `env:"SOURCE_UPPER_PARAM"`
	OffsetParam string `env:"SOURCE_OFFSET_PARAM"`
	LimitParam  string `env:"SOURCE_LIMIT_PARAM"`

	BlobDir      string   `env:"SOURCE_BLOB_DIR"`
	BlobIndex    string   `env:"SOURCE_BLOB_INDEX"`
	BlobSuffixes []string `env:"SOURCE_BLOB_SUFFIXES"`
}

// IntakeOptions describe where records are forwarded
type IntakeOptions struct {
	Kind    string `env:"INTAKE_KIND" validate:"oneof=http clickhouse dryrun"`
	URL     string `env:"INTAKE_URL" validate:"required_if=Kind http"`
	Key     string `env:"INTAKE_KEY" validate:"required_if=Kind http"`
	Chunk   int    `env:"INTAKE_CHUNK" validate:"min=1"`
	Retries int    `env:"INTAKE_RETRIES"`
}

// defaults returns the options of a profile before env overrides
// the values mirror the vendor connectors each profile was shaped after
func defaults(profile string) Options {
	switch profile {
	case ProfileExpanding:
		return Options{
			Stream:          string(ckdomain.StreamThreats),
			Cursor:          "iso8601",
			Floor:           7 * 24 * time.Hour,
			Precision:       time.Second,
			Pagination:      "empty",
			ChunkSize:       100,
			BatchSize:       10000,
			TimeField:       "attributes.lastDetected",
			TimeLayout:      "iso8601",
			IDPath:          "id",
			ParentKey:       "threatId",
			Children:        []string{"detections", "affectedhosts"},
			Alerts:          true,
			AlertsTimeField: "attributes.detectionDate",
			Source: SourceOptions{
				Path:       "/edr/v2/threats",
				ItemsPath:  "data",
				ChildPath:  "/edr/v2/threats/{id}/{kind}",
				AlertsPath: "/edr/v2/alerts",
			},
		}
	case ProfileBlob:
		return Options{
			Stream:     string(ckdomain.StreamLastEventDate),
			Cursor:     "iso8601",
			Floor:      time.Hour,
			Precision:  time.Second,
			Pagination: "single",
			ChunkSize:  1,
			BatchSize:  10000,
			TimeLayout: "iso8601",
		}
	default:
		return Options{
			Stream:     string(ckdomain.StreamTimestampCursor),
			Cursor:     "epoch_millis",
			Floor:      7 * 24 * time.Hour,
			Initial:    5 * time.Minute,
			Inclusive:  true,
			Pagination: "count",
			ChunkSize:  100,
			BatchSize:  10000,
			TimeField:  "detection_timestamp",
			TimeLayout: "epoch_millis",
			SplitPath:  "events",
			SplitKey:   "alert_id",
			Source: SourceOptions{
				Path:      "/public_api/v1/alerts/get_alerts_multi_events",
				ItemsPath: "reply.alerts",
				TotalPath: "reply.total_count",
			},
		}
	}
}

// FromConfig reads CONNECTOR_*, SOURCE_* and INTAKE_* on top of the profile defaults
// profile overrides CONNECTOR_PROFILE when not empty
func FromConfig(cfg config.Conf, profile string) Options {
	cn := cfg.Prefix("CONNECTOR_")
	if profile == "" {
		profile = cn.MayEnum("PROFILE", ProfilePaged, ProfilePaged, ProfileExpanding, ProfileBlob)
	}
	d := defaults(profile)

	o := Options{
		Connector:  cn.MayString("NAME", "connector"),
		Profile:    profile,
		Frequency:  cn.MaySeconds("FREQUENCY", time.Minute),
		ChunkSize:  cn.MayInt("CHUNK_SIZE", d.ChunkSize),
		BatchSize:  cn.MayInt("BATCH_SIZE", d.BatchSize),
		Stream:     cn.MayString("STREAM", d.Stream),
		Cursor:     cn.MayEnum("CURSOR_FORMAT", d.Cursor, "iso8601", "epoch_millis"),
		Floor:      cn.MayDuration("FLOOR", d.Floor),
		Initial:    cn.MayDuration("INITIAL_LOOKBACK", d.Initial),
		Inclusive:  cn.MayBool("INCLUSIVE", d.Inclusive),
		Epsilon:    cn.MayDuration("EPSILON", d.Epsilon),
		Precision:  cn.MayDuration("PRECISION", d.Precision),
		Pagination: cn.MayEnum("PAGINATION", d.Pagination, "count", "empty", "single"),
		TimeField:  cn.MayString("TIME_FIELD", d.TimeField),
		TimeLayout: cn.MayEnum("TIME_LAYOUT", d.TimeLayout, "iso8601", "epoch_millis", "epoch_seconds"),
		SplitPath:  cn.MayString("SPLIT_PATH", d.SplitPath),
		SplitKey:   cn.MayString("SPLIT_KEY", d.SplitKey),
		IDPath:     cn.MayString("ID_PATH", d.IDPath),
		ParentKey:  cn.MayString("PARENT_KEY", d.ParentKey),
		Children:   cn.MayCSV("CHILDREN", d.Children),

		Alerts:          cn.MayBool("ALERTS", d.Alerts),
		AlertsTimeField: cn.MayString("ALERTS_TIME_FIELD", d.AlertsTimeField),
	}

	src := cfg.Prefix("SOURCE_")
	o.Source = SourceOptions{
		URL:           src.MayString("URL", ""),
		Token:         src.MayString("TOKEN", ""),
		AuthScheme:    src.MayString("AUTH_SCHEME", ""),
		Headers:       headers(src.MayCSV("HEADERS", nil)),
		RatePerMinute: src.MayInt("RATELIMIT_PER_MINUTE", 0),
		Timeout:       src.MayDuration("TIMEOUT", 30*time.Second),
		Retries:       src.MayInt("RETRIES", 0),

		Path:       src.MayString("PATH", d.Source.Path),
		ItemsPath:  src.MayString("ITEMS_PATH", d.Source.ItemsPath),
		TotalPath:  src.MayString("TOTAL_PATH", d.Source.TotalPath),
		ChildPath:  src.MayString("CHILD_PATH", d.Source.ChildPath),
		AlertsPath: src.MayString("ALERTS_PATH", d.Source.AlertsPath),

		LowerParam:  src.MayString("LOWER_PARAM", ""),
		UpperParam:  src.MayString("UPPER_PARAM", ""),
		OffsetParam: src.MayString("OFFSET_PARAM", ""),
		LimitParam:  src.MayString("LIMIT_PARAM", ""),

		BlobDir:      src.MayString("BLOB_DIR", ""),
		BlobIndex:    src.MayString("BLOB_INDEX", ""),
		BlobSuffixes: src.MayCSV("BLOB_SUFFIXES", nil),
	}

	in := cfg.Prefix("INTAKE_")
	o.Intake = IntakeOptions{
		Kind:    in.MayEnum("KIND", IntakeHTTP, IntakeHTTP, IntakeClickhouse, IntakeDryRun),
		URL:     in.MayString("URL", ""),
		Key:     in.MayString("KEY", ""),
		Chunk:   in.MayInt("CHUNK", 1000),
		Retries: in.MayInt("RETRIES", 0),
	}
	return o
}

// headers parses "Name=value" pairs
func headers(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if ok && strings.TrimSpace(k) != "" {
			out[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return out
}

// Validate checks the options once at startup
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return err
	}
	if _, err := o.streamID(); err != nil {
		return err
	}
	return nil
}

// streamID is the checkpoint key the profile writes; a typo is a config error
func (o Options) streamID() (ckdomain.StreamID, error) {
	id := ckdomain.StreamID(o.Stream)
	if !id.Valid() {
		return "", perr.WithField(perr.InvalidArgf("unknown stream %q", o.Stream), "CONNECTOR_STREAM")
	}
	return id, nil
}
