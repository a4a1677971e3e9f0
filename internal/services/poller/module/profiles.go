package module

import (
	"connectors/internal/adapters/httpx"
	"connectors/internal/adapters/source/fsblob"
	"connectors/internal/adapters/source/restapi"
	"connectors/internal/core/cursor"
	"connectors/internal/core/paginate"
	"connectors/internal/core/record"
	perr "connectors/internal/platform/errors"
	ckdomain "connectors/internal/services/checkpoint/domain"
	"connectors/internal/services/poller/domain"
	"connectors/internal/services/poller/service"

	"golang.org/x/time/rate"
)

// minPageSize keeps count based sources from being paged in tiny steps
const minPageSize = 100

func (o Options) policy() (cursor.Policy, error) {
	format, err := cursor.ParseFormat(o.Cursor)
	if err != nil {
		return cursor.Policy{}, perr.WithField(err, "CONNECTOR_CURSOR_FORMAT")
	}
	return cursor.Policy{
		Floor:     o.Floor,
		Initial:   o.Initial,
		Format:    format,
		Inclusive: o.Inclusive,
		Epsilon:   o.Epsilon,
		Precision: o.Precision,
	}, nil
}

func (o Options) timeField(path string) (record.TimeField, error) {
	layout, err := record.ParseTimeLayout(o.TimeLayout)
	if err != nil {
		return record.TimeField{}, perr.WithField(err, "CONNECTOR_TIME_LAYOUT")
	}
	return record.TimeField{Path: path, Layout: layout}, nil
}

func (s SourceOptions) client() (*httpx.Client, error) {
	if s.URL == "" {
		return nil, perr.WithField(perr.InvalidArgf("source url is required"), "SOURCE_URL")
	}
	return httpx.New(httpx.Options{
		BaseURL:    s.URL,
		Token:      s.Token,
		AuthScheme: s.AuthScheme,
		Headers:    s.Headers,
		Timeout:    s.Timeout,
		MaxRetries: s.Retries,
		Name:       "source",
	}), nil
}

func (s SourceOptions) rest(path, totalPath string, format cursor.Format) restapi.Options {
	return restapi.Options{
		Path:        path,
		ItemsPath:   s.ItemsPath,
		TotalPath:   totalPath,
		LowerParam:  s.LowerParam,
		UpperParam:  s.UpperParam,
		OffsetParam: s.OffsetParam,
		LimitParam:  s.LimitParam,
		TimeFormat:  format,
		ChildPath:   s.ChildPath,
	}
}

// newLimiter turns a per minute budget into a token bucket; zero disables limiting
func newLimiter(perMinute int) domain.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute)
}

// buildStreams assembles the streams of the configured profile in run order
func buildStreams(o Options, env service.Env) ([]domain.Stream, error) {
	policy, err := o.policy()
	if err != nil {
		return nil, err
	}
	stream, err := o.streamID()
	if err != nil {
		return nil, err
	}

	switch o.Profile {
	case ProfileBlob:
		src, err := o.blobSource()
		if err != nil {
			return nil, err
		}
		return []domain.Stream{service.NewBlobStream(service.BlobConfig{Stream: stream, Policy: policy}, src, env)}, nil

	case ProfileExpanding:
		c, err := o.Source.client()
		if err != nil {
			return nil, err
		}
		tf, err := o.timeField(o.TimeField)
		if err != nil {
			return nil, err
		}
		src := restapi.New(c, o.Source.rest(o.Source.Path, "", policy.Format))
		streams := []domain.Stream{service.NewExpandingStream(service.ExpandingConfig{
			Stream:    stream,
			Policy:    policy,
			PageSize:  o.ChunkSize,
			TimeField: tf,
			IDPath:    o.IDPath,
			ParentKey: o.ParentKey,
			Children:  o.Children,
		}, src, src, env)}

		if o.Alerts {
			atf, err := o.timeField(o.AlertsTimeField)
			if err != nil {
				return nil, err
			}
			alerts := restapi.New(c, o.Source.rest(o.Source.AlertsPath, "", policy.Format))
			streams = append(streams, service.NewPagedStream(service.PagedConfig{
				Stream:     ckdomain.StreamAlerts,
				Policy:     policy,
				Pagination: paginate.Single,
				PageSize:   o.ChunkSize,
				TimeField:  atf,
				Bounded:    true,
			}, alerts, env))
		}
		return streams, nil

	default:
		c, err := o.Source.client()
		if err != nil {
			return nil, err
		}
		tf, err := o.timeField(o.TimeField)
		if err != nil {
			return nil, err
		}
		strategy, err := paginate.ParseStrategy(o.Pagination)
		if err != nil {
			return nil, perr.WithField(err, "CONNECTOR_PAGINATION")
		}
		src := restapi.New(c, o.Source.rest(o.Source.Path, o.Source.TotalPath, policy.Format))
		return []domain.Stream{service.NewPagedStream(service.PagedConfig{
			Stream:     stream,
			Policy:     policy,
			Pagination: strategy,
			PageSize:   max(o.ChunkSize, minPageSize),
			TimeField:  tf,
			SplitPath:  o.SplitPath,
			SplitKey:   o.SplitKey,
		}, src, env)}, nil
	}
}

func (o Options) blobSource() (domain.BlobSource, error) {
	switch {
	case o.Source.BlobDir != "":
		return fsblob.New(o.Source.BlobDir, o.Source.BlobSuffixes...), nil
	case o.Source.BlobIndex != "":
		c, err := o.Source.client()
		if err != nil {
			return nil, err
		}
		return restapi.NewBlobIndex(c, o.Source.BlobIndex, ""), nil
	}
	return nil, perr.WithField(perr.InvalidArgf("blob profile needs a directory or an index endpoint"), "SOURCE_BLOB_DIR")
}
