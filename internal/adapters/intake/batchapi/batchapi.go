// Package batchapi forwards records to an HTTP intake batch endpoint
package batchapi

import (
	"context"

	"connectors/internal/adapters/httpx"
	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/logger"
)

// DefaultChunk bounds how many records one request carries
const DefaultChunk = 1000

// Options configures the intake client
type Options struct {
	Key   string
	Path  string
	Chunk int
}

type request struct {
	IntakeKey string   `json:"intake_key"`
	JSONs     []string `json:"jsons"`
}

type response struct {
	EventIDs []string `json:"event_ids"`
}

// Client implements domain.Forwarder over POST {base}/batch
type Client struct {
	c    *httpx.Client
	opts Options
	log  *logger.Logger
}

// New constructs a Client; c carries the intake base URL and retry policy
func New(c *httpx.Client, opts Options) *Client {
	if opts.Path == "" {
		opts.Path = "/batch"
	}
	if opts.Chunk <= 0 {
		opts.Chunk = DefaultChunk
	}
	return &Client{c: c, opts: opts, log: logger.Named("intake")}
}

// Push sends records in chunks and returns every acknowledged event id
// a failed chunk aborts the push; earlier chunks stay delivered
func (c *Client) Push(ctx context.Context, records []string) ([]string, error) {
	acks := make([]string, 0, len(records))
	for start := 0; start < len(records); start += c.opts.Chunk {
		end := min(start+c.opts.Chunk, len(records))
		var resp response
		err := c.c.PostJSON(ctx, c.opts.Path, request{IntakeKey: c.opts.Key, JSONs: records[start:end]}, &resp)
		if err != nil {
			return acks, perr.WithOp(err, "intake.push")
		}
		acks = append(acks, resp.EventIDs...)
		c.log.Debug().Int("chunk_start", start).Int("records", end-start).Int("event_ids", len(resp.EventIDs)).Msg("intake chunk accepted")
	}
	return acks, nil
}
