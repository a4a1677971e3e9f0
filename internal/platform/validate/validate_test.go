package validate

import (
	"testing"
	"time"

	perr "connectors/internal/platform/errors"
	kit "connectors/internal/platform/testkit"
)

type opts struct {
	Frequency time.Duration `env:"CONNECTOR_FREQUENCY" validate:"gt=0"`
	BatchSize int           `env:"CONNECTOR_BATCH_SIZE" validate:"min=1,max=100000"`
	Table     string        `env:"INTAKE_CH_TABLE" validate:"omitempty,ident"`
}

func TestStruct_OK(t *testing.T) {
	if err := Struct(opts{Frequency: time.Minute, BatchSize: 10, Table: "intake_archive"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_MapsFirstFailure(t *testing.T) {
	err := Struct(opts{Frequency: time.Minute, BatchSize: 0})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("want validation code, got %v", err)
	}
	e, _ := perr.As(err)
	if e.Field() != "CONNECTOR_BATCH_SIZE" {
		t.Fatalf("field = %q", e.Field())
	}
	kit.MustContain(t, err.Error(), "must be at least 1")
}

func TestStruct_Ident(t *testing.T) {
	err := Struct(opts{Frequency: time.Minute, BatchSize: 1, Table: "x; DROP TABLE y"})
	if err == nil {
		t.Fatalf("want ident failure")
	}
	kit.MustContain(t, err.Error(), "plain identifier")
}

func TestStruct_DurationAndJoin(t *testing.T) {
	err := Struct(opts{BatchSize: 0})
	if err == nil {
		t.Fatalf("want failure")
	}
	kit.MustContain(t, err.Error(), "CONNECTOR_FREQUENCY")
	kit.MustContain(t, err.Error(), "CONNECTOR_BATCH_SIZE")
}

func TestStruct_NotAStruct(t *testing.T) {
	if err := Struct(nil); !perr.IsCode(err, perr.ErrorCodeUnknown) || err == nil {
		t.Fatalf("nil should be a misuse error, got %v", err)
	}
}
