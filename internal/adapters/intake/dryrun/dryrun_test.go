package dryrun

import (
	"context"
	"testing"
)

func TestPush_AcksEveryRecord(t *testing.T) {
	acks, err := New().Push(context.Background(), []string{"a", "b"})
	if err != nil || len(acks) != 2 || acks[0] == acks[1] {
		t.Fatalf("acks = %v err = %v", acks, err)
	}
}
