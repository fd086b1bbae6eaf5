package collectors

import (
	"context"
	"errors"
	"testing"
)

func TestSourceFunc(t *testing.T) {
	var src Source[int] = SourceFunc[int]{
		MetricName: MetricMemory,
		Fn: func(context.Context) (int, error) {
			return 42, nil
		},
	}

	if got := src.Name(); got != MetricMemory {
		t.Errorf("Name() = %q, want %q", got, MetricMemory)
	}
	v, err := src.Sample(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("Sample() = %d, want 42", v)
	}
}

func TestSourceFunc_Error(t *testing.T) {
	wantErr := errors.New("unreadable")
	src := SourceFunc[string]{
		MetricName: "broken",
		Fn: func(context.Context) (string, error) {
			return "", wantErr
		},
	}

	if _, err := src.Sample(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Sample() error = %v, want %v", err, wantErr)
	}
}
