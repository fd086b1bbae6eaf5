package format

import (
	"reflect"
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestUniqueBy(t *testing.T) {
	type pair struct {
		key, val string
	}
	in := []pair{{"a", "1"}, {"b", "2"}, {"a", "3"}, {"c", "4"}, {"b", "5"}}
	got := UniqueBy(in, func(p pair) string { return p.key })
	want := []pair{{"a", "1"}, {"b", "2"}, {"c", "4"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueBy() = %v, want %v", got, want)
	}

	if got := UniqueBy([]int(nil), func(i int) int { return i }); got != nil {
		t.Errorf("UniqueBy(nil) = %v, want nil", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "0s"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{76 * time.Hour, "3d 4h"},
		{-5 * time.Second, "5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStatusTimeLayout(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)
	if got := ts.Format(StatusTimeLayout); got != "2024-03-09 07:05:02" {
		t.Errorf("Format = %q", got)
	}
}
