package cron

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddRejectsBadExpression(t *testing.T) {
	r := New(discardLogger())
	if err := r.Add(Job{Name: "bad", Expr: "not a schedule"}); err == nil {
		t.Fatal("invalid expression should be rejected")
	}
	if err := r.Add(Job{Name: "nightly", Expr: "0 3 * * *"}); err != nil {
		t.Fatalf("valid expression rejected: %v", err)
	}
}

func TestTickRunsDueJobs(t *testing.T) {
	r := New(discardLogger())
	var ran []string
	must := func(job Job) {
		if err := r.Add(job); err != nil {
			t.Fatal(err)
		}
	}
	must(Job{Name: "every-minute", Expr: "* * * * *", Run: func(ctx context.Context) error {
		ran = append(ran, "every-minute")
		return nil
	}})
	must(Job{Name: "nightly", Expr: "0 3 * * *", Run: func(ctx context.Context) error {
		ran = append(ran, "nightly")
		return nil
	}})

	r.now = func() time.Time { return time.Date(2025, 6, 1, 12, 30, 5, 0, time.UTC) }
	r.tick(context.Background())
	if len(ran) != 1 || ran[0] != "every-minute" {
		t.Fatalf("at 12:30 only every-minute is due, got %v", ran)
	}

	ran = nil
	r.now = func() time.Time { return time.Date(2025, 6, 1, 3, 0, 30, 0, time.UTC) }
	r.tick(context.Background())
	if len(ran) != 2 {
		t.Fatalf("at 03:00 both jobs are due, got %v", ran)
	}
}

func TestJobErrorDoesNotStopOthers(t *testing.T) {
	r := New(discardLogger())
	ran := false
	if err := r.Add(Job{Name: "fails", Expr: "* * * * *", Run: func(ctx context.Context) error {
		return context.DeadlineExceeded
	}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(Job{Name: "works", Expr: "* * * * *", Run: func(ctx context.Context) error {
		ran = true
		return nil
	}}); err != nil {
		t.Fatal(err)
	}

	r.now = time.Now
	r.tick(context.Background())
	if !ran {
		t.Fatal("a failing job must not block the rest")
	}
}
