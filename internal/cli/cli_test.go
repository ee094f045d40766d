package cli

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/DEEJ4Y/callsched"
	"github.com/DEEJ4Y/callsched/internal/config"
	"github.com/rs/zerolog"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNextCmd(t *testing.T) {
	t.Run("repeating", func(t *testing.T) {
		out, err := runCLI(t, "next", "--from", "2026-10-18T10:00:00Z", "--offset", "15:00", "--interval", "1h", "-n", "3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{
			"2026-10-18T15:00:00Z",
			"2026-10-18T16:00:00Z",
			"2026-10-18T17:00:00Z",
		}
		if got := strings.Fields(out); strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("one-shot prints one time", func(t *testing.T) {
		out, err := runCLI(t, "next", "--from", "2026-10-18T10:00:00Z", "--offset", "3600000")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.TrimSpace(out); got != "2026-10-19T01:00:00Z" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("rejects a bad offset", func(t *testing.T) {
		_, err := runCLI(t, "next", "--offset", "three")
		if !errors.Is(err, callsched.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRunner_Apply(t *testing.T) {
	sched := callsched.New(callsched.Config{})
	defer sched.Close()

	r := &runner{sched: sched, handlers: builtinHandlers(zerolog.Nop(), nil), log: zerolog.Nop()}

	f, err := config.Parse("s.yaml", []byte(`
jobs:
  - name: a
    handler: log
    offset: "03:00"
    interval: 1h
    args: [hello]
  - name: b
    handler: exec
    offset: "04:00"
    args: ["true"]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.apply(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.Len() != 2 {
		t.Fatalf("expected 2 jobs, got %d", sched.Len())
	}
	first := sched.Jobs()

	bad, err := config.Parse("s.yaml", []byte("jobs:\n  - name: c\n    handler: nope\n    offset: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.apply(bad); !errors.Is(err, callsched.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if jobs := sched.Jobs(); len(jobs) != 2 || jobs[0] != first[0] || jobs[1] != first[1] {
		t.Error("an invalid schedule must leave the running jobs alone")
	}

	// Decodes fine but does not fit the exec handler's signature.
	mismatch, err := config.Parse("s.yaml", []byte(`
jobs:
  - name: b
    handler: log
    offset: 0
  - name: c
    handler: exec
    offset: 0
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = r.apply(mismatch)
	if !errors.Is(err, callsched.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if !strings.Contains(err.Error(), `job "c"`) {
		t.Errorf("error %q does not name the job", err)
	}
	if jobs := sched.Jobs(); len(jobs) != 2 || jobs[0] != first[0] || jobs[1] != first[1] {
		t.Error("a signature mismatch must leave the running jobs alone")
	}
	if !first[0].Armed() || !first[1].Armed() {
		t.Error("previous jobs must stay armed")
	}

	one, err := config.Parse("s.yaml", []byte("jobs:\n  - name: d\n    handler: log\n    offset: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.apply(one); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.Len() != 1 || first[0].Armed() || first[1].Armed() {
		t.Error("expected the previous jobs to be replaced")
	}
}

func TestBuiltinHandlers(t *testing.T) {
	t.Run("mongo-sweep needs a client", func(t *testing.T) {
		h := builtinHandlers(zerolog.Nop(), nil)
		if _, ok := h["mongo-sweep"]; ok {
			t.Error("mongo-sweep registered without a client")
		}
	})

	t.Run("log writes its args", func(t *testing.T) {
		var buf bytes.Buffer
		h := builtinHandlers(zerolog.New(&buf), nil)
		h["log"].(func(...any))("hello", 3)
		if !strings.Contains(buf.String(), `"args":["hello",3]`) {
			t.Errorf("unexpected log output %q", buf.String())
		}
	})

	t.Run("exec reports failures", func(t *testing.T) {
		if _, err := exec.LookPath("false"); err != nil {
			t.Skip("false not available")
		}
		h := builtinHandlers(zerolog.Nop(), nil)
		run := h["exec"].(func(string, ...string) error)
		if err := run("true"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := run("false"); err == nil {
			t.Error("expected an error from false")
		}
	})

	t.Run("exec runs from a schedule", func(t *testing.T) {
		if _, err := exec.LookPath("false"); err != nil {
			t.Skip("false not available")
		}
		errs := make(chan error, 1)
		sched := callsched.New(callsched.Config{
			OnError: func(_ context.Context, _ *callsched.Job, err error) { errs <- err },
		})
		defer sched.Close()

		h := builtinHandlers(zerolog.Nop(), nil)
		job, err := sched.Delay(callsched.Spec{Handler: h["exec"], Args: []any{"false"}, DailyOffset: time.Millisecond})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		select {
		case err := <-errs:
			if err == nil {
				t.Error("expected an error")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("exec job did not report")
		}
		if job.Fires() != 1 {
			t.Errorf("expected one firing, got %d", job.Fires())
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
