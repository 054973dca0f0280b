package ranker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/cinerec/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

// writeScript creates a shell script named name in dir.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
}

// shRanker returns a ranker that runs /bin/sh with user.sh or item.sh from dir.
func shRanker(dir string, opts ...Option) *ProcessRanker {
	base := []Option{
		WithExecutable("/bin/sh"),
		WithWorkdir(dir),
		WithScript(ranking.ModeUser, "user.sh"),
		WithScript(ranking.ModeItem, "item.sh"),
		WithTimeout(5 * time.Second),
	}
	return New(append(base, opts...)...)
}

func TestProcessRankerSuccess(t *testing.T) {
	Convey("Given scripts that echo ranked ids", t, func() {
		dir := t.TempDir()
		writeScript(t, dir, "user.sh", `echo "[\"u-$1\", \"m2\"]"`)
		writeScript(t, dir, "item.sh", `printf '  ["%s-neighbour"]\n\n' "$1"`)
		r := shRanker(dir)
		ctx := context.Background()

		Convey("When ranking for a user", func() {
			ids, err := r.Rank(ctx, "42", ranking.ModeUser)

			Convey("Then the user script should receive the subject", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, ranking.List{"u-42", "m2"})
			})
		})

		Convey("When ranking for an item", func() {
			ids, err := r.Rank(ctx, "m1", ranking.ModeItem)

			Convey("Then the item script should be used and whitespace ignored", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, ranking.List{"m1-neighbour"})
			})
		})
	})

	Convey("Given a script that prints an empty list", t, func() {
		dir := t.TempDir()
		writeScript(t, dir, "user.sh", `echo "[]"`)

		ids, err := shRanker(dir).Rank(context.Background(), "u1", ranking.ModeUser)

		Convey("Then the result should be a valid empty list", func() {
			So(err, ShouldBeNil)
			So(ids, ShouldNotBeNil)
			So(ids, ShouldBeEmpty)
		})
	})

	Convey("Given a script that reads a file relative to its working directory", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "model.json"), []byte(`["from-workdir"]`), 0o600), ShouldBeNil)
		writeScript(t, dir, "user.sh", `cat model.json`)

		ids, err := shRanker(dir).Rank(context.Background(), "u1", ranking.ModeUser)

		Convey("Then the process should run inside the workdir", func() {
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, ranking.List{"from-workdir"})
		})
	})
}

func TestProcessRankerFailures(t *testing.T) {
	ctx := context.Background()

	Convey("Given a script that exits non-zero with diagnostics", t, func() {
		dir := t.TempDir()
		writeScript(t, dir, "user.sh", `echo "model file missing" >&2; exit 3`)

		_, err := shRanker(dir).Rank(ctx, "u1", ranking.ModeUser)

		Convey("Then a process error with the stderr text should be returned", func() {
			So(errors.Is(err, ranking.ErrProcess), ShouldBeTrue)
			var pe *ranking.ProcessError
			So(errors.As(err, &pe), ShouldBeTrue)
			So(pe.ExitCode, ShouldEqual, 3)
			So(pe.Stderr, ShouldContainSubstring, "model file missing")
			So(pe.Mode, ShouldEqual, ranking.ModeUser)
			So(pe.Subject, ShouldEqual, "u1")
		})
	})

	Convey("Given a script that prints something other than a list", t, func() {
		cases := map[string]string{
			"plain text":  `echo "not json"`,
			"object":      `echo '{"ids":["m1"]}'`,
			"null":        `echo null`,
			"numbers":     `echo '["m1", 2]'`,
			"null entry":  `echo '["m1", null]'`,
			"two arrays":  `echo '["m1"]'; echo '["m2"]'`,
			"trailing":    `echo '["m1"] done'`,
			"no output":   `true`,
			"only spaces": `printf '   \n'`,
		}
		for name, body := range cases {
			Convey("Then "+name+" should be a decode error", func() {
				dir := t.TempDir()
				writeScript(t, dir, "user.sh", body)

				_, err := shRanker(dir).Rank(ctx, "u1", ranking.ModeUser)
				So(errors.Is(err, ranking.ErrDecode), ShouldBeTrue)
				So(errors.Is(err, ranking.ErrProcess), ShouldBeFalse)
			})
		}
	})

	Convey("Given a script that runs past the timeout", t, func() {
		dir := t.TempDir()
		writeScript(t, dir, "user.sh", `sleep 5; echo "[]"`)
		r := shRanker(dir, WithTimeout(100*time.Millisecond))

		start := time.Now()
		_, err := r.Rank(ctx, "u1", ranking.ModeUser)

		Convey("Then it should be killed and reported as a process error", func() {
			So(time.Since(start), ShouldBeLessThan, 3*time.Second)
			So(errors.Is(err, ranking.ErrProcess), ShouldBeTrue)
			So(errors.Is(err, ErrTimeout), ShouldBeTrue)
		})
	})

	Convey("Given an executable that does not exist", t, func() {
		r := New(WithExecutable(filepath.Join(t.TempDir(), "missing-binary")), WithWorkdir(t.TempDir()))

		_, err := r.Rank(ctx, "u1", ranking.ModeItem)

		Convey("Then the launch failure should be a process error", func() {
			So(errors.Is(err, ranking.ErrProcess), ShouldBeTrue)
		})
	})

	Convey("Given an empty subject", t, func() {
		_, err := New().Rank(ctx, "  ", ranking.ModeUser)
		So(err, ShouldEqual, ranking.ErrInvalidSubject)
	})

	Convey("Given an unknown mode", t, func() {
		_, err := New().Rank(ctx, "u1", ranking.Mode("genre"))
		So(errors.Is(err, ranking.ErrInvalidMode), ShouldBeTrue)
	})
}

func TestProcessRankerBreaker(t *testing.T) {
	Convey("Given a failing script and a breaker threshold of two", t, func() {
		dir := t.TempDir()
		counter := filepath.Join(dir, "runs")
		writeScript(t, dir, "user.sh", `echo x >> runs; exit 1`)
		r := shRanker(dir, WithBreaker(2, time.Minute))
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			_, err := r.Rank(ctx, "u1", ranking.ModeUser)
			So(errors.Is(err, ranking.ErrProcess), ShouldBeTrue)
		}

		Convey("When a third request arrives", func() {
			_, err := r.Rank(ctx, "u1", ranking.ModeUser)

			Convey("Then it should be rejected without starting a process", func() {
				So(errors.Is(err, ranking.ErrProcess), ShouldBeTrue)
				So(errors.Is(err, ErrBreakerOpen), ShouldBeTrue)
				runs, readErr := os.ReadFile(counter)
				So(readErr, ShouldBeNil)
				So(string(runs), ShouldEqual, "x\nx\n")
			})
		})
	})

	Convey("Given callers that cancel before the process finishes", t, func() {
		dir := t.TempDir()
		writeScript(t, dir, "user.sh", `sleep 5; echo "[]"`)
		r := shRanker(dir, WithBreaker(1, time.Minute))

		for i := 0; i < 3; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			_, err := r.Rank(ctx, "u1", ranking.ModeUser)
			cancel()
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(errors.Is(err, ErrBreakerOpen), ShouldBeFalse)
		}

		Convey("Then the breaker should stay closed", func() {
			So(r.breaker.State().String(), ShouldEqual, "closed")
		})
	})

	Convey("Given a threshold of zero", t, func() {
		r := New(WithBreaker(0, 0))

		Convey("Then no breaker should be installed", func() {
			So(r.breaker, ShouldBeNil)
		})
	})
}
