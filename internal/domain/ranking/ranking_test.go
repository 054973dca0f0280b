package ranking_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func item(id string) model.Item {
	return model.Item{ItemID: id, Title: "title " + id}
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemID
	}
	return out
}

func TestReorder(t *testing.T) {
	Convey("Given a ranked list and an unordered store result", t, func() {
		Convey("When one identifier does not resolve", func() {
			// store returns c before a; b is unknown
			out, dropped := ranking.Reorder(ranking.List{"a", "b", "c"}, []model.Item{item("c"), item("a")})

			Convey("Then order should follow the list and b should be dropped", func() {
				So(ids(out), ShouldResemble, []string{"a", "c"})
				So(dropped, ShouldEqual, 1)
			})
		})

		Convey("When the store returns items in reverse order", func() {
			ranked := ranking.List{"5", "4", "3", "2", "1"}
			out, dropped := ranking.Reorder(ranked, []model.Item{item("1"), item("2"), item("3"), item("4"), item("5")})

			Convey("Then the ranked order should be restored exactly", func() {
				So(ids(out), ShouldResemble, []string{"5", "4", "3", "2", "1"})
				So(dropped, ShouldEqual, 0)
			})
		})

		Convey("When the list repeats an identifier", func() {
			out, dropped := ranking.Reorder(ranking.List{"x", "y", "x"}, []model.Item{item("y"), item("x")})

			Convey("Then each item should appear once at its first position", func() {
				So(ids(out), ShouldResemble, []string{"x", "y"})
				So(dropped, ShouldEqual, 0)
			})
		})

		Convey("When nothing resolves", func() {
			out, dropped := ranking.Reorder(ranking.List{"a", "b"}, nil)

			Convey("Then the result should be empty but not nil", func() {
				So(out, ShouldNotBeNil)
				So(out, ShouldBeEmpty)
				So(dropped, ShouldEqual, 2)
			})
		})

		Convey("When the store returns items outside the list", func() {
			out, _ := ranking.Reorder(ranking.List{"a"}, []model.Item{item("z"), item("a")})

			Convey("Then they should not appear", func() {
				So(ids(out), ShouldResemble, []string{"a"})
			})
		})
	})
}

func TestUnique(t *testing.T) {
	Convey("Given a list with duplicates", t, func() {
		out := ranking.Unique(ranking.List{"a", "b", "a", "c", "b"})

		Convey("Then first occurrences should be kept in order", func() {
			So([]string(out), ShouldResemble, []string{"a", "b", "c"})
		})
	})
}

func TestParseMode(t *testing.T) {
	Convey("Given mode strings", t, func() {
		Convey("Then known modes should parse case-insensitively", func() {
			m, err := ranking.ParseMode("User")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, ranking.ModeUser)

			m, err = ranking.ParseMode(" item ")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, ranking.ModeItem)
		})

		Convey("Then unknown modes should be rejected", func() {
			_, err := ranking.ParseMode("genre")
			So(errors.Is(err, ranking.ErrInvalidMode), ShouldBeTrue)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given ranking failures", t, func() {
		Convey("When a process error is wrapped", func() {
			cause := errors.New("exit status 1")
			err := fmt.Errorf("recommend: %w", &ranking.ProcessError{Mode: ranking.ModeUser, Subject: "196", ExitCode: 1, Stderr: "Traceback", Err: cause})

			Convey("Then it should match ErrProcess and expose details", func() {
				So(errors.Is(err, ranking.ErrProcess), ShouldBeTrue)
				So(errors.Is(err, ranking.ErrDecode), ShouldBeFalse)
				So(errors.Is(err, cause), ShouldBeTrue)

				var pe *ranking.ProcessError
				So(errors.As(err, &pe), ShouldBeTrue)
				So(pe.Stderr, ShouldEqual, "Traceback")
				So(err.Error(), ShouldContainSubstring, "exit=1")
			})
		})

		Convey("When a decode error is wrapped", func() {
			err := fmt.Errorf("recommend: %w", &ranking.DecodeError{Mode: ranking.ModeItem, Output: "oops"})

			Convey("Then it should match ErrDecode only", func() {
				So(errors.Is(err, ranking.ErrDecode), ShouldBeTrue)
				So(errors.Is(err, ranking.ErrProcess), ShouldBeFalse)
			})
		})
	})
}

func TestRankerFunc(t *testing.T) {
	Convey("Given a RankerFunc", t, func() {
		var r ranking.Ranker = ranking.RankerFunc(func(_ context.Context, subject string, mode ranking.Mode) (ranking.List, error) {
			return ranking.List{subject, string(mode)}, nil
		})

		Convey("Then it should satisfy Ranker", func() {
			list, err := r.Rank(context.Background(), "42", ranking.ModeItem)
			So(err, ShouldBeNil)
			So([]string(list), ShouldResemble, []string{"42", "item"})
		})
	})
}
