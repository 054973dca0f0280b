package popularity_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/popularity"
	. "github.com/smartystreets/goconvey/convey"
)

func catalogOf(items ...model.Item) popularity.Catalog {
	byID := make(map[string]model.Item, len(items))
	for _, it := range items {
		byID[it.ItemID] = it
	}
	return popularity.CatalogFunc(func(id string) (model.Item, bool) {
		it, ok := byID[id]
		return it, ok
	})
}

func rating(user, item string) model.Interaction {
	return model.Interaction{UserID: user, ItemID: item, Rating: 4}
}

func TestRank(t *testing.T) {
	Convey("Given three ratings over two items", t, func() {
		interactions := []model.Interaction{rating("u1", "m1"), rating("u2", "m1"), rating("u1", "m2")}
		catalog := catalogOf(model.Item{ItemID: "m1", Title: "A"}, model.Item{ItemID: "m2", Title: "B"})

		Convey("When ranking by popularity", func() {
			rows, dropped := popularity.Rank(interactions, catalog, popularity.DefaultLimit)

			Convey("Then m1 should come first with two ratings", func() {
				So(dropped, ShouldEqual, 0)
				So(rows, ShouldResemble, []model.PopularItem{
					{ItemID: "m1", Title: "A", RatingCount: 2},
					{ItemID: "m2", Title: "B", RatingCount: 1},
				})
			})
		})
	})

	Convey("Given interactions that reference unknown items", t, func() {
		interactions := []model.Interaction{
			rating("u1", "gone"), rating("u2", "gone"), rating("u3", "gone"),
			rating("u1", "m1"),
		}
		catalog := catalogOf(model.Item{ItemID: "m1", Title: "A", ImageURL: "http://img/a"})

		Convey("When ranking", func() {
			rows, dropped := popularity.Rank(interactions, catalog, 10)

			Convey("Then the unknown item should be dropped after the join", func() {
				So(dropped, ShouldEqual, 1)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].ItemID, ShouldEqual, "m1")
				So(rows[0].ImageURL, ShouldEqual, "http://img/a")
			})
		})
	})

	Convey("Given more than ten rated items", t, func() {
		var interactions []model.Interaction
		var items []model.Item
		for i := 0; i < 15; i++ {
			id := fmt.Sprintf("m%d", i)
			items = append(items, model.Item{ItemID: id, Title: id})
			for j := 0; j <= i; j++ {
				interactions = append(interactions, rating(fmt.Sprintf("u%d", j), id))
			}
		}

		Convey("When ranking with the default limit", func() {
			rows, _ := popularity.Rank(interactions, catalogOf(items...), 0)

			Convey("Then only the ten most rated should be kept", func() {
				So(len(rows), ShouldEqual, 10)
				So(rows[0].ItemID, ShouldEqual, "m14")
				So(rows[0].RatingCount, ShouldEqual, 15)
				So(rows[9].ItemID, ShouldEqual, "m5")
			})
		})

		Convey("When the top item is missing from the catalog", func() {
			rows, dropped := popularity.Rank(interactions, catalogOf(items[:14]...), 10)

			Convey("Then the limit should apply before the join", func() {
				So(dropped, ShouldEqual, 1)
				So(len(rows), ShouldEqual, 9)
				So(rows[0].ItemID, ShouldEqual, "m13")
			})
		})
	})

	Convey("Given a top list made only of deleted items", t, func() {
		interactions := []model.Interaction{
			rating("u1", "gone1"), rating("u2", "gone1"),
			rating("u1", "gone2"), rating("u2", "gone2"),
			rating("u3", "m1"),
		}
		catalog := catalogOf(model.Item{ItemID: "m1", Title: "A"})

		Convey("When the limit only reaches the deleted items", func() {
			rows, dropped := popularity.Rank(interactions, catalog, 2)

			Convey("Then the result should be empty and every group counted as dropped", func() {
				So(rows, ShouldNotBeNil)
				So(rows, ShouldBeEmpty)
				So(dropped, ShouldEqual, 2)
			})
		})

		Convey("When the limit reaches a cataloged item", func() {
			rows, dropped := popularity.Rank(interactions, catalog, 3)

			Convey("Then that item should be returned", func() {
				So(dropped, ShouldEqual, 2)
				So(rows, ShouldHaveLength, 1)
				So(rows[0].ItemID, ShouldEqual, "m1")
			})
		})
	})

	Convey("Given items with equal counts", t, func() {
		interactions := []model.Interaction{rating("u1", "b"), rating("u1", "a"), rating("u2", "c"), rating("u2", "a")}
		catalog := catalogOf(model.Item{ItemID: "a"}, model.Item{ItemID: "b"}, model.Item{ItemID: "c"})

		Convey("Then ties should keep first-seen order", func() {
			rows, _ := popularity.Rank(interactions, catalog, 10)
			So(rows[0].ItemID, ShouldEqual, "a")
			So(rows[1].ItemID, ShouldEqual, "b")
			So(rows[2].ItemID, ShouldEqual, "c")
		})
	})

	Convey("Given no interactions", t, func() {
		rows, dropped := popularity.Rank(nil, catalogOf(), 10)

		Convey("Then the result should be empty and not nil", func() {
			So(rows, ShouldNotBeNil)
			So(rows, ShouldBeEmpty)
			So(dropped, ShouldEqual, 0)
		})
	})

	Convey("Given random interaction sets", t, func() {
		rng := rand.New(rand.NewSource(7))

		Convey("Then output should be sorted, bounded and fully cataloged", func() {
			for round := 0; round < 50; round++ {
				var interactions []model.Interaction
				known := map[string]bool{}
				var items []model.Item
				for i := 0; i < 30; i++ {
					id := fmt.Sprintf("m%d", i)
					if rng.Intn(3) > 0 {
						known[id] = true
						items = append(items, model.Item{ItemID: id, Title: id})
					}
				}
				n := rng.Intn(200)
				for i := 0; i < n; i++ {
					interactions = append(interactions, rating("u", fmt.Sprintf("m%d", rng.Intn(30))))
				}

				rows, _ := popularity.Rank(interactions, catalogOf(items...), 10)
				So(len(rows), ShouldBeLessThanOrEqualTo, 10)
				for i, r := range rows {
					So(known[r.ItemID], ShouldBeTrue)
					if i > 0 {
						So(rows[i-1].RatingCount, ShouldBeGreaterThanOrEqualTo, r.RatingCount)
					}
				}
			}
		})
	})
}
