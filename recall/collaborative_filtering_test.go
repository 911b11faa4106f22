package recall

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/store"
)

func TestRecommendCollaborativeNoRatings(t *testing.T) {
	all := map[int64]core.RatingProfile{2: {1: 5}}
	if _, err := RecommendCollaborative(1, all, 5); !core.IsNoRatingsYet(err) {
		t.Fatalf("err = %v, want NoRatingsYet", err)
	}
}

func TestRecommendCollaborativeFallbackNoOtherUsers(t *testing.T) {
	all := map[int64]core.RatingProfile{1: {1: 5, 2: 3}}
	recs, err := RecommendCollaborative(1, all, 5)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	// 唯一的用户评过的车都被排除
	if len(recs) != 0 {
		t.Fatalf("recs = %v, want empty", recs)
	}
}

func TestRecommendCollaborativeFallbackNoNeighbors(t *testing.T) {
	// 目标用户只评了 c1；另一个用户评了 c1、c2，共同评分不足 2 个，相关系数为 0
	all := map[int64]core.RatingProfile{
		1: {1: 5},
		2: {1: 5, 2: 4},
	}
	recs, err := RecommendCollaborative(1, all, 5)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := []core.Recommendation{{CarID: 2, Score: 4}}
	if !reflect.DeepEqual(recs, want) {
		t.Fatalf("recs = %v, want %v", recs, want)
	}
}

func TestRecommendCollaborativeNegativeNeighborsExcluded(t *testing.T) {
	all := map[int64]core.RatingProfile{
		1: {1: 1, 2: 2, 3: 3},
		2: {1: 3, 2: 2, 3: 1, 4: 5},
		3: {4: 1, 5: 2},
		4: {5: 4},
	}
	recs, err := RecommendCollaborative(1, all, 5)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	// 用户 2 完全负相关，热门兜底：c4、c5 平均都是 3，按 ID 升序
	want := []core.Recommendation{{CarID: 4, Score: 3}, {CarID: 5, Score: 3}}
	if !reflect.DeepEqual(recs, want) {
		t.Fatalf("recs = %v, want %v", recs, want)
	}
}

func TestRecommendCollaborativeWeightedVotes(t *testing.T) {
	// 用户 2 的相关系数为 3/sqrt(21)，用户 3 为 1，用户 4 负相关不参与
	all := map[int64]core.RatingProfile{
		1: {1: 5, 2: 3, 3: 4},
		2: {1: 4, 2: 2, 3: 5, 10: 5, 11: 2},
		3: {1: 5, 2: 3, 3: 4, 10: 3},
		4: {1: 1, 2: 5, 3: 3, 10: 5, 12: 5},
	}
	recs, err := RecommendCollaborative(1, all, 5)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	r2 := 3 / math.Sqrt(21)
	want := []core.Recommendation{
		{CarID: 10, Score: round2((5*r2 + 3*1) / 2)},
		{CarID: 11, Score: round2(2 * r2)},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Fatalf("recs = %v, want %v", recs, want)
	}
	for _, rec := range recs {
		if all[1].Has(rec.CarID) {
			t.Fatalf("recommended already rated car %d", rec.CarID)
		}
		if rec.Score != math.Round(rec.Score*100)/100 {
			t.Fatalf("score %v not rounded", rec.Score)
		}
	}
}

func TestRecommendCollaborativeAllCandidatesRated(t *testing.T) {
	all := map[int64]core.RatingProfile{
		1: {1: 5, 2: 3, 3: 4},
		2: {1: 5, 2: 3, 3: 4},
		3: {9: 4},
	}
	recs, err := RecommendCollaborative(1, all, 5)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := []core.Recommendation{{CarID: 9, Score: 4}}
	if !reflect.DeepEqual(recs, want) {
		t.Fatalf("recs = %v, want %v", recs, want)
	}
}

func TestRecommendCollaborativeNeighborCap(t *testing.T) {
	all := map[int64]core.RatingProfile{1: {1: 1, 2: 2, 3: 3}}
	// 12 个完全正相关的邻居，只有前 10 个（按用户 ID）参与投票
	for uid := int64(2); uid <= 13; uid++ {
		all[uid] = core.RatingProfile{1: 1, 2: 2, 3: 3, 100 + uid: 5}
	}
	recs, err := RecommendCollaborative(1, all, 20)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(recs) != core.NeighborCap {
		t.Fatalf("got %d recs, want %d", len(recs), core.NeighborCap)
	}
	for _, rec := range recs {
		if rec.CarID > 111 {
			t.Fatalf("car %d comes from a neighbor beyond the cap", rec.CarID)
		}
		if rec.Score != 5 {
			t.Fatalf("score = %v, want 5", rec.Score)
		}
	}
}

func TestRecommendCollaborativeTopN(t *testing.T) {
	all := map[int64]core.RatingProfile{
		1: {1: 1, 2: 2},
		2: {1: 1, 2: 2, 3: 5, 4: 4, 5: 3, 6: 2, 7: 1, 8: 5},
	}
	recs, err := RecommendCollaborative(1, all, 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("default topN: got %d, want 5", len(recs))
	}
	// 同分按车辆 ID 升序
	if recs[0].CarID != 3 || recs[1].CarID != 8 {
		t.Fatalf("order = %v", recs)
	}
}

func TestUserBasedCFRecall(t *testing.T) {
	ratings := store.NewMemoryRatings()
	ctx := context.Background()
	seed := []core.RatingEntry{
		{UserID: 1, CarID: 1, Rating: 5}, {UserID: 1, CarID: 2, Rating: 3}, {UserID: 1, CarID: 3, Rating: 4},
		{UserID: 2, CarID: 1, Rating: 5}, {UserID: 2, CarID: 2, Rating: 3}, {UserID: 2, CarID: 3, Rating: 4}, {UserID: 2, CarID: 7, Rating: 4},
	}
	for _, e := range seed {
		if err := ratings.SaveRating(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	r := &UserBasedCF{Ratings: ratings, Workers: 2}
	items, err := r.Recall(ctx, &core.RecommendContext{UserID: 1})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(items) != 1 || items[0].ID != 7 || items[0].Score != 4 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Labels[LabelRecallSource].Value != SourceUserCF {
		t.Fatalf("label = %+v", items[0].Labels)
	}
}

func TestUserBasedCFRecallIgnoresLimit(t *testing.T) {
	ratings := store.NewMemoryRatings()
	ctx := context.Background()
	for _, e := range []core.RatingEntry{
		{UserID: 1, CarID: 1, Rating: 1}, {UserID: 1, CarID: 2, Rating: 2},
		{UserID: 2, CarID: 1, Rating: 1}, {UserID: 2, CarID: 2, Rating: 2}, {UserID: 2, CarID: 3, Rating: 5}, {UserID: 2, CarID: 4, Rating: 4},
	} {
		if err := ratings.SaveRating(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name       string
		candidates int
		want       int
	}{
		{name: "unbounded", want: 2},
		{name: "capped", candidates: 1, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &UserBasedCF{Ratings: ratings, Candidates: tt.candidates}
			items, err := r.Recall(ctx, &core.RecommendContext{UserID: 1, Limit: 1})
			if err != nil {
				t.Fatalf("Recall: %v", err)
			}
			if len(items) != tt.want || items[0].ID != 3 {
				t.Fatalf("items = %+v", items)
			}
		})
	}
}

func TestUserBasedCFRecallFallback(t *testing.T) {
	ratings := store.NewMemoryRatings()
	ctx := context.Background()
	for _, e := range []core.RatingEntry{
		{UserID: 1, CarID: 1, Rating: 5},
		{UserID: 2, CarID: 1, Rating: 5}, {UserID: 2, CarID: 2, Rating: 4},
		{UserID: 3, CarID: 2, Rating: 2}, {UserID: 3, CarID: 3, Rating: 5},
	} {
		if err := ratings.SaveRating(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	rctx := &core.RecommendContext{UserID: 1}
	items, err := (&UserBasedCF{Ratings: ratings}).Recall(ctx, rctx)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	// 平均分：c3 = 5，c2 = 3；不舍入
	if len(items) != 2 || items[0].ID != 3 || items[1].ID != 2 || items[1].Score != 3 {
		t.Fatalf("items = %+v", items)
	}
	if lbl, ok := rctx.GetLabel(LabelFallback); !ok || lbl.Value != FallbackNoNeighbors {
		t.Fatalf("fallback label = %+v, %v", lbl, ok)
	}
	if items[0].Labels[LabelRecallSource].Value != SourcePopularity {
		t.Fatalf("label = %+v", items[0].Labels)
	}
}

func TestUserBasedCFRecallNoRatings(t *testing.T) {
	_, err := (&UserBasedCF{Ratings: store.NewMemoryRatings()}).Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if !core.IsNoRatingsYet(err) {
		t.Fatalf("err = %v, want NoRatingsYet", err)
	}
}
