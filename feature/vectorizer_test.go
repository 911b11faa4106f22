package feature

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rushteam/carkit/core"
)

func car(id int64, hp, speed, price float64, seats int) *core.Car {
	return &core.Car{
		ID:         id,
		Horsepower: core.Float(hp),
		TotalSpeed: core.Float(speed),
		Price:      core.Float(price),
		Seats:      core.Int(seats),
	}
}

func TestActiveFeatures(t *testing.T) {
	tests := []struct {
		name    string
		pref    *core.PreferenceVector
		enabled core.FeatureSet
		want    []core.Feature
		wantErr bool
	}{
		{
			name: "canonical order regardless of set order",
			pref: core.NewPreferenceVector().Set(core.FeatureSeats, 4).Set(core.FeatureHorsepower, 200),
			want: []core.Feature{core.FeatureHorsepower, core.FeatureSeats},
		},
		{
			name:    "narrowed by enabled set",
			pref:    core.NewPreferenceVector().Set(core.FeatureSeats, 4).Set(core.FeaturePrice, 1),
			enabled: core.NewFeatureSet(core.FeaturePrice),
			want:    []core.Feature{core.FeaturePrice},
		},
		{
			name:    "no active features",
			pref:    core.NewPreferenceVector(),
			wantErr: true,
		},
		{
			name:    "enabled set excludes all targets",
			pref:    core.NewPreferenceVector().Set(core.FeatureSeats, 4),
			enabled: core.NewFeatureSet(core.FeaturePrice),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ActiveFeatures(tt.pref, tt.enabled)
			if tt.wantErr {
				if !core.IsInsufficientFeatures(err) {
					t.Fatalf("err = %v, want InsufficientFeatures", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVectorizeByName(t *testing.T) {
	c := car(1, 300, 250, 100000, 4)
	row, err := Vectorize(c, []core.Feature{core.FeatureSeats, core.FeatureHorsepower})
	if err != nil {
		t.Fatalf("Vectorize: %v", err)
	}
	if !reflect.DeepEqual(row, []float64{4, 300}) {
		t.Fatalf("row = %v", row)
	}
}

func TestVectorizeMissingFeature(t *testing.T) {
	c := car(1, 300, 250, 100000, 4)
	c.Price = nil
	_, err := Vectorize(c, []core.Feature{core.FeatureHorsepower, core.FeaturePrice})
	if !errors.Is(err, core.ErrInsufficientFeatures) {
		t.Fatalf("err = %v, want ErrInsufficientFeatures", err)
	}
}

func TestBuildMatrixExcludesPartialRows(t *testing.T) {
	partial := car(2, 150, 180, 40000, 5)
	partial.TotalSpeed = nil
	cars := []*core.Car{car(1, 300, 250, 100000, 4), partial, car(3, 100, 160, 20000, 5)}

	m := BuildMatrix(cars, []core.Feature{core.FeatureHorsepower, core.FeatureTotalSpeed})
	if !reflect.DeepEqual(m.IDs, []int64{1, 3}) {
		t.Fatalf("ids = %v, want [1 3]", m.IDs)
	}
	if !reflect.DeepEqual(m.Dropped, []int64{2}) {
		t.Fatalf("dropped = %v, want [2]", m.Dropped)
	}
	if m.Len() != 2 || m.Rows[1][0] != 100 {
		t.Fatalf("rows = %v", m.Rows)
	}

	// 不参与计算的特征缺失不影响
	m = BuildMatrix(cars, []core.Feature{core.FeatureHorsepower})
	if m.Len() != 3 {
		t.Fatalf("len = %d, want 3", m.Len())
	}
}

func TestPreferenceRow(t *testing.T) {
	pref := core.NewPreferenceVector().Set(core.FeaturePrice, 95000).Set(core.FeatureHorsepower, 280)
	row, err := PreferenceRow(pref, []core.Feature{core.FeatureHorsepower, core.FeaturePrice})
	if err != nil {
		t.Fatalf("PreferenceRow: %v", err)
	}
	if !reflect.DeepEqual(row, []float64{280, 95000}) {
		t.Fatalf("row = %v", row)
	}
	if _, err := PreferenceRow(pref, []core.Feature{core.FeatureSeats}); !core.IsInsufficientFeatures(err) {
		t.Fatalf("err = %v, want InsufficientFeatures", err)
	}
}
