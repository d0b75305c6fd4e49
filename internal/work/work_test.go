package work

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_Scan(t *testing.T) {
	want := NewDate(2021, time.July, 15)

	tests := []struct {
		name string
		src  any
	}{
		{"time value", time.Date(2021, 7, 15, 0, 0, 0, 0, time.UTC)},
		{"time value with zone", time.Date(2021, 7, 15, 0, 0, 0, 0, time.FixedZone("X", 3600))},
		{"string", "2021-07-15"},
		{"bytes", []byte("2021-07-15")},
		{"string with time", "2021-07-15T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := d.Scan(tt.src); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if !d.Equal(want.Time) {
				t.Errorf("Scan() = %v, want %v", d, want)
			}
		})
	}
}

func TestDate_ScanRejectsGarbage(t *testing.T) {
	var d Date
	if err := d.Scan("15/07/2021"); err == nil {
		t.Error("Scan() expected error for DD/MM/YYYY text")
	}
	if err := d.Scan(42); err == nil {
		t.Error("Scan() expected error for int")
	}
}

func TestDate_ValueIsISO(t *testing.T) {
	v, err := NewDate(2009, time.March, 4).Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != "2009-03-04" {
		t.Errorf("Value() = %v, want 2009-03-04", v)
	}
}

func TestIDList_ValueAndScan(t *testing.T) {
	v, err := IDList{"W1", "W2"}.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != `["W1","W2"]` {
		t.Errorf("Value() = %v", v)
	}

	empty, _ := IDList(nil).Value()
	if empty != "[]" {
		t.Errorf("nil Value() = %v, want []", empty)
	}

	var l IDList
	if err := l.Scan([]byte(`["W1","W2"]`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(l) != 2 || l[0] != "W1" || l[1] != "W2" {
		t.Errorf("Scan() = %v, want [W1 W2]", l)
	}

	if err := l.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if l == nil || len(l) != 0 {
		t.Errorf("Scan(nil) = %#v, want empty list", l)
	}
}

func TestWork_JSON(t *testing.T) {
	w := Work{
		ID:              "W2100837269",
		Title:           "prisma a study 2009",
		PublicationDate: NewDate(2009, time.July, 21),
	}

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["publication_date"] != "2009-07-21" {
		t.Errorf("publication_date = %v, want 2009-07-21", got["publication_date"])
	}
	if refs, ok := got["referenced_works"].([]any); !ok || len(refs) != 0 {
		t.Errorf("referenced_works = %v, want []", got["referenced_works"])
	}
	if got["doi"] != nil {
		t.Errorf("doi = %v, want null", got["doi"])
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	year := 2009
	if !(Filter{Limit: 10}).IsEmpty() {
		t.Error("limit alone should count as empty")
	}
	if (Filter{Year: &year}).IsEmpty() {
		t.Error("year filter should not be empty")
	}
}
