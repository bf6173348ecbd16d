package cypher

import (
	"math"
	"testing"
)

func TestValuesEqual_NumericCrossKind(t *testing.T) {
	if !valuesEqual(Int(3), Float(3.0)) {
		t.Fatal("expected Int(3) == Float(3.0)")
	}
	if valuesEqual(Int(3), Str("3")) {
		t.Fatal("expected Int(3) != Str(\"3\")")
	}
}

func TestValuesEqual_NaNNeverEqual(t *testing.T) {
	nan := Float(math.NaN())
	if valuesEqual(nan, nan) {
		t.Fatal("expected NaN != NaN")
	}
}

func TestValuesEqual_ListsAndMapsStructural(t *testing.T) {
	a := List([]Value{Int(1), Str("x")})
	b := List([]Value{Int(1), Str("x")})
	if !valuesEqual(a, b) {
		t.Fatal("expected structurally equal lists to be equal")
	}

	m1 := NewOrderedMap()
	m1.Set("k", Int(1))
	m2 := NewOrderedMap()
	m2.Set("k", Int(1))
	if !valuesEqual(Map(m1), Map(m2)) {
		t.Fatal("expected structurally equal maps to be equal")
	}
}

func TestValuesOrder_CrossTypeUndefined(t *testing.T) {
	if _, ok := valuesOrder(Int(1), Str("a")); ok {
		t.Fatal("expected cross Int/String ordering to be undefined")
	}
	if cmp, ok := valuesOrder(Int(1), Float(2)); !ok || cmp >= 0 {
		t.Fatalf("expected 1 < 2, got cmp=%d ok=%v", cmp, ok)
	}
}

func TestSortCompare_NullSortsLast(t *testing.T) {
	if sortCompare(Null(), Int(1)) <= 0 {
		t.Fatal("expected Null to sort after a non-null value in ascending order")
	}
	if sortCompare(Int(1), Null()) >= 0 {
		t.Fatal("expected a non-null value to sort before Null")
	}
	if sortCompare(Null(), Null()) != 0 {
		t.Fatal("expected Null == Null under sortCompare")
	}
}

func TestThreeValuedLogic_And(t *testing.T) {
	cases := []struct {
		a, b Value
		want Value
	}{
		{Bool(true), Null(), Null()},
		{Bool(false), Null(), Bool(false)},
		{Null(), Null(), Null()},
		{Bool(true), Bool(true), Bool(true)},
	}
	for _, c := range cases {
		got := triAnd(c.a, c.b)
		if got.IsNull() != c.want.IsNull() || (!got.IsNull() && got.AsBool() != c.want.AsBool()) {
			t.Fatalf("triAnd(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestThreeValuedLogic_Or(t *testing.T) {
	cases := []struct {
		a, b Value
		want Value
	}{
		{Bool(false), Null(), Null()},
		{Bool(true), Null(), Bool(true)},
		{Null(), Null(), Null()},
	}
	for _, c := range cases {
		got := triOr(c.a, c.b)
		if got.IsNull() != c.want.IsNull() || (!got.IsNull() && got.AsBool() != c.want.AsBool()) {
			t.Fatalf("triOr(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestThreeValuedLogic_PAndNotP(t *testing.T) {
	p := Bool(true)
	if got := triAnd(p, triNot(p)); !got.IsNull() && got.AsBool() != false {
		t.Fatalf("expected p AND NOT p = false for non-null p, got %v", got)
	}
	null := Null()
	if got := triAnd(null, triNot(null)); !got.IsNull() {
		t.Fatalf("expected p AND NOT p = null for null p, got %v", got)
	}
}

func TestIsTruthy(t *testing.T) {
	if !isTruthy(Bool(true)) {
		t.Fatal("expected Bool(true) to be truthy")
	}
	if isTruthy(Bool(false)) || isTruthy(Null()) || isTruthy(Int(1)) {
		t.Fatal("expected only literal Bool(true) to be truthy")
	}
}
