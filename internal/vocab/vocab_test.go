package vocab

import (
	"testing"

	"github.com/verte-zerg/samplecat/internal/model"
)

func TestParseClassAndDataType(t *testing.T) {
	if c, ok := ParseClassType("SIGNAL"); !ok || c != model.ClassSignal {
		t.Fatalf("expected SIGNAL to map to ClassSignal, got %v %v", c, ok)
	}
	if _, ok := ParseClassType("signal"); ok {
		t.Fatalf("expected lookup to be case-sensitive")
	}
	if d, ok := ParseDataType("MC"); !ok || d != model.DataTypeMC {
		t.Fatalf("expected MC to map to DataTypeMC, got %v %v", d, ok)
	}
	if _, ok := ParseDataType("FOO"); ok {
		t.Fatalf("expected FOO to be rejected")
	}
}

func TestLabelsInCodeOrder(t *testing.T) {
	classes := ClassLabels()
	if len(classes) != 2 || classes[0] != "BACKGROUND" || classes[1] != "SIGNAL" {
		t.Fatalf("unexpected class labels: %v", classes)
	}
	types := DataTypeLabels()
	if len(types) != 2 || types[0] != "DATA" || types[1] != "MC" {
		t.Fatalf("unexpected datatype labels: %v", types)
	}
}

func TestPeriodsOrderedAndDisjoint(t *testing.T) {
	ps := Periods()
	if len(ps) != 7 {
		t.Fatalf("expected 7 periods, got %d", len(ps))
	}
	if ps[0].Label != "AB" || ps[len(ps)-1].Label != "H" {
		t.Fatalf("unexpected period order: %v", PeriodLabels())
	}
	for i := 1; i < len(ps); i++ {
		if ps[i].Runs.Lo < ps[i-1].Runs.Hi {
			t.Fatalf("periods %s and %s overlap", ps[i-1].Label, ps[i].Label)
		}
	}
}

func TestPeriodRangesAreHalfOpen(t *testing.T) {
	ab, ok := LookupPeriod("AB")
	if !ok {
		t.Fatalf("expected AB to exist")
	}
	if !ab.Contains(152166) || !ab.Contains(155160) {
		t.Fatalf("expected AB bounds to be inclusive of lo and hi-1")
	}
	if ab.Contains(155161) {
		t.Fatalf("expected AB upper bound to be exclusive")
	}
	if label, ok := PeriodForRun(160000); ok {
		t.Fatalf("expected run 160000 to fall between periods, got %s", label)
	}
	if label, ok := PeriodForRun(161000); !ok || label != "E" {
		t.Fatalf("expected run 161000 in E, got %q", label)
	}
}

func TestDescribeKnown(t *testing.T) {
	if got := DescribeKnown("classes", nil); got != "no classes have been defined" {
		t.Fatalf("unexpected empty hint: %q", got)
	}
	if got := DescribeKnown("classes", ClassLabels()); got != "use one of: BACKGROUND, SIGNAL" {
		t.Fatalf("unexpected hint: %q", got)
	}
}
