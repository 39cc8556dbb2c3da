package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("ENVUTIL_D", "3s")
	if got := Duration("ENVUTIL_D", time.Minute); got != 3*time.Second {
		t.Fatalf("Duration: want=3s got=%v", got)
	}
	t.Setenv("ENVUTIL_D", "7")
	if got := Duration("ENVUTIL_D", time.Minute); got != 7*time.Second {
		t.Fatalf("Duration(seconds): want=7s got=%v", got)
	}
	t.Setenv("ENVUTIL_D", "soon")
	if got := Duration("ENVUTIL_D", time.Minute); got != time.Minute {
		t.Fatalf("Duration(invalid): want=1m got=%v", got)
	}
}

func TestListAndBool(t *testing.T) {
	t.Setenv("ENVUTIL_L", " a, ,b ,")
	got := List("ENVUTIL_L", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: want=[a b] got=%v", got)
	}
	t.Setenv("ENVUTIL_B", "off")
	if Bool("ENVUTIL_B", true) {
		t.Fatalf("Bool: want=false got=true")
	}
	if Int("ENVUTIL_MISSING", 42) != 42 {
		t.Fatalf("Int: want default")
	}
}
