package textutil

import "testing"

func TestSanitizeCustomerName(t *testing.T) {
	cases := map[string]string{
		"김민수 (2명) (프리미엄)": "김민수",
		"  Kim Min-su ":     "Kim Minsu",
		"이서연🎂":             "이서연",
		"(메모)":              "unknown",
		"":                  "unknown",
		"박_지수":              "박_지수",
	}
	for in, want := range cases {
		if got := SanitizeCustomerName(in); got != want {
			t.Errorf("SanitizeCustomerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` a/b:c*d?"<>| `); got != "a-b-c-d" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	if got := SanitizeFileName("   "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "a", "b") != "a" || Ternary(false, 1, 2) != 2 {
		t.Fatal("unexpected Ternary result")
	}
}
