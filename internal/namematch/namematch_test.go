package namematch_test

import (
	"testing"

	"golang.org/x/text/unicode/norm"

	"photodesk/internal/namematch"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"김민수", "김민수", true},
		{" 김민수 ", "김민수", true},
		{"김민수", "김민수님", true},
		{"김민수님", "김민수", true},
		{"김*수", "김민수", true},
		{"김민수", "김*수", true},
		{"김*", "김민", true},
		{"김*", "김민수", false},
		{"김*수", "김민호", false},
		{"김민수", "김영수", true},
		{"김민수", "이민수", false},
		{"김", "김민수", false},
		{"김", "김", true},
		{"", "김민수", false},
		{"사공*지", "사공민지", true},
		{"김*", "이민", false},
	}
	for _, tc := range cases {
		if got := namematch.Match(tc.a, tc.b); got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMatchNormalizesDecomposedHangul(t *testing.T) {
	decomposed := norm.NFD.String("김민수")
	if decomposed == "김민수" {
		t.Fatal("expected NFD form to differ")
	}
	if !namematch.Match(decomposed, "김민수") {
		t.Fatal("expected NFD and NFC names to match")
	}
}

func TestFolderCustomer(t *testing.T) {
	cases := map[string]string{
		"260213_김민수_프리미엄": "김민수",
		"260213_김민수 베이직":  "김민수",
		"김민수_보정":          "김민수",
		"260213_":           "",
		"2602_김민수":         "2602",
	}
	for in, want := range cases {
		if got := namematch.FolderCustomer(in); got != want {
			t.Errorf("FolderCustomer(%q) = %q, want %q", in, got, want)
		}
	}
}
