package canonical

import (
	"testing"

	"github.com/brightseth/airc-go/airc"
)

func TestEncodeSortsKeys(t *testing.T) {
	got, err := Encode(Map{"b": Int(1), "a": Int(2)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"a":2,"b":1}`
	if string(got) != want {
		t.Fatalf("Encode: got %s want %s", got, want)
	}
}

func TestEncodeDeterministicAcrossInsertionOrder(t *testing.T) {
	first := Map{}
	for _, k := range []string{"zeta", "alpha", "mid", "beta"} {
		first[k] = String(k)
	}
	second := Map{}
	for _, k := range []string{"beta", "mid", "alpha", "zeta"} {
		second[k] = String(k)
	}

	a, err := Encode(first)
	if err != nil {
		t.Fatalf("Encode first: %v", err)
	}
	b, err := Encode(second)
	if err != nil {
		t.Fatalf("Encode second: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected byte-identical output, got %s and %s", a, b)
	}
}

func TestEncodeNestedMapsSortedAtEveryLevel(t *testing.T) {
	got, err := Encode(Map{
		"outer": Map{
			"z": Int(1),
			"a": Map{"y": Int(2), "x": Int(3)},
		},
		"also": String("v"),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"also":"v","outer":{"a":{"x":3,"y":2},"z":1}}`
	if string(got) != want {
		t.Fatalf("Encode: got %s want %s", got, want)
	}
}

func TestEncodeIntegers(t *testing.T) {
	cases := []struct {
		in   Int
		want string
	}{
		{0, `{"n":0}`},
		{-1, `{"n":-1}`},
		{1700000000, `{"n":1700000000}`},
		{-9223372036854775808, `{"n":-9223372036854775808}`},
		{9223372036854775807, `{"n":9223372036854775807}`},
	}
	for _, tc := range cases {
		got, err := Encode(Map{"n": tc.in})
		if err != nil {
			t.Fatalf("Encode(%d): %v", tc.in, err)
		}
		if string(got) != tc.want {
			t.Fatalf("Encode(%d): got %s want %s", tc.in, got, tc.want)
		}
	}
}

func TestEncodeStringEscaping(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", `{"s":"hello"}`},
		{"quote and backslash", `a"b\c`, `{"s":"a\"b\\c"}`},
		{"named escapes", "a\tb\nc\rd", `{"s":"a\tb\nc\rd"}`},
		{"control", "\x01", `{"s":"\u0001"}`},
		{"delete", "\x7f", `{"s":"\u007f"}`},
		{"latin1", "café", `{"s":"caf\u00e9"}`},
		{"bmp", "☃", `{"s":"\u2603"}`},
		{"astral surrogate pair", "\U0001F600", `{"s":"\ud83d\ude00"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(Map{"s": String(tc.in)})
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("Encode: got %s want %s", got, tc.want)
			}
		})
	}
}

func TestEncodeEscapesKeysToo(t *testing.T) {
	got, err := Encode(Map{"k\neÿy": Int(1)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"k\ne\u00ffy":1}`
	if string(got) != want {
		t.Fatalf("Encode: got %s want %s", got, want)
	}
}

func TestEncodeRejectsNilValue(t *testing.T) {
	_, err := Encode(Map{"k": nil})
	if err == nil {
		t.Fatal("expected encoding error for nil value")
	}
	if !airc.IsKind(err, airc.KindEncoding) {
		t.Fatalf("expected Encoding kind, got %v", err)
	}
}

func TestEncodeEmptyMap(t *testing.T) {
	got, err := Encode(Map{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("Encode: got %s want {}", got)
	}
}
