package sanitize

import "testing"

func TestText(t *testing.T) {
	got := Text("  <b>Hello</b>   &lt;script&gt;alert(1)&lt;/script&gt;\tworld  ")
	want := "Hello alert(1) world"
	if got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestTextPtrDropsEmpty(t *testing.T) {
	in := "<p></p>"
	if TextPtr(&in) != nil {
		t.Fatal("expected nil for markup-only input")
	}
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  Jane.Doe@Example.COM "); got != "jane.doe@example.com" {
		t.Fatalf("Email() = %q", got)
	}
}
