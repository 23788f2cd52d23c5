package htmlsanitize

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Abdul Karim", "Abdul Karim"},
		{"bold stripped", "Ali <b>Khan</b>", "Ali Khan"},
		{"script removed", `Omar<script>alert("x")</script>`, "Omar"},
		{"attributes removed", `<a href="javascript:alert(1)">Click</a>`, "Click"},
		{"entities kept readable", "Tom &amp; Jerry", "Tom & Jerry"},
		{"ampersand preserved", "Salam & Co", "Salam & Co"},
		{"trimmed", "  <i>Zaid</i>  ", "Zaid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsPlainText(t *testing.T) {
	if !IsPlainText("a < b") {
		t.Error("IsPlainText(\"a < b\") = false, want true")
	}
	if IsPlainText("<b>x</b>") {
		t.Error("IsPlainText(\"<b>x</b>\") = true, want false")
	}
}
