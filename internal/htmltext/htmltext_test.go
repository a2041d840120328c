package htmltext

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Loft near the river", "Loft near the river"},
		{"whitespace", "  Loft \n\t near   river ", "Loft near river"},
		{"tags", "<b>Loft</b> with <i>view</i>", "Loft with view"},
		{"script", "Loft<script>alert(1)</script>", "Loft"},
		{"style", "<style>body{}</style>Cabin", "Cabin"},
		{"blocks", "<p>Two rooms</p><p>Balcony</p>", "Two rooms Balcony"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"cyrillic", "<div>Уютная квартира</div>", "Уютная квартира"},
		{"empty", "", ""},
		{"only markup", "<script>x()</script>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PlainText(tt.input)
			if result != tt.expected {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		input    string
		n        int
		expected string
	}{
		{"Loft near the river", 4, "Loft"},
		{"Loft near the river", 100, "Loft near the river"},
		{"Квартира", 3, "Ква"},
		{"<b>Loft</b>", 0, "Loft"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := Snippet(tt.input, tt.n)
			if result != tt.expected {
				t.Errorf("Snippet(%q, %d) = %q, want %q", tt.input, tt.n, result, tt.expected)
			}
		})
	}
}
