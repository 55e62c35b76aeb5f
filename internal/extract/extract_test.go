package extract

import "testing"

func TestExtract(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "json-ld", text: `<script type="application/ld+json">{"@type":"SoftwareApplication","softwareVersion":"8.12.0"}</script>`, want: "8.12.0", wantOK: true},
		{name: "spaced", text: `"softwareVersion" :   "1.2.3"`, want: "1.2.3", wantOK: true},
		{name: "trimmed", text: `"softwareVersion":"  4.5 "`, want: "4.5", wantOK: true},
		{name: "first wins", text: `"softwareVersion":"1.0" "softwareVersion":"2.0"`, want: "1.0", wantOK: true},
		{name: "multiline gap", text: "\"softwareVersion\":\n\t\"3.1.4\"", want: "3.1.4", wantOK: true},
		{name: "blank value", text: `"softwareVersion":"   "`, wantOK: false},
		{name: "empty value", text: `"softwareVersion":""`, wantOK: false},
		{name: "missing", text: `<html><body>no data</body></html>`, wantOK: false},
		{name: "unquoted value", text: `"softwareVersion": 123`, wantOK: false},
		{name: "other key", text: `"version":"1.2.3"`, wantOK: false},
		{name: "empty input", text: "", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Extract(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("Extract(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewCustomField(t *testing.T) {
	t.Parallel()
	x := New("app.version")
	if x.Field() != "app.version" {
		t.Fatalf("Field() = %q", x.Field())
	}
	if v, ok := x.Extract(`{"app.version": "9.9"}`); !ok || v != "9.9" {
		t.Fatalf("Extract = %q, %v", v, ok)
	}
	// The dot is matched literally.
	if _, ok := x.Extract(`{"appXversion": "9.9"}`); ok {
		t.Fatal("field name must be matched literally")
	}
	if New("  ").Field() != DefaultField {
		t.Fatal("blank field should fall back to DefaultField")
	}
}
