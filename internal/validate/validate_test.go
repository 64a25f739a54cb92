package validate

import (
	"strings"
	"testing"
)

func TestIdent(t *testing.T) {
	valid := []string{"echo", "auto-reload", "my_plugin.v2", "A1"}
	for _, s := range valid {
		if !Ident(s) {
			t.Errorf("Ident(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "-leading", ".dot", "has space", strings.Repeat("a", MaxIdentLen+1)}
	for _, s := range invalid {
		if Ident(s) {
			t.Errorf("Ident(%q) = true, want false", s)
		}
	}
}

func TestHTTPURL(t *testing.T) {
	if err := HTTPURL("http://127.0.0.1:5140"); err != nil {
		t.Errorf("http url rejected: %v", err)
	}
	if err := HTTPURL("https://console.example.com/api"); err != nil {
		t.Errorf("https url rejected: %v", err)
	}
	for _, s := range []string{"file:///etc/passwd", "127.0.0.1:5140", "http://"} {
		if err := HTTPURL(s); err == nil {
			t.Errorf("HTTPURL(%q) accepted", s)
		}
	}
}
