package main

import "testing"

func TestDeriveHTTPBase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ws://127.0.0.1:8080/ws", "http://127.0.0.1:8080"},
		{"wss://wise.example.com/ws", "https://wise.example.com"},
		{"not a url", "http://127.0.0.1:8080"},
	}
	for _, tt := range tests {
		if got := deriveHTTPBase(tt.in); got != tt.want {
			t.Errorf("deriveHTTPBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
