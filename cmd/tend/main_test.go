package main

import "testing"

func TestDefaultStoreURL(t *testing.T) {
	t.Setenv("TEND_URL", "")
	if got := defaultStoreURL(); got != "http://localhost:8080" {
		t.Errorf("Expected localhost default, got %s", got)
	}

	t.Setenv("TEND_URL", "https://todo.example.com")
	if got := defaultStoreURL(); got != "https://todo.example.com" {
		t.Errorf("Expected env override, got %s", got)
	}
}
