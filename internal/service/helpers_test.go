package service

import (
	"errors"
	"strings"
	"testing"
)

// AssertNoError checks that no error occurred
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
}

// AssertErrorAs checks that err unwraps to target's type
func AssertErrorAs(t *testing.T, err error, target interface{}) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error of type %T but got nil", target)
	}
	if !errors.As(err, target) {
		t.Fatalf("Expected error of type %T but got %T: %v", target, err, err)
	}
}

// AssertEqual checks if two values are equal
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("Expected %v but got %v", want, got)
	}
}

// AssertContains checks if string contains substring
func AssertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected %q to contain %q", haystack, needle)
	}
}

// AssertNotContains checks that string does not contain substring
func AssertNotContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		t.Errorf("Expected %q not to contain %q", haystack, needle)
	}
}
