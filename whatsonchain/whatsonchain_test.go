package whatsonchain

import "testing"

func TestNewService(t *testing.T) {
	s := NewService("my-key", "main")
	if s.apiKey != "my-key" || s.network != "main" {
		t.Errorf("Wrong service fields : %+v", s)
	}
}

func TestHTTPErrorWithMessage(t *testing.T) {
	err := HTTPError{Status: 404, Message: "not found"}
	want := "HTTP Status 404 : not found"
	if err.Error() != want {
		t.Errorf("Wrong error string : got %q, want %q", err.Error(), want)
	}
}

func TestHTTPErrorWithoutMessage(t *testing.T) {
	err := HTTPError{Status: 500}
	want := "HTTP Status 500"
	if err.Error() != want {
		t.Errorf("Wrong error string : got %q, want %q", err.Error(), want)
	}
}
