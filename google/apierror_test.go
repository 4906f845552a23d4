package google

import (
	"net/http"
	"strings"
	"testing"
)

func TestNewAPIErrorParsesEnvelope(t *testing.T) {
	body := []byte(`{
		"error": {
			"code": 403,
			"message": "The caller does not have permission",
			"status": "PERMISSION_DENIED"
		}
	}`)
	apiErr := NewAPIError("drive", http.StatusForbidden, body)
	if apiErr.Message != "The caller does not have permission" {
		t.Fatalf("message = %q", apiErr.Message)
	}
	if apiErr.Reason != "PERMISSION_DENIED" {
		t.Fatalf("reason = %q", apiErr.Reason)
	}
	if !apiErr.PermissionDenied() {
		t.Fatal("expected permission denied classification")
	}
	if !strings.Contains(apiErr.Error(), "drive api error (403)") {
		t.Fatalf("error string = %q", apiErr.Error())
	}
}

func TestNewAPIErrorNonJSONBody(t *testing.T) {
	apiErr := NewAPIError("sheets", http.StatusBadGateway, []byte("<html>upstream blew up</html>"))
	if apiErr.Message != "<html>upstream blew up</html>" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	cases := []struct {
		status       int
		unauthorized bool
		forbidden    bool
		notFound     bool
	}{
		{status: http.StatusUnauthorized, unauthorized: true},
		{status: http.StatusForbidden, forbidden: true},
		{status: http.StatusNotFound, notFound: true},
		{status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		apiErr := &APIError{Service: "calendar", StatusCode: tc.status}
		if apiErr.Unauthorized() != tc.unauthorized {
			t.Fatalf("status %d: Unauthorized = %v", tc.status, apiErr.Unauthorized())
		}
		if apiErr.PermissionDenied() != tc.forbidden {
			t.Fatalf("status %d: PermissionDenied = %v", tc.status, apiErr.PermissionDenied())
		}
		if apiErr.NotFound() != tc.notFound {
			t.Fatalf("status %d: NotFound = %v", tc.status, apiErr.NotFound())
		}
	}
}
