package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// newMockDB creates a mock database for testing
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// newJSONRequest creates an HTTP request with a JSON body
func newJSONRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse decodes a recorded response body
func parseJSONResponse(t *testing.T, resp *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response %q: %v", resp.Body.String(), err)
	}
}

// assertStatusCode checks the HTTP status code
func assertStatusCode(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Errorf("Expected status code %d but got %d (body: %s)", want, resp.Code, resp.Body.String())
	}
}

// assertErrorCode checks the code of an error envelope
func assertErrorCode(t *testing.T, resp *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body ErrorResponse
	parseJSONResponse(t, resp, &body)
	if body.Error.Code != want {
		t.Errorf("Expected error code %s but got %s", want, body.Error.Code)
	}
}

// recordingPublisher captures jobs instead of sending them to the broker
type recordingPublisher struct {
	jobs []interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, job interface{}) error {
	p.jobs = append(p.jobs, job)
	return nil
}
