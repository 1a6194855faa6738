package httpclient_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elter-ri/vocabs-sync/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		url           string
		message       string
		expectedError string
	}{
		{
			name:          "all fields are rendered",
			statusCode:    404,
			url:           "https://raw.githubusercontent.com/LTER-Europe/SO/refs/heads/main/standard-observations.ttl",
			message:       "404 Not Found",
			expectedError: "HTTP 404 for URL https://raw.githubusercontent.com/LTER-Europe/SO/refs/heads/main/standard-observations.ttl: 404 Not Found",
		},
		{
			name:          "empty message",
			statusCode:    500,
			url:           "http://fuseki:3030/skosmos/data",
			message:       "",
			expectedError: "HTTP 500 for URL http://fuseki:3030/skosmos/data: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := httpclient.NewHTTPError(tt.statusCode, tt.url, tt.message)

			assert.Equal(t, tt.expectedError, err.Error())
		})
	}
}
