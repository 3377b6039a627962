package wagon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		bucket   string
		basePath string
	}{
		{
			name:     "bucket with nested path",
			url:      "b2://my-bucket/p1/p2",
			bucket:   "my-bucket",
			basePath: "p1/p2/",
		},
		{
			name:     "bucket only",
			url:      "b2://my-bucket",
			bucket:   "my-bucket",
			basePath: "",
		},
		{
			name:     "bucket with trailing slash",
			url:      "b2://my-bucket/",
			bucket:   "my-bucket",
			basePath: "",
		},
		{
			name:     "path already ending with separator",
			url:      "b2://my-bucket/releases/",
			bucket:   "my-bucket",
			basePath: "releases/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocation(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, loc.Bucket)
			assert.Equal(t, tt.basePath, loc.BasePath)
		})
	}
}

func TestParseLocationInvalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "wrong scheme", url: "https://my-bucket/releases"},
		{name: "no scheme", url: "my-bucket/releases"},
		{name: "empty bucket", url: "b2:///releases"},
		{name: "scheme only", url: "b2://"},
		{name: "empty", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLocation(tt.url)
			var confErr *ConfigurationError
			require.ErrorAs(t, err, &confErr)
			assert.Equal(t, tt.url, confErr.URL)
		})
	}
}

func TestResolveKey(t *testing.T) {
	loc := Location{Bucket: "b", BasePath: "releases/"}
	assert.Equal(t, "releases/com/example/app/1.0/app-1.0.jar", loc.ResolveKey("com/example/app/1.0/app-1.0.jar"))
	assert.Equal(t, "releases/a.pom", loc.ResolveKey("/a.pom"))

	empty := Location{Bucket: "b"}
	assert.Equal(t, "a.pom", empty.ResolveKey("a.pom"))
}
