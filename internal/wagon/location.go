package wagon

import "strings"

// Scheme is the URL scheme for B2-backed repositories, as used in
// distributionManagement, e.g. b2://bucket-name/path/to/repo.
const Scheme = "b2"

// Location identifies a remote repository root: a bucket plus an optional
// base path inside it.
//
// BasePath is normalized so it never starts with a separator and, when
// non-empty, always ends with one. Resource keys are then plain
// concatenations of BasePath and the resource name.
type Location struct {
	Bucket   string
	BasePath string
}

// ParseLocation parses a repository URL of the form b2://bucket/base/path.
func ParseLocation(rawURL string) (Location, error) {
	prefix := Scheme + "://"
	if !strings.HasPrefix(rawURL, prefix) {
		return Location{}, &ConfigurationError{URL: rawURL, Reason: "URL must start with " + prefix}
	}

	bucket, basePath, _ := strings.Cut(strings.TrimPrefix(rawURL, prefix), "/")
	if bucket == "" {
		return Location{}, &ConfigurationError{URL: rawURL, Reason: "bucket name is empty"}
	}

	basePath = strings.TrimPrefix(basePath, "/")
	if basePath != "" && !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}

	return Location{Bucket: bucket, BasePath: basePath}, nil
}

// ResolveKey maps a logical resource name onto the full remote key.
func (l Location) ResolveKey(resourceName string) string {
	return l.BasePath + strings.TrimPrefix(resourceName, "/")
}
