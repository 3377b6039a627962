package wagon

import "strings"

// ContentTypeFor infers the MIME type to attach to an upload from the
// resource suffix. Maven metadata and checksums get explicit types; anything
// unrecognized returns "" so the storage backend applies its own detection.
func ContentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".pom"), strings.HasSuffix(name, ".xml"):
		return "application/xml"
	case strings.HasSuffix(name, ".jar"), strings.HasSuffix(name, ".war"), strings.HasSuffix(name, ".ear"):
		return "application/octet-stream"
	case strings.HasSuffix(name, ".sha1"), strings.HasSuffix(name, ".md5"):
		return "text/plain"
	}
	return ""
}
