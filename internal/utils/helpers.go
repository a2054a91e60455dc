package utils

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// ValidateS3BucketName applies the S3 bucket naming rules: 3 to 63
// characters of lowercase letters, digits, dots and hyphens, starting and
// ending with a letter or digit, no adjacent dots, not shaped like an IP.
func ValidateS3BucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return errors.New("bucket name must be between 3 and 63 characters")
	}
	for _, c := range name {
		if !isBucketChar(c) {
			return errors.New("bucket name may only contain lowercase letters, numbers, dots and hyphens")
		}
	}
	if !isAlnum(rune(name[0])) || !isAlnum(rune(name[len(name)-1])) {
		return errors.New("bucket name must start and end with a letter or number")
	}
	if strings.Contains(name, "..") {
		return errors.New("bucket name must not contain adjacent dots")
	}
	if net.ParseIP(name) != nil {
		return errors.New("bucket name must not be an IP address")
	}
	return nil
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func isBucketChar(c rune) bool {
	return isAlnum(c) || c == '-' || c == '.'
}

// ParseEndpointURL checks that rawURL is an absolute http(s) URL
func ParseEndpointURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, errors.New("URL must use HTTP or HTTPS")
	}
	if u.Host == "" {
		return nil, errors.New("URL must include a host")
	}
	return u, nil
}
