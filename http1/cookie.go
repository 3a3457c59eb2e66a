package http1

import (
	"strconv"
	"strings"
)

// SameSite enumerates the Set-Cookie SameSite attribute values (§3 Cookie
// data model).
type SameSite int

const (
	SameSiteDefault SameSite = iota
	SameSiteStrict
	SameSiteLax
	SameSiteNone
)

func (s SameSite) String() string {
	switch s {
	case SameSiteStrict:
		return "Strict"
	case SameSiteLax:
		return "Lax"
	case SameSiteNone:
		return "None"
	default:
		return ""
	}
}

// Cookie represents one HTTP cookie, serializable to a Set-Cookie header
// value and parseable from a Cookie request header.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	MaxAge   int // seconds; 0 means unset
	Secure   bool
	HTTPOnly bool
	SameSite SameSite
}

// String serializes the cookie as a Set-Cookie header value. Attributes
// appear in the order specified in §6: Domain, Path, Max-Age, Secure,
// HttpOnly, SameSite.
func (c *Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.MaxAge != 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(c.MaxAge))
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if s := c.SameSite.String(); s != "" {
		b.WriteString("; SameSite=")
		b.WriteString(s)
	}
	return b.String()
}

// ParseCookies parses a Cookie request header value into a name->value
// mapping per §6: split on ';', trim, keep entries containing '=', split on
// the first '=' to form each pair.
func ParseCookies(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.IndexByte(part, '=')
		if i < 0 {
			continue
		}
		name := strings.TrimSpace(part[:i])
		value := strings.TrimSpace(part[i+1:])
		if name == "" {
			continue
		}
		out[name] = value
	}
	return out
}
