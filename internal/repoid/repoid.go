// Package repoid parses GitHub repository URLs into normalized identifiers.
package repoid

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultRef is used when the URL names no branch.
const DefaultRef = "main"

// ErrInvalidURL is returned for any URL that does not name a github.com
// repository root or tree.
var ErrInvalidURL = errors.New("invalid GitHub repository URL")

// namePattern matches GitHub owner and repository names.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Identifier names one repository snapshot.
type Identifier struct {
	Owner   string `json:"owner" yaml:"owner"`
	Name    string `json:"name" yaml:"name"`
	Ref     string `json:"ref" yaml:"ref"`
	Subpath string `json:"subpath,omitempty" yaml:"subpath,omitempty"`

	// defaulted is set when no ref was given and Ref holds DefaultRef.
	defaulted bool
}

// New builds an identifier and validates it. An empty ref becomes DefaultRef.
func New(owner, name, ref, subpath string) (Identifier, error) {
	id := Identifier{
		Owner:   owner,
		Name:    name,
		Ref:     ref,
		Subpath: strings.Trim(subpath, "/"),
	}
	if id.Ref == "" {
		id.Ref = DefaultRef
		id.defaulted = true
	}
	if err := id.Validate(); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// Validate checks the owner/name invariants.
func (id Identifier) Validate() error {
	if err := validateName(id.Owner, "owner"); err != nil {
		return err
	}
	if err := validateName(id.Name, "repository name"); err != nil {
		return err
	}
	if id.Ref == "" {
		return fmt.Errorf("%w: ref is empty", ErrInvalidURL)
	}
	for _, seg := range strings.Split(id.Subpath, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: subpath must not contain '..'", ErrInvalidURL)
		}
	}
	return nil
}

// IsDefaultRef reports whether the ref was defaulted rather than named. An
// explicit "tree/main" is named.
func (id Identifier) IsDefaultRef() bool {
	return id.defaulted
}

// WithRef returns a copy pointing at an explicitly named ref.
func (id Identifier) WithRef(ref string) Identifier {
	id.Ref = ref
	id.defaulted = false
	return id
}

// FullName returns "owner/name".
func (id Identifier) FullName() string {
	return id.Owner + "/" + id.Name
}

// URL returns the canonical repository URL.
func (id Identifier) URL() string {
	return "https://github.com/" + id.FullName()
}

// String returns "owner/name@ref" with ":subpath" appended when set.
func (id Identifier) String() string {
	s := id.FullName() + "@" + id.Ref
	if id.Subpath != "" {
		s += ":" + id.Subpath
	}
	return s
}

// Parse normalizes a user supplied URL. Accepted forms:
//
//	github.com/owner/repo
//	https://github.com/owner/repo(.git)(/)
//	https://github.com/owner/repo/tree/<ref>[/sub/path]
//
// Query strings, fragments and any other sub-page (issues, pulls, blob)
// are rejected.
func Parse(raw string) (Identifier, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Identifier{}, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return Identifier{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Host)
	if host != "github.com" && host != "www.github.com" {
		return Identifier{}, fmt.Errorf("%w: only github.com repository URLs are supported", ErrInvalidURL)
	}
	if u.User != nil {
		return Identifier{}, fmt.Errorf("%w: credentials are not allowed in the URL", ErrInvalidURL)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" || strings.Contains(s, "#") {
		return Identifier{}, fmt.Errorf("%w: query strings and fragments are not allowed", ErrInvalidURL)
	}

	p := strings.TrimRight(u.Path, "/")
	p = strings.TrimSuffix(p, ".git")
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")

	switch {
	case len(parts) == 2:
		return New(parts[0], parts[1], "", "")
	case len(parts) >= 4 && parts[2] == "tree":
		if parts[3] == "" {
			return Identifier{}, fmt.Errorf("%w: missing ref after /tree/", ErrInvalidURL)
		}
		for _, seg := range parts[4:] {
			if seg == "" {
				return Identifier{}, fmt.Errorf("%w: empty path segment", ErrInvalidURL)
			}
		}
		return New(parts[0], parts[1], parts[3], strings.Join(parts[4:], "/"))
	default:
		return Identifier{}, fmt.Errorf("%w: URL must be a repository root (https://github.com/owner/repo) or tree", ErrInvalidURL)
	}
}

func validateName(v, what string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidURL, what)
	}
	if v == "." || v == ".." || !namePattern.MatchString(v) {
		return fmt.Errorf("%w: invalid %s %q", ErrInvalidURL, what, v)
	}
	return nil
}
