// Package entities contains the domain entities of the portfolio.
package entities

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dualfolio/dualfolio/internal/domain/values"
)

// SocialLink is an outbound profile link shown on a persona page.
type SocialLink struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Link string `json:"link" yaml:"link"`
	Icon string `json:"icon" yaml:"icon"`
}

// Persona is one of the identities the portfolio can render.
// Personas are immutable once registered; use Clone to hand out copies.
type Persona struct {
	ID        values.PersonaID `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	ShortName string           `json:"shortName" yaml:"short_name"`
	Headline  string           `json:"headline" yaml:"headline"`
	Bio       string           `json:"bio" yaml:"bio"`
	About     []string         `json:"about,omitempty" yaml:"about"`
	Image     string           `json:"image" yaml:"image"`
	Links     []SocialLink     `json:"links,omitempty" yaml:"links"`
}

// Validate checks the persona invariants.
// Every violation is reported, not just the first one.
func (p *Persona) Validate() error {
	var errs []error

	if p.ID.IsEmpty() {
		errs = append(errs, fmt.Errorf("id is required"))
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if strings.TrimSpace(p.Bio) == "" {
		errs = append(errs, fmt.Errorf("bio is required"))
	}

	for i, paragraph := range p.About {
		if strings.TrimSpace(paragraph) == "" {
			errs = append(errs, fmt.Errorf("about[%d] is empty", i))
		}
	}

	seen := make(map[string]bool, len(p.Links))
	for i, link := range p.Links {
		if err := link.validate(); err != nil {
			errs = append(errs, fmt.Errorf("links[%d]: %w", i, err))
			continue
		}
		if seen[link.ID] {
			errs = append(errs, fmt.Errorf("links[%d]: duplicate link id %q", i, link.ID))
		}
		seen[link.ID] = true
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("persona %q is invalid: %w", p.ID.String(), errors.Join(errs...))
}

func (l SocialLink) validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("name is required")
	}

	u, err := url.Parse(l.Link)
	if err != nil {
		return fmt.Errorf("link %q: %w", l.Link, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("link %q has no host", l.Link)
		}
	case "mailto":
		if u.Opaque == "" {
			return fmt.Errorf("link %q has no address", l.Link)
		}
	default:
		return fmt.Errorf("link %q must be http, https or mailto", l.Link)
	}
	return nil
}

// Clone returns a deep copy, so callers can never alias registry state.
func (p *Persona) Clone() Persona {
	out := *p
	if p.About != nil {
		out.About = append([]string(nil), p.About...)
	}
	if p.Links != nil {
		out.Links = append([]SocialLink(nil), p.Links...)
	}
	return out
}
