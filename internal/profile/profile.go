package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_profile.yaml
var defaultProfile []byte

// Profile is the portfolio owner's static reference data.
type Profile struct {
	Owner      Owner        `yaml:"owner" json:"owner"`
	Contact    Contact      `yaml:"contact" json:"contact"`
	Skills     []SkillGroup `yaml:"skills" json:"skills"`
	Experience []Experience `yaml:"experience" json:"experience"`
	Projects   []Project    `yaml:"projects" json:"projects"`
	Education  []Education  `yaml:"education" json:"education"`
}

type Owner struct {
	Name     string `yaml:"name" json:"name"`
	Headline string `yaml:"headline" json:"headline"`
	Location string `yaml:"location" json:"location,omitempty"`
	Summary  string `yaml:"summary" json:"summary,omitempty"`
}

type Contact struct {
	Email    string `yaml:"email" json:"email,omitempty"`
	Phone    string `yaml:"phone" json:"phone,omitempty"`
	Website  string `yaml:"website" json:"website,omitempty"`
	GitHub   string `yaml:"github" json:"github,omitempty"`
	LinkedIn string `yaml:"linkedin" json:"linkedin,omitempty"`
}

type SkillGroup struct {
	Group string   `yaml:"group" json:"group"`
	Items []string `yaml:"items" json:"items"`
}

type Experience struct {
	Role       string   `yaml:"role" json:"role"`
	Company    string   `yaml:"company" json:"company"`
	Period     string   `yaml:"period" json:"period"`
	Highlights []string `yaml:"highlights" json:"highlights"`
}

type Project struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Tools       []string `yaml:"tools" json:"tools"`
	Result      string   `yaml:"result" json:"result,omitempty"`
	Link        string   `yaml:"link" json:"link,omitempty"`
}

type Education struct {
	Institution string `yaml:"institution" json:"institution"`
	Degree      string `yaml:"degree" json:"degree"`
	Period      string `yaml:"period" json:"period,omitempty"`
}

var ErrMissingOwner = errors.New("profile owner name is required")

// Load reads a YAML profile from path, or the embedded default when path is empty.
func Load(path string) (*Profile, error) {
	raw := defaultProfile
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read profile: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if strings.TrimSpace(p.Owner.Name) == "" {
		return nil, ErrMissingOwner
	}
	return &p, nil
}

func (p *Profile) FirstName() string {
	fields := strings.Fields(p.Owner.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Greeting is the assistant turn that opens every new conversation.
func (p *Profile) Greeting() string {
	return fmt.Sprintf("Hi there! I'm %s's personal AI assistant. Feel free to ask me anything about their work or skills.", p.FirstName())
}

// Context renders the profile as the plain-text block handed to the model.
func (p *Profile) Context() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s", p.Owner.Name)
	if p.Owner.Headline != "" {
		fmt.Fprintf(&b, " is a %s", p.Owner.Headline)
	}
	if p.Owner.Location != "" {
		fmt.Fprintf(&b, " based in %s", p.Owner.Location)
	}
	b.WriteString(".\n")
	if p.Owner.Summary != "" {
		b.WriteString(strings.TrimSpace(p.Owner.Summary))
		b.WriteString("\n")
	}

	contact := []struct{ label, value string }{
		{"Email", p.Contact.Email},
		{"Phone", p.Contact.Phone},
		{"Portfolio", p.Contact.Website},
		{"GitHub", p.Contact.GitHub},
		{"LinkedIn", p.Contact.LinkedIn},
	}
	b.WriteString("\nContact:\n")
	for _, c := range contact {
		if c.value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", c.label, c.value)
		}
	}

	if len(p.Skills) > 0 {
		b.WriteString("\nSkills:\n")
		for _, s := range p.Skills {
			fmt.Fprintf(&b, "- %s: %s\n", s.Group, strings.Join(s.Items, ", "))
		}
	}

	if len(p.Experience) > 0 {
		b.WriteString("\nExperience:\n")
		for _, e := range p.Experience {
			fmt.Fprintf(&b, "- %s at %s (%s):\n", e.Role, e.Company, e.Period)
			for _, h := range e.Highlights {
				fmt.Fprintf(&b, "  - %s\n", h)
			}
		}
	}

	if len(p.Projects) > 0 {
		b.WriteString("\nProjects:\n")
		for i, pr := range p.Projects {
			fmt.Fprintf(&b, "%d. %s:\n", i+1, pr.Title)
			if pr.Description != "" {
				fmt.Fprintf(&b, "   - %s\n", pr.Description)
			}
			if len(pr.Tools) > 0 {
				fmt.Fprintf(&b, "   - Tech Stack: %s\n", strings.Join(pr.Tools, ", "))
			}
			if pr.Result != "" {
				fmt.Fprintf(&b, "   - Result: %s\n", pr.Result)
			}
		}
	}

	if len(p.Education) > 0 {
		b.WriteString("\nEducation:\n")
		for _, e := range p.Education {
			line := fmt.Sprintf("- %s, %s", e.Degree, e.Institution)
			if e.Period != "" {
				line += fmt.Sprintf(" (%s)", e.Period)
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}
