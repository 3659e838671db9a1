// Package site loads the YAML document that drives every rendered page and names the contact
// addresses used for notifications.
package site

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrMissingContactEmail = errors.New("site: contact.email is required")

// environmentReference matches ${NAME} placeholders. Bare $ signs in copy such as "$500" are left alone.
var environmentReference = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)

type Config struct {
	Site             Identity          `yaml:"site"`
	Contact          Contact           `yaml:"contact"`
	Stats            Stats             `yaml:"stats"`
	Services         []LinkCard        `yaml:"services"`
	DetailedServices []DetailedService `yaml:"detailed_services"`
	FAQ              []FAQEntry        `yaml:"faq"`
	About            About             `yaml:"about"`
	HowWeHelp        []Step            `yaml:"how_we_help"`
	Testimonials     []Testimonial     `yaml:"testimonials"`
	Resources        []LinkCard        `yaml:"resources"`
	ResourcesPage    ResourcesPage     `yaml:"resources_page"`
	Navigation       []NavLink         `yaml:"navigation"`
	Footer           Footer            `yaml:"footer"`
}

type Identity struct {
	Title       string `yaml:"title"`
	Tagline     string `yaml:"tagline"`
	Description string `yaml:"description"`
}

type Contact struct {
	Phone             string `yaml:"phone"`
	Email             string `yaml:"email"`
	NotificationEmail string `yaml:"notification_email"`
}

type Stats struct {
	SuccessRate         string `yaml:"success_rate"`
	CasesHandled        string `yaml:"cases_handled"`
	SupportAvailability string `yaml:"support_availability"`
	LegalExperts        string `yaml:"legal_experts"`
}

type LinkCard struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
}

type Step struct {
	Step        int    `yaml:"step"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type DetailedService struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Subtitle   string   `yaml:"subtitle"`
	Features   []string `yaml:"features"`
	HowItWorks []Step   `yaml:"how_it_works"`
}

type FAQEntry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type TitledText struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Mission struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Vision      string `yaml:"vision"`
	Goal        string `yaml:"goal"`
}

type TeamMember struct {
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
	Avatar string `yaml:"avatar"`
	Bio    string `yaml:"bio"`
}

type Testimonial struct {
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
	Avatar string `yaml:"avatar"`
	Quote  string `yaml:"quote"`
}

type About struct {
	Mission            Mission       `yaml:"mission"`
	Values             []TitledText  `yaml:"values"`
	Team               []TeamMember  `yaml:"team"`
	Partnerships       []TitledText  `yaml:"partnerships"`
	ClientTestimonials []Testimonial `yaml:"client_testimonials"`
}

type Heading struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

type Alert struct {
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Link        string `yaml:"link"`
}

type Channel struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
}

type TipCategory struct {
	Title string   `yaml:"title"`
	Tips  []string `yaml:"tips"`
}

type Button struct {
	Text    string `yaml:"text"`
	Link    string `yaml:"link"`
	Variant string `yaml:"variant"`
}

type ResourcesPage struct {
	Hero                 Heading `yaml:"hero"`
	EducationalMaterials struct {
		Heading   `yaml:",inline"`
		Resources []LinkCard `yaml:"resources"`
	} `yaml:"educational_materials"`
	CyberThreats struct {
		Heading `yaml:",inline"`
		Alerts  []Alert `yaml:"alerts"`
	} `yaml:"cyber_threats"`
	ReportingChannels struct {
		Heading  `yaml:",inline"`
		Channels []Channel `yaml:"channels"`
	} `yaml:"reporting_channels"`
	SecurityTips struct {
		Heading    `yaml:",inline"`
		Categories []TipCategory `yaml:"categories"`
	} `yaml:"security_tips"`
	CTA struct {
		Heading `yaml:",inline"`
		Buttons []Button `yaml:"buttons"`
	} `yaml:"cta"`
}

type NavLink struct {
	Name string `yaml:"name"`
	Href string `yaml:"href"`
}

type Footer struct {
	QuickLinks   []NavLink `yaml:"quick_links"`
	ServiceLinks []NavLink `yaml:"service_links"`
	LegalLinks   []NavLink `yaml:"legal_links"`
}

// Load reads the document at path, expanding ${VAR} references from the environment.
func Load(path string) (Config, error) {
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return Config{}, fmt.Errorf("read site config %s: %w", path, readErr)
	}
	return Parse(content)
}

// Parse decodes a site document. Only contact.email is mandatory.
func Parse(content []byte) (Config, error) {
	var configuration Config
	if err := yaml.Unmarshal(expandEnvironment(content), &configuration); err != nil {
		return Config{}, fmt.Errorf("parse site config: %w", err)
	}
	if strings.TrimSpace(configuration.Contact.Email) == "" {
		return Config{}, ErrMissingContactEmail
	}
	return configuration, nil
}

func expandEnvironment(content []byte) []byte {
	return environmentReference.ReplaceAllFunc(content, func(reference []byte) []byte {
		name := environmentReference.FindSubmatch(reference)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// NotificationAddress picks the inbox that receives submissions. A non-empty override wins, then
// contact.notification_email, then contact.email.
func (configuration Config) NotificationAddress(override string) string {
	for _, candidate := range []string{override, configuration.Contact.NotificationEmail, configuration.Contact.Email} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
