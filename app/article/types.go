package article

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Date is a day-granularity calendar date. Time-of-day is always midnight.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse date '%s': %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Article is a blog post record supplied by the content source.
// PublishDate and Published are optional; absence means "unscheduled".
type Article struct {
	ID          int    `yaml:"id"`
	Title       string `yaml:"title"`
	Excerpt     string `yaml:"excerpt"`
	Content     string `yaml:"content,omitempty"`
	Category    string `yaml:"category,omitempty"`
	ReadTime    string `yaml:"read_time,omitempty"`
	ImageURL    string `yaml:"image_url,omitempty"`
	SourceURL   string `yaml:"source_url,omitempty"`
	PublishDate *Date  `yaml:"publish_date,omitempty"`
	Published   *bool  `yaml:"published,omitempty"`
}

// PublishOverride patches scheduling fields of a base article. Pointer
// fields so that presence, not truthiness, decides precedence: an explicit
// false wins over the base value.
type PublishOverride struct {
	PublishDate *Date `json:"publishDate,omitempty"`
	Published   *bool `json:"published,omitempty"`
}

// ContentOverride patches display fields only. Never affects visibility.
type ContentOverride struct {
	Title    *string `json:"title,omitempty"`
	Excerpt  *string `json:"excerpt,omitempty"`
	Content  *string `json:"content,omitempty"`
	Category *string `json:"category,omitempty"`
	ReadTime *string `json:"readTime,omitempty"`
}

// Overrides holds both persisted override maps, keyed by article id.
type Overrides struct {
	Publish map[int]PublishOverride
	Content map[int]ContentOverride
}
