package prompts

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/aula-backend/internal/domain/content"
)

const catalogEnv = "ACTIVITY_PROMPTS_YAML"

// MaxDocumentRunes bounds the attachment text placed in a user prompt.
const MaxDocumentRunes = 12000

//go:embed prompts.yaml
var catalogFS embed.FS

type yamlCatalog struct {
	Catalog   string         `yaml:"catalog"`
	Version   int            `yaml:"version"`
	JSONRule  string         `yaml:"json_rule"`
	Templates []yamlTemplate `yaml:"templates"`
}

type yamlTemplate struct {
	Type    string `yaml:"type"`
	System  string `yaml:"system"`
	Welcome string `yaml:"welcome"`
}

// Template is the compiled system prompt for one activity type.
type Template struct {
	Type    content.ActivityType
	System  string
	Welcome string
}

type Catalog struct {
	Version   int
	templates map[content.ActivityType]Template
}

var (
	loadOnce sync.Once
	loaded   *Catalog
	loadErr  error
)

// Default returns the process-wide catalog, parsed once from the embedded YAML
// or from the file named by ACTIVITY_PROMPTS_YAML.
func Default() (*Catalog, error) {
	loadOnce.Do(func() {
		var data []byte
		data, loadErr = readCatalog()
		if loadErr != nil {
			return
		}
		loaded, loadErr = Parse(data)
	})
	return loaded, loadErr
}

func readCatalog() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(catalogEnv)); path != "" {
		return os.ReadFile(path)
	}
	return catalogFS.ReadFile("prompts.yaml")
}

// Parse compiles a catalog document. Every activity type must have exactly one template.
func Parse(data []byte) (*Catalog, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("prompts: parse: %w", err)
	}
	if strings.TrimSpace(doc.Catalog) != "activity_prompts" {
		return nil, fmt.Errorf("prompts: unexpected catalog %q", doc.Catalog)
	}
	rule := strings.TrimSpace(doc.JSONRule)
	if rule == "" {
		return nil, errors.New("prompts: json_rule is required")
	}
	out := &Catalog{Version: doc.Version, templates: make(map[content.ActivityType]Template, len(doc.Templates))}
	for _, t := range doc.Templates {
		typ, ok := content.ParseActivityType(t.Type)
		if !ok {
			return nil, fmt.Errorf("prompts: unknown activity type %q", t.Type)
		}
		if _, dup := out.templates[typ]; dup {
			return nil, fmt.Errorf("prompts: duplicate template for %s", typ)
		}
		system := strings.TrimSpace(t.System)
		if system == "" {
			return nil, fmt.Errorf("prompts: empty system prompt for %s", typ)
		}
		out.templates[typ] = Template{
			Type:    typ,
			System:  system + "\n\n" + rule,
			Welcome: strings.TrimSpace(t.Welcome),
		}
	}
	for _, typ := range content.ActivityTypes {
		if _, ok := out.templates[typ]; !ok {
			return nil, fmt.Errorf("prompts: missing template for %s", typ)
		}
	}
	return out, nil
}

func (c *Catalog) Template(typ content.ActivityType) (Template, bool) {
	t, ok := c.templates[typ]
	return t, ok
}

// Input carries everything the user prompt is rendered from.
type Input struct {
	Instruction  string
	Subject      string
	GradeLevel   string
	DocumentText string
}

// User renders the user prompt: reference document first, then metadata, then the instruction.
func User(in Input) string {
	var b strings.Builder
	if doc := strings.TrimSpace(in.DocumentText); doc != "" {
		b.WriteString("Reference document:\n\"\"\"\n")
		b.WriteString(Truncate(doc, MaxDocumentRunes))
		b.WriteString("\n\"\"\"\n\n")
	}
	if s := strings.TrimSpace(in.Subject); s != "" {
		b.WriteString("Subject: " + s + "\n")
	}
	if g := strings.TrimSpace(in.GradeLevel); g != "" {
		b.WriteString("Grade level: " + g + "\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("Teacher instructions:\n")
	b.WriteString(strings.TrimSpace(in.Instruction))
	return b.String()
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
