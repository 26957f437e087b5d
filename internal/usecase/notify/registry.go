package notify

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// MessagePrefix is prepended to every template. The fields are always
// available from the case context.
const MessagePrefix = "{initials} {age}{gender} -- "

// placeholderPattern matches {name} tokens in a template.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// NotificationType is one registry entry.
// Targets nil means broadcast; a non-nil list restricts delivery to the roles.
type NotificationType struct {
	Name     string
	Targets  []string
	Template string

	placeholders []string
	compiled     *template.Template
}

// Placeholders returns the template fields in order of first appearance,
// including the prefix fields.
func (t *NotificationType) Placeholders() []string {
	return append([]string(nil), t.placeholders...)
}

// IsBroadcast reports whether the type targets every subscriber.
func (t *NotificationType) IsBroadcast() bool {
	return t.Targets == nil
}

// Registry maps type names to notification types. It is immutable once built
// and safe for concurrent reads.
type Registry struct {
	types map[string]*NotificationType
}

// DefaultTypes returns the built-in notification types.
func DefaultTypes() []NotificationType {
	return []NotificationType{
		{Name: "case_incoming", Template: "INCOMING PATIENT ETA {eta_mins} MINUTES"},
		{Name: "case_acknowledged", Template: "ACKNOWLEDGED BY {hospital_name},"},
		{Name: "case_arrived", Template: "ACTIVE PATIENT ARIVAL IN ED"},
		{Name: "likely_lvo", Template: "LIKELY LVO, ECR NOT CONFIRMED"},
		{Name: "ct_ready", Template: "CT {ct_num}, READY"},
		{Name: "ctb_completed", Template: "CTB Completed"},
		{Name: "do_cta_ctp", Template: "PROCEED TO CTA/CTP"},
		{Name: "ecr_activated", Template: "ECR ACTIVATED"},
		{Name: "case_completed", Template: "CASE COMPLETED"},
	}
}

// DefaultRegistry returns a registry of the built-in types.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultTypes())
	if err != nil {
		panic(fmt.Sprintf("built-in notification types: %v", err))
	}
	return r
}

// NewRegistry validates and compiles the given types.
func NewRegistry(types []NotificationType) (*Registry, error) {
	r := &Registry{types: make(map[string]*NotificationType, len(types))}
	for i := range types {
		nt := types[i]
		if strings.TrimSpace(nt.Name) == "" {
			return nil, &ConfigurationError{Err: fmt.Errorf("entry %d has no name", i)}
		}
		if _, dup := r.types[nt.Name]; dup {
			return nil, &ConfigurationError{NotifyType: nt.Name, Err: fmt.Errorf("duplicate entry")}
		}
		if err := nt.compile(); err != nil {
			return nil, err
		}
		r.types[nt.Name] = &nt
	}
	return r, nil
}

func (t *NotificationType) compile() error {
	if t.Targets != nil && len(t.Targets) == 0 {
		return &ConfigurationError{NotifyType: t.Name, Err: ErrEmptyTargets}
	}
	for _, role := range t.Targets {
		if strings.TrimSpace(role) == "" {
			return &ConfigurationError{NotifyType: t.Name, Err: fmt.Errorf("blank role in targets")}
		}
	}
	if strings.TrimSpace(t.Template) == "" {
		return &ConfigurationError{NotifyType: t.Name, Err: fmt.Errorf("template is empty")}
	}

	source, placeholders := translateTemplate(MessagePrefix + t.Template)
	compiled, err := template.New(t.Name).Option("missingkey=error").Parse(source)
	if err != nil {
		return &ConfigurationError{NotifyType: t.Name, Err: fmt.Errorf("parse template: %w", err)}
	}
	t.placeholders = placeholders
	t.compiled = compiled
	return nil
}

// translateTemplate rewrites {name} tokens into text/template actions.
// Literal text containing braces is emitted as a quoted string action.
func translateTemplate(s string) (string, []string) {
	var b strings.Builder
	var names []string
	seen := make(map[string]bool)
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(escapeLiteral(s[last:m[0]]))
		name := s[m[2]:m[3]]
		b.WriteString("{{." + name + "}}")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		last = m[1]
	}
	b.WriteString(escapeLiteral(s[last:]))
	return b.String(), names
}

func escapeLiteral(s string) string {
	if !strings.Contains(s, "{") {
		return s
	}
	return "{{" + strconv.Quote(s) + "}}"
}

// Lookup returns the named type or a ConfigurationError wrapping ErrUnknownType.
func (r *Registry) Lookup(name string) (*NotificationType, error) {
	nt, ok := r.types[name]
	if !ok {
		return nil, &ConfigurationError{NotifyType: name, Err: ErrUnknownType}
	}
	return nt, nil
}

// Names returns the registered type names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Types returns the registered types sorted by name.
func (r *Registry) Types() []*NotificationType {
	out := make([]*NotificationType, 0, len(r.types))
	for _, name := range r.Names() {
		out = append(out, r.types[name])
	}
	return out
}

// registryFile is the YAML layout:
//
//	notification_types:
//	  ct_ready:
//	    targets: [radiology, neuro]   # omit or null for broadcast
//	    template: "CT {ct_num}, READY"
type registryFile struct {
	NotificationTypes map[string]struct {
		Targets  []string `yaml:"targets"`
		Template string   `yaml:"template"`
	} `yaml:"notification_types"`
}

// ParseRegistry builds a registry from YAML.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("parse registry: %w", err)}
	}
	if len(file.NotificationTypes) == 0 {
		return nil, &ConfigurationError{Err: fmt.Errorf("registry defines no notification types")}
	}

	types := make([]NotificationType, 0, len(file.NotificationTypes))
	for name, entry := range file.NotificationTypes {
		types = append(types, NotificationType{Name: name, Targets: entry.Targets, Template: entry.Template})
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return NewRegistry(types)
}

// LoadRegistry reads a registry file. An empty path yields the built-in types.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("read registry %s: %w", path, err)}
	}
	return ParseRegistry(data)
}
