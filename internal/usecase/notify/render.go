package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"casetrack/internal/domain/entity"
)

// Args are the caller supplied template values, keyed by placeholder name.
type Args map[string]string

// Reserved placeholders filled from the case context.
const (
	FieldInitials = "initials"
	FieldAge      = "age"
	FieldGender   = "gender"
)

// legacyArgValues are substituted in presence-only mode regardless of the
// supplied value. Keys not listed here keep their value.
var legacyArgValues = map[string]string{
	"eta_mins":      "30",
	"hospital_name": "Austin",
}

// RenderOptions tune message rendering.
type RenderOptions struct {
	// PresenceOnlyArgs treats eta_mins and hospital_name as flags and
	// substitutes fixed values whenever the key is present.
	PresenceOnlyArgs bool
}

// Renderer builds the personalized message text.
type Renderer struct {
	opts RenderOptions
	now  func() time.Time
}

// NewRenderer creates a renderer using the wall clock for age computation.
func NewRenderer(opts RenderOptions) *Renderer {
	return &Renderer{opts: opts, now: time.Now}
}

// WithClock returns a copy of the renderer that computes ages at now().
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	c := *r
	c.now = now
	return &c
}

// Render returns "{initials} {age}{gender} -- " followed by the type's
// template with every placeholder substituted. Any placeholder without a
// value is a RenderError; it is never rendered blank.
func (r *Renderer) Render(nt *NotificationType, info *entity.CaseInfo, args Args) (string, error) {
	if info == nil {
		return "", &RenderError{NotifyType: nt.Name, Err: errors.New("no case context")}
	}

	initials, err := info.Initials()
	if err != nil {
		return "", &RenderError{NotifyType: nt.Name, Placeholder: FieldInitials, Err: err}
	}

	fields := make(map[string]string, len(args)+3)
	for key, value := range args {
		fields[key] = r.argValue(key, value)
	}
	fields[FieldInitials] = initials
	fields[FieldAge] = info.Age(r.now())
	fields[FieldGender] = info.Gender

	for _, name := range nt.placeholders {
		value, ok := fields[name]
		if !ok {
			return "", &RenderError{NotifyType: nt.Name, Placeholder: name, Err: errors.New("no value supplied")}
		}
		if isArgField(name) && strings.TrimSpace(value) == "" {
			return "", &RenderError{NotifyType: nt.Name, Placeholder: name, Err: errors.New("empty value")}
		}
	}

	var b strings.Builder
	if err := nt.compiled.Execute(&b, fields); err != nil {
		return "", &RenderError{NotifyType: nt.Name, Err: fmt.Errorf("execute template: %w", err)}
	}
	return b.String(), nil
}

// isArgField reports whether name is filled from caller args rather than
// the case context. Gender may legitimately be blank.
func isArgField(name string) bool {
	switch name {
	case FieldInitials, FieldAge, FieldGender:
		return false
	}
	return true
}

func (r *Renderer) argValue(key, value string) string {
	if r.opts.PresenceOnlyArgs {
		if fixed, ok := legacyArgValues[key]; ok {
			return fixed
		}
	}
	return value
}
