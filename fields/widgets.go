package fields

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// WidgetKind names the input control a field renders as.
type WidgetKind string

const (
	WidgetText        WidgetKind = "text"
	WidgetNumber      WidgetKind = "number"
	WidgetCurrency    WidgetKind = "currency"
	WidgetDate        WidgetKind = "date"
	WidgetSelect      WidgetKind = "select"
	WidgetMultiSelect WidgetKind = "multiselect"
)

// Widget renders one field and normalizes raw input coming from it.
type Widget interface {
	Kind() WidgetKind
	// Normalize turns raw input into the value stored in the form's value
	// map. Input it cannot interpret is returned unchanged so the validator
	// can report it.
	Normalize(raw any) any
	// View describes the control for field f holding value.
	View(f DynamicField, value any) WidgetView
}

// WidgetView is the render description of one field, consumed by clients.
type WidgetView struct {
	FieldID     string        `json:"fieldId"`
	Name        string        `json:"name"`
	Label       string        `json:"label"`
	Widget      WidgetKind    `json:"widget"`
	Input       string        `json:"input"`
	Value       any           `json:"value"`
	Display     string        `json:"display,omitempty"`
	Required    bool          `json:"required"`
	Placeholder string        `json:"placeholder,omitempty"`
	Description string        `json:"description,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
	Multiple    bool          `json:"multiple,omitempty"`
	Min         *float64      `json:"min,omitempty"`
	Max         *float64      `json:"max,omitempty"`
	Step        *float64      `json:"step,omitempty"`
	MinLength   *int          `json:"minLength,omitempty"`
	MaxLength   *int          `json:"maxLength,omitempty"`
	Error       string        `json:"error,omitempty"`
	ErrorKind   ErrorKind     `json:"errorKind,omitempty"`
}

func baseView(f DynamicField, kind WidgetKind, input string, value any) WidgetView {
	return WidgetView{
		FieldID:     f.ID,
		Name:        f.Name,
		Label:       f.Label,
		Widget:      kind,
		Input:       input,
		Value:       value,
		Required:    f.Required,
		Placeholder: f.Placeholder,
		Description: f.Description,
	}
}

type textWidget struct{}

func (textWidget) Kind() WidgetKind { return WidgetText }

func (textWidget) Normalize(raw any) any {
	if raw == nil {
		return ""
	}
	if s, ok := asText(raw); ok {
		return s
	}
	return raw
}

func (w textWidget) View(f DynamicField, value any) WidgetView {
	v := baseView(f, w.Kind(), "text", value)
	if f.Validation != nil {
		v.MinLength = cloneInt(f.Validation.MinLength)
		v.MaxLength = cloneInt(f.Validation.MaxLength)
	}
	return v
}

type numberWidget struct{}

func (numberWidget) Kind() WidgetKind { return WidgetNumber }

func (numberWidget) Normalize(raw any) any {
	return normalizeNumber(raw, nil)
}

func (w numberWidget) View(f DynamicField, value any) WidgetView {
	v := baseView(f, w.Kind(), "number", value)
	v.Min, v.Max, v.Step = cloneFloat(f.Min), cloneFloat(f.Max), cloneFloat(f.Step)
	return v
}

type currencyWidget struct{}

func (currencyWidget) Kind() WidgetKind { return WidgetCurrency }

// Normalize accepts plain numbers as well as "R$ 1.234,56".
func (currencyWidget) Normalize(raw any) any {
	return normalizeNumber(raw, func(s string) string {
		return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	})
}

func (w currencyWidget) View(f DynamicField, value any) WidgetView {
	v := baseView(f, w.Kind(), "number", value)
	v.Min, v.Max, v.Step = cloneFloat(f.Min), cloneFloat(f.Max), cloneFloat(f.Step)
	if n, ok := asNumber(value); ok {
		v.Display = FormatBRL(n)
	}
	return v
}

type dateWidget struct{}

func (dateWidget) Kind() WidgetKind { return WidgetDate }

// Normalize stores dates as YYYY-MM-DD. dd/mm/yyyy input is converted.
func (dateWidget) Normalize(raw any) any {
	switch t := raw.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(time.DateOnly)
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.Parse("02/01/2006", s); err == nil {
			return d.Format(time.DateOnly)
		}
		if d, err := time.Parse(time.RFC3339, s); err == nil {
			return d.Format(time.DateOnly)
		}
		return s
	default:
		return raw
	}
}

func (w dateWidget) View(f DynamicField, value any) WidgetView {
	return baseView(f, w.Kind(), "date", value)
}

type dropdownWidget struct{}

func (dropdownWidget) Kind() WidgetKind { return WidgetSelect }

func (dropdownWidget) Normalize(raw any) any {
	if raw == nil {
		return ""
	}
	if s, ok := asText(raw); ok {
		return s
	}
	return raw
}

func (w dropdownWidget) View(f DynamicField, value any) WidgetView {
	v := baseView(f, w.Kind(), "select", value)
	v.Options = append([]FieldOption{}, f.Options...)
	return v
}

type multiDropdownWidget struct{}

func (multiDropdownWidget) Kind() WidgetKind { return WidgetMultiSelect }

// Normalize accepts a list or a comma separated string.
func (multiDropdownWidget) Normalize(raw any) any {
	switch t := raw.(type) {
	case nil:
		return []string{}
	case string:
		out := []string{}
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		if sel, ok := asStrings(raw); ok {
			return append([]string{}, sel...)
		}
		return raw
	}
}

func (w multiDropdownWidget) View(f DynamicField, value any) WidgetView {
	v := baseView(f, w.Kind(), "select", value)
	v.Options = append([]FieldOption{}, f.Options...)
	v.Multiple = true
	return v
}

func normalizeNumber(raw any, clean func(string) string) any {
	s, ok := raw.(string)
	if !ok {
		if raw == nil {
			return nil
		}
		if n, ok := asNumber(raw); ok {
			return n
		}
		return raw
	}
	if clean != nil {
		s = clean(s)
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if n, ok := asNumber(s); ok {
		return n
	}
	return raw
}

// FormatBRL formats n as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(n float64) string {
	neg := n < 0
	cents := int64(math.Round(math.Abs(n) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

// Normalize keeps the values whose key is a field of schema and passes
// those of active fields through their widget. Inactive fields keep the
// stored value untouched so that reactivation restores it.
func (r *Registry) Normalize(schema []DynamicField, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for _, f := range schema {
		v, ok := values[f.ID]
		if !ok {
			continue
		}
		if f.IsActive {
			v = r.Widget(f.Type).Normalize(v)
		}
		out[f.ID] = v
	}
	return out
}

// KeepInactive copies into values the stored value of every inactive field
// that values leaves out. Forms only show active fields, so a resubmission
// never carries those answers.
func KeepInactive(schema []DynamicField, stored, values map[string]any) map[string]any {
	if values == nil {
		values = map[string]any{}
	}
	for _, f := range schema {
		if f.IsActive {
			continue
		}
		if _, sent := values[f.ID]; sent {
			continue
		}
		if v, ok := stored[f.ID]; ok {
			values[f.ID] = v
		}
	}
	return values
}
