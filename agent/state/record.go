package state

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrUnknownSlot   = errors.New("unknown slot")
	ErrInvalidOption = errors.New("value is not an allowed option")
	ErrEmptyValue    = errors.New("value is empty")
	ErrTooManyItems  = errors.New("too many items")
)

type SlotKind int

const (
	KindText SlotKind = iota
	KindList
)

// Slot describes one field a collector gathers. Options, when set, is the
// closed set of legal lower-case values.
type Slot struct {
	Name     string
	Label    string
	Kind     SlotKind
	Required bool
	Options  []string
	MaxItems int
}

func (s Slot) label() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// Schema is an ordered slot list. The order is the order missing slots are reported in.
type Schema struct {
	slots []Slot
	index map[string]int
}

func NewSchema(slots ...Slot) *Schema {
	sc := &Schema{index: make(map[string]int, len(slots))}
	for _, s := range slots {
		if _, dup := sc.index[s.Name]; dup {
			panic(fmt.Sprintf("state: duplicate slot %q", s.Name))
		}
		sc.index[s.Name] = len(sc.slots)
		sc.slots = append(sc.slots, s)
	}
	return sc
}

func (sc *Schema) Slot(name string) (Slot, bool) {
	i, ok := sc.index[name]
	if !ok {
		return Slot{}, false
	}
	return sc.slots[i], true
}

func (sc *Schema) NewRecord() *Record {
	return &Record{
		schema: sc,
		text:   make(map[string]string, len(sc.slots)),
		lists:  make(map[string][]string),
	}
}

// SlotError rejects a setter value. It is conversational: Reply is what the
// caller hears.
type SlotError struct {
	Slot    string
	Label   string
	Value   string
	Options []string
	Max     int
	Err     error
}

func (e *SlotError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidOption):
		return fmt.Sprintf("%s: %v: %q not in [%s]", e.Slot, e.Err, e.Value, strings.Join(e.Options, ", "))
	case e.Value != "":
		return fmt.Sprintf("%s: %v: %q", e.Slot, e.Err, e.Value)
	default:
		return fmt.Sprintf("%s: %v", e.Slot, e.Err)
	}
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

func (e *SlotError) Reply() string {
	switch {
	case errors.Is(e.Err, ErrInvalidOption):
		return fmt.Sprintf("Sorry, %q isn't an option for %s. Please choose one of: %s.",
			e.Value, e.Label, strings.Join(e.Options, ", "))
	case errors.Is(e.Err, ErrTooManyItems):
		return fmt.Sprintf("That's a few too many. Please give me at most %d for %s.", e.Max, e.Label)
	case errors.Is(e.Err, ErrEmptyValue):
		return fmt.Sprintf("I didn't catch your %s. Could you say it again?", e.Label)
	default:
		return fmt.Sprintf("I can't record %s right now.", e.Label)
	}
}

// Record is the mutable, conversation-scoped slot store.
type Record struct {
	schema *Schema
	text   map[string]string
	lists  map[string][]string
}

func (r *Record) Schema() *Schema {
	return r.schema
}

func (r *Record) slot(name string) (Slot, error) {
	s, ok := r.schema.Slot(name)
	if !ok {
		return Slot{}, &SlotError{Slot: name, Label: name, Err: ErrUnknownSlot}
	}
	return s, nil
}

func normalize(s Slot, raw string) (string, error) {
	v := strings.Join(strings.Fields(raw), " ")
	if v == "" {
		return "", &SlotError{Slot: s.Name, Label: s.label(), Err: ErrEmptyValue}
	}
	if len(s.Options) == 0 {
		return v, nil
	}
	lower := strings.ToLower(v)
	if !slices.Contains(s.Options, lower) {
		return "", &SlotError{Slot: s.Name, Label: s.label(), Value: v, Options: s.Options, Err: ErrInvalidOption}
	}
	return lower, nil
}

// Set overwrites a text slot and returns the stored value.
func (r *Record) Set(name, value string) (string, error) {
	s, err := r.slot(name)
	if err != nil {
		return "", err
	}
	if s.Kind != KindText {
		return "", fmt.Errorf("%w: %s is a list slot", ErrUnknownSlot, name)
	}
	v, err := normalize(s, value)
	if err != nil {
		return "", err
	}
	r.text[name] = v
	return v, nil
}

// SetList overwrites a list slot. Blank items are dropped; an empty list is legal.
func (r *Record) SetList(name string, values []string) ([]string, error) {
	s, err := r.slot(name)
	if err != nil {
		return nil, err
	}
	if s.Kind != KindList {
		return nil, fmt.Errorf("%w: %s is a text slot", ErrUnknownSlot, name)
	}

	out := make([]string, 0, len(values))
	for _, raw := range values {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := normalize(s, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if s.MaxItems > 0 && len(out) > s.MaxItems {
		return nil, &SlotError{Slot: s.Name, Label: s.label(), Max: s.MaxItems, Err: ErrTooManyItems}
	}
	r.lists[name] = out
	return slices.Clone(out), nil
}

func (r *Record) Text(name string) string {
	return r.text[name]
}

func (r *Record) List(name string) []string {
	return slices.Clone(r.lists[name])
}

func (r *Record) IsSet(name string) bool {
	s, ok := r.schema.Slot(name)
	if !ok {
		return false
	}
	if s.Kind == KindList {
		return len(r.lists[name]) > 0
	}
	return r.text[name] != ""
}

// Missing returns the labels of unset required slots in schema order.
func (r *Record) Missing() []string {
	var missing []string
	for _, s := range r.schema.slots {
		if s.Required && !r.IsSet(s.Name) {
			missing = append(missing, s.label())
		}
	}
	return missing
}

func (r *Record) IsComplete() bool {
	return len(r.Missing()) == 0
}

// Values is a JSON-friendly snapshot with every slot present.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.schema.slots))
	for _, s := range r.schema.slots {
		if s.Kind == KindList {
			list := r.lists[s.Name]
			if list == nil {
				list = []string{}
			}
			out[s.Name] = slices.Clone(list)
			continue
		}
		out[s.Name] = r.text[s.Name]
	}
	return out
}
