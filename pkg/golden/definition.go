package golden

import (
	"github.com/realgarit/intuneup/pkg/policy"
)

// Field is one golden field and its reference value.
type Field struct {
	Name  string
	Value any
}

// Definition is the reference object for one category. Field order is the
// declaration order and drives result ordering. A Definition is never
// mutated after construction; accessors hand out deep copies.
type Definition struct {
	category policy.Category
	fields   []Field
}

func newDefinition(category policy.Category, fields ...Field) Definition {
	return Definition{category: category, fields: fields}
}

// Category returns the category the definition describes.
func (d Definition) Category() policy.Category {
	return d.category
}

// Len returns the number of golden fields.
func (d Definition) Len() int {
	return len(d.fields)
}

// Fields returns the golden fields in declaration order.
func (d Definition) Fields() []Field {
	out := make([]Field, len(d.fields))
	for i, f := range d.fields {
		out[i] = Field{Name: f.Name, Value: policy.DeepCopy(f.Value)}
	}
	return out
}

// Names returns the golden field names in declaration order.
func (d Definition) Names() []string {
	out := make([]string, len(d.fields))
	for i, f := range d.fields {
		out[i] = f.Name
	}
	return out
}

// Get returns a copy of the golden value of field.
func (d Definition) Get(field string) (any, bool) {
	for _, f := range d.fields {
		if f.Name == field {
			return policy.DeepCopy(f.Value), true
		}
	}
	return nil, false
}

// Payload returns the definition as a create payload.
func (d Definition) Payload() policy.RawPolicy {
	out := make(policy.RawPolicy, len(d.fields))
	for _, f := range d.fields {
		out[f.Name] = policy.DeepCopy(f.Value)
	}
	return out
}

// WithDisplayName returns a copy of d whose displayName is name.
func (d Definition) WithDisplayName(name string) Definition {
	fields := d.Fields()
	for i := range fields {
		if fields[i].Name == policy.FieldDisplayName {
			fields[i].Value = name
			return Definition{category: d.category, fields: fields}
		}
	}
	return Definition{category: d.category, fields: append(fields, Field{Name: policy.FieldDisplayName, Value: name})}
}
