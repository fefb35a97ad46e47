// Package schema turns OpenAPI schema objects into SchemaNodes and SchemaNodes into runtime validators.
package schema

// Type is the tag carried by a Node.
type Type string

const (
	TypeNull        Type = "null"
	TypeBoolean     Type = "boolean"
	TypeString      Type = "string"
	TypeNumber      Type = "number"
	TypeInteger     Type = "integer"
	TypeEnumString  Type = "enum<string>"
	TypeEnumNumber  Type = "enum<number>"
	TypeEnumInteger Type = "enum<integer>"
	TypeArray       Type = "array"
	TypeObject      Type = "object"
	TypeFile        Type = "file"
	TypeAny         Type = "any"
)

// Node is one schema shape. An empty Type means the shape is unknown and accepts anything.
// Constraint fields are only meaningful for the types that use them.
type Node struct {
	Type        Type
	Required    bool
	Title       string
	Description string

	// string
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string

	// string, number and enum variants
	Enum       []any
	Default    any
	HasDefault bool

	// number, integer
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64

	// array
	Items    Alternatives
	MinItems *int
	MaxItems *int

	// object
	Properties         map[string]Alternatives
	RequiredProperties []string
}

// Alternatives lists the shapes allowed for one slot. A single entry is a plain schema.
type Alternatives []*Node

func (n *Node) requiresProperty(name string) bool {
	for _, r := range n.RequiredProperties {
		if r == name {
			return true
		}
	}
	return false
}
