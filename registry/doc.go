/*
Package registry holds the entity model consumed by the table registry.

A Model is an ordered set of EntityType values. Each type has a stable name,
may be abstract (never stored directly) and may derive from a base type:

	m := registry.NewModel()
	person := m.MustAddEntityType("Person",
	    registry.Abstract(),
	    registry.WithKeys("ID"),
	    registry.WithProperties(registry.Property{Name: "CreatedAt", Format: "date-time"}),
	)
	customer := m.MustAddEntityType("Customer",
	    registry.WithBase(person),
	    registry.WithSeed(map[string]any{"ID": "c1", "Name": "Ada"}),
	)

The set of concrete types deriving from a type is computed while types are
added, so ConcreteDerivedTypesInclusive never walks the model at query time:

	person.ConcreteDerivedTypesInclusive()   // [Customer]
	customer.ConcreteDerivedTypesInclusive() // [Customer]

Index maps associate a type with the key templates used by backends that
address rows through expanded keys, such as DynamoDB single-table designs:

	registry.WithIndexMap(map[string]string{
	    "PK": "USER#{ID}",
	    "SK": "USER#{ID}",
	})

Models should be populated during initialization; entity types are read
without locking once added.
*/
package registry
