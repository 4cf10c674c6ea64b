/*
Package loader reads entity models and their seed data from YAML.

	entityTypes:
	  - name: Person
	    abstract: true
	    keys: [ID]
	    properties:
	      - name: Email
	        format: email
	  - name: Customer
	    base: Person
	    properties:
	      - name: CreatedAt
	        format: date-time
	    seed:
	      - ID: c1
	        Email: ada@example.com
	        CreatedAt: 2024-03-01T10:00:00+02:00

Formats are checked with the go-openapi strfmt registry.
*/
package loader
