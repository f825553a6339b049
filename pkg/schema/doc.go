// Package schema reads entity-relationship diagram definitions from files.
//
// A schema document lists entities, their fields, and the relations each
// entity declares. JSON, TOML and YAML are accepted:
//
//	entities:
//	  - name: student
//	    fields: [id, school, class, score, person_id]
//	    relations:
//	      - to: person
//	        field: person_id
//	  - name: person
//	    fields: [id, name, age]
//
// [Schema.Build] turns a document into registered [er.Entity] values. Every
// relation is declared on its source entity before anything is registered,
// so documents may list entities in any order.
package schema
