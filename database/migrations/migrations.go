// Package migrations holds the schema for the sql backend. Each migration
// registers itself from init(); cmd/canteen imports the package for that
// side effect.
package migrations
