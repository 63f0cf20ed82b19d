// Package sqlcompose turns catalog search requests into parameterized SQL.
//
// Every placeholder in a composed statement is allocated by Args.Bind, so the
// Nth placeholder in the text is always the Nth bound value. Fragments are
// assembled per strategy from the same candidate builders that feed the facet
// aggregation, which keeps facet counts and product rows on one population.
package sqlcompose
