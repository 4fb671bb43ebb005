// Package customers provides the Customer Registry: the keyed collection of registered borrowers.
package customers
