// Package config loads the process configuration of the librarian tools and opens
// the database connections the configured storage needs.
//
// Values are layered: built-in defaults, then the YAML file, then a .env file, then
// LIBRARY_* environment variables. Later layers win.
package config
