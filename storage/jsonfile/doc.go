// Package jsonfile persists the library collections in three JSON files inside one directory.
//
// The book and loan files use the layout of the legacy Python dashboard, so existing data can be opened as is:
// loans written by it carry the misspelled "coustomer_id" key, date-only issue and due dates, and no loan id.
// Such loans get a deterministic id derived from their position and content, which is written back with
// the next commit that touches the loan file.
//
// A commit rewrites every touched file atomically (temp file + rename). If a later file fails, the files
// already written by the same commit are restored to their previous content.
package jsonfile
