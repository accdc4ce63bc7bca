// Package types defines the entities, repository sentinel errors, and
// configuration shared by the daybook storage engine: entries, catalog
// terms and their kinds, entry/term links, and attachments.
package types
