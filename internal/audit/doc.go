// Package audit defines the domain types, error taxonomy, and collaborator
// interfaces shared by the site audit pipeline: the sampled URLs, the raw
// DOM and audit-engine signals captured per page, and the canonical Report
// emitted for every page that audits successfully.
package audit
