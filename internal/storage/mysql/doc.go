// Package mysql holds the shared MySQL plumbing: pool setup and the
// versioned schema migration runner used by the contact and transfer stores.
package mysql
