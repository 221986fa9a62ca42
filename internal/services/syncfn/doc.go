// Package syncfn posts normalized match payloads to the privileged fallback
// sync function used when the primary processing service cannot ensure a
// match record.
package syncfn
