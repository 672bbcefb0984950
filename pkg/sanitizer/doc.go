// Package sanitizer normalizes free-form request input before validation and
// storage.
//
// All functions are idempotent. Invalid input is returned trimmed or empty
// rather than rejected; rejection is the validator's job.
package sanitizer
