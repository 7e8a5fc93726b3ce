// Package validation provides the constructor checks shared by the taskflow
// packages.
//
// Every failed check returns a *errors.ValidationError that unwraps to
// errors.ErrInvalidConfiguration, so callers can test for bad configuration
// with errors.Is regardless of which package rejected it.
package validation
