package arp

import "errors"

// Validator accumulates wire-validation failures without allocating on the
// happy path, narrowed to the single ARP frame shape this package decodes.
type Validator struct {
	allowMultiErrs bool
	accum          []error
}

// AllowMultipleErrors makes subsequent checks accumulate every failure
// instead of only the first; off by default to keep the common case
// allocation-free.
func (v *Validator) AllowMultipleErrors(allow bool) { v.allowMultiErrs = allow }

// ResetErr clears accumulated errors for reuse across frames.
func (v *Validator) ResetErr() { v.accum = v.accum[:0] }

// HasError reports whether any check has failed so far.
func (v *Validator) HasError() bool { return len(v.accum) > 0 }

// Err returns the accumulated error, or nil if no check failed.
func (v *Validator) Err() error {
	switch len(v.accum) {
	case 0:
		return nil
	case 1:
		return v.accum[0]
	default:
		return errors.Join(v.accum...)
	}
}

// ErrPop returns and clears the accumulated error.
func (v *Validator) ErrPop() error {
	err := v.Err()
	v.ResetErr()
	return err
}

func (v *Validator) AddError(err error) {
	if err == nil || (len(v.accum) != 0 && !v.allowMultiErrs) {
		return
	}
	v.accum = append(v.accum, err)
}
