// Package params implements validated parameter dictionaries for control
// objects.
//
// A [Dict] is built from a fixed schema of [Field] values. Every write runs
// the field's [Validator] and either stores the normalized value or returns
// a [*ValidationError] leaving the old value in place. Reads of fields that
// were never written return the field's explicit default, or an
// [*UnsetFieldError] when there is none.
//
//	d := params.MustNew(
//	    params.NewField("dt", params.Positive),
//	    params.NewField("aniso", params.AnisoMode, params.WithDefault(params.AnisoAuto)),
//	)
//	_ = d.Set("aniso", true) // stored as "true"
//	_ = d.Apply(handle)      // pushes dt (if set) and aniso to the backend
package params
